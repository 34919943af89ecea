package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeLookup struct {
	profile Profile
	err     error
	calls   int
}

func (f *fakeLookup) Lookup(ctx context.Context, username string) (Profile, error) {
	f.calls++
	return f.profile, f.err
}

type fakeWhitelist struct {
	mu     sync.Mutex
	result bool
	names  []string
}

func (f *fakeWhitelist) Add(ctx context.Context, username string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, username)
	return f.result
}

func (f *fakeWhitelist) added() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	messages map[string][]string
}

func (f *fakeNotifier) DirectMessage(userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = make(map[string][]string)
	}
	f.messages[userID] = append(f.messages[userID], content)
	return f.err
}

func (f *fakeNotifier) sent(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[userID]
}

type workflowFixture struct {
	workflow  *Workflow
	lookup    *fakeLookup
	whitelist *fakeWhitelist
	notifier  *fakeNotifier
}

func createTestWorkflow(t *testing.T, ttl time.Duration) *workflowFixture {
	t.Helper()
	st := store.Open[Application](
		filepath.Join(t.TempDir(), "applications.json"),
		logger.NewTestLogger(t),
		store.WithName("applications"), store.WithSchema(StoreSchema))

	f := &workflowFixture{
		lookup:    &fakeLookup{profile: Profile{ID: "069a79f444e94726a5befca90e38aaf5", Name: "Notch", Valid: true}},
		whitelist: &fakeWhitelist{result: true},
		notifier:  &fakeNotifier{},
	}
	f.workflow = NewWorkflow(
		NewManager(st, logger.NewTestLogger(t)),
		f.lookup, f.whitelist, f.notifier,
		ttl,
		logger.NewTestLogger(t),
	)
	return f
}

// submit runs the full happy path up to a pending record.
func (f *workflowFixture) submit(t *testing.T, userID string) Application {
	t.Helper()
	require.NoError(t, f.workflow.Begin(userID))
	f.workflow.Stage(context.Background(), userID, "notch", "I like building", "5 years")
	app, err := f.workflow.Finalize(userID, "tester", "Yes")
	require.NoError(t, err)
	return app
}

// ==========================
// Submission Tests
// ==========================

func TestWorkflow_SubmitHappyPath(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)

	app := f.submit(t, "user-1")

	assert.Equal(t, "user-1", app.UserID)
	assert.Equal(t, "tester", app.Username)
	assert.Equal(t, "Notch", app.MinecraftUsername, "canonical name from the lookup wins")
	assert.Equal(t, "069a79f444e94726a5befca90e38aaf5", app.MinecraftUUID)
	assert.True(t, app.IsValidMinecraftAccount)
	assert.Equal(t, "I like building", app.Reason)
	assert.Equal(t, "5 years", app.Experience)
	assert.Equal(t, "Yes", app.LikeTrains)
	assert.Equal(t, StatusPending, app.Status)
	assert.NotZero(t, app.CreatedAt)

	stored, ok := f.workflow.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, app, stored)
}

func TestWorkflow_Stage_LookupFailureDegradesToUnverified(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.lookup.profile = Profile{}
	f.lookup.err = errors.New("api down")

	require.NoError(t, f.workflow.Begin("user-1"))
	form := f.workflow.Stage(context.Background(), "user-1", "notch", "r", "e")

	assert.False(t, form.IsValidMinecraftAccount)
	assert.Equal(t, "notch", form.MinecraftUsername, "claimed name kept as-is")
	assert.Empty(t, form.MinecraftUUID)

	app, err := f.workflow.Finalize("user-1", "tester", "No")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, app.Status)
}

func TestWorkflow_Finalize_WithoutStaging(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)

	_, err := f.workflow.Finalize("user-1", "tester", "Yes")
	assert.ErrorIs(t, err, ErrStagingNotFound)
}

func TestWorkflow_Finalize_ConsumesStagingOnce(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.submit(t, "user-1")

	_, err := f.workflow.Finalize("user-1", "tester", "Yes")
	assert.ErrorIs(t, err, ErrStagingNotFound, "duplicate select interaction finds nothing")
}

func TestWorkflow_Staging_ExpiresAfterTTL(t *testing.T) {
	f := createTestWorkflow(t, 10*time.Minute)

	require.NoError(t, f.workflow.Begin("user-1"))
	f.workflow.Stage(context.Background(), "user-1", "notch", "r", "e")

	// Move the staging clock past the TTL.
	f.workflow.staging.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	_, err := f.workflow.Finalize("user-1", "tester", "Yes")
	assert.ErrorIs(t, err, ErrStagingNotFound)
}

// ==========================
// Re-entry Guard Tests
// ==========================

func TestWorkflow_Begin_BlocksEveryExistingStatus(t *testing.T) {
	tests := []struct {
		name     string
		decide   func(f *workflowFixture)
		expected error
	}{
		{
			name:     "pending",
			decide:   func(f *workflowFixture) {},
			expected: ErrAlreadyPending,
		},
		{
			name: "approved",
			decide: func(f *workflowFixture) {
				_, err := f.workflow.Approve(context.Background(), "user-1")
				require.NoError(t, err)
			},
			expected: ErrAlreadyApproved,
		},
		{
			name: "rejected",
			decide: func(f *workflowFixture) {
				_, err := f.workflow.Reject(context.Background(), "user-1")
				require.NoError(t, err)
			},
			expected: ErrAlreadyRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestWorkflow(t, time.Minute)
			f.submit(t, "user-1")
			tt.decide(f)

			assert.ErrorIs(t, f.workflow.Begin("user-1"), tt.expected)
		})
	}
}

// ==========================
// Decision Tests
// ==========================

func TestWorkflow_Approve_WhitelistsAndNotifies(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.submit(t, "user-1")

	decision, err := f.workflow.Approve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, decision.App.Status)
	assert.True(t, decision.WhitelistAttempted)
	assert.True(t, decision.Whitelisted)
	assert.Equal(t, []string{"Notch"}, f.whitelist.names)

	messages := f.notifier.sent("user-1")
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "APPROVED")
	assert.Contains(t, messages[0], "whitelisted")

	stored, _ := f.workflow.Get("user-1")
	assert.Equal(t, StatusApproved, stored.Status)
}

func TestWorkflow_Approve_SkipsWhitelistForUnverifiedAccount(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.lookup.profile = Profile{}
	f.lookup.err = errors.New("api down")
	f.submit(t, "user-1")

	decision, err := f.workflow.Approve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.False(t, decision.WhitelistAttempted)
	assert.Empty(t, f.whitelist.names)
	assert.Equal(t, StatusApproved, decision.App.Status, "approval stands without the side effect")
}

func TestWorkflow_Approve_WhitelistFailureDoesNotRollBack(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.whitelist.result = false
	f.submit(t, "user-1")

	decision, err := f.workflow.Approve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, decision.WhitelistAttempted)
	assert.False(t, decision.Whitelisted)

	stored, _ := f.workflow.Get("user-1")
	assert.Equal(t, StatusApproved, stored.Status)

	messages := f.notifier.sent("user-1")
	require.Len(t, messages, 1)
	assert.NotContains(t, messages[0], "whitelisted")
}

func TestWorkflow_Approve_NotificationFailureIsSwallowed(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.notifier.err = errors.New("dms closed")
	f.submit(t, "user-1")

	_, err := f.workflow.Approve(context.Background(), "user-1")
	assert.NoError(t, err)
}

func TestWorkflow_Reject(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.submit(t, "user-1")

	app, err := f.workflow.Reject(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, app.Status)
	assert.Empty(t, f.whitelist.names, "rejection never touches the whitelist")

	messages := f.notifier.sent("user-1")
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "REJECTED")
}

func TestWorkflow_Decide_Twice(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.submit(t, "user-1")

	_, err := f.workflow.Approve(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = f.workflow.Approve(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = f.workflow.Reject(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestWorkflow_Decide_ConcurrentClicksHaveOneWinner(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)

	const iterations = 200
	for n := 0; n < iterations; n++ {
		userID := fmt.Sprintf("user-%d", n)
		f.submit(t, userID)

		start := make(chan struct{})
		results := make(chan error, 2)
		for g := 0; g < 2; g++ {
			go func() {
				<-start
				_, err := f.workflow.Approve(context.Background(), userID)
				results <- err
			}()
		}
		close(start)

		losses := 0
		for g := 0; g < 2; g++ {
			if err := <-results; err != nil {
				assert.ErrorIs(t, err, ErrAlreadyProcessed)
				losses++
			}
		}
		require.Equal(t, 1, losses, "exactly one of two simultaneous approvals may win")
	}

	assert.Len(t, f.whitelist.added(), iterations, "one whitelist call per applicant")
	for _, messages := range f.notifier.messages {
		assert.Len(t, messages, 1, "one notification per applicant")
	}
}

func TestWorkflow_Decide_ConcurrentApproveAndReject(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.submit(t, "user-1")

	start := make(chan struct{})
	results := make(chan error, 2)
	go func() {
		<-start
		_, err := f.workflow.Approve(context.Background(), "user-1")
		results <- err
	}()
	go func() {
		<-start
		_, err := f.workflow.Reject(context.Background(), "user-1")
		results <- err
	}()
	close(start)

	losses := 0
	for g := 0; g < 2; g++ {
		if err := <-results; err != nil {
			assert.ErrorIs(t, err, ErrAlreadyProcessed)
			losses++
		}
	}
	require.Equal(t, 1, losses)

	stored, ok := f.workflow.Get("user-1")
	require.True(t, ok)
	assert.Contains(t, []Status{StatusApproved, StatusRejected}, stored.Status)
	assert.NotEqual(t, StatusPending, stored.Status)
}

func TestWorkflow_Decide_Unknown(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)

	_, err := f.workflow.Approve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.workflow.Reject(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ==========================
// Listing Tests
// ==========================

func TestWorkflow_List_FiltersAndSorts(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)

	base := time.Now()
	for n, userID := range []string{"user-3", "user-1", "user-2"} {
		stamp := base.Add(time.Duration(n) * time.Second)
		f.workflow.now = func() time.Time { return stamp }
		f.submit(t, userID)
	}

	_, err := f.workflow.Reject(context.Background(), "user-1")
	require.NoError(t, err)

	pending := f.workflow.List(StatusPending)
	require.Len(t, pending, 2)
	assert.Equal(t, "user-3", pending[0].UserID, "oldest first")
	assert.Equal(t, "user-2", pending[1].UserID)

	rejected := f.workflow.List(StatusRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, "user-1", rejected[0].UserID)
}

func TestWorkflow_Delete_ReopensTheDoor(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.submit(t, "user-1")
	_, err := f.workflow.Reject(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, f.workflow.Delete("user-1"))
	assert.False(t, f.workflow.Delete("user-1"))
	assert.NoError(t, f.workflow.Begin("user-1"), "deleting the record allows a fresh application")
}

func TestWorkflow_SetMessageID(t *testing.T) {
	f := createTestWorkflow(t, time.Minute)
	f.submit(t, "user-1")

	assert.True(t, f.workflow.SetMessageID("user-1", "msg-42"))
	assert.False(t, f.workflow.SetMessageID("nobody", "msg-42"))

	stored, _ := f.workflow.Get("user-1")
	assert.Equal(t, "msg-42", stored.MessageID)
}
