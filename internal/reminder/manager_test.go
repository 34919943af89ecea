package reminder

import (
	"fmt"
	"os"
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

func createTestManager(t *testing.T, path string) *Manager {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "reminders.json")
	}
	st := store.Open[[]Reminder](path, logger.NewTestLogger(t),
		store.WithName("reminders"), store.WithSchema(StoreSchema))
	m := NewManager(st, logger.NewTestLogger(t))
	t.Cleanup(m.Stop)
	return m
}

type fireRecorder struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newFireRecorder(expected int) *fireRecorder {
	return &fireRecorder{done: make(chan struct{}, expected)}
}

func (f *fireRecorder) fire(userID, message string, createdAt int64) {
	f.mu.Lock()
	f.calls = append(f.calls, userID+":"+message)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fireRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reminder delivery")
	}
}

func (f *fireRecorder) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ==========================
// Scheduling Tests
// ==========================

func TestManager_Schedule_AppendsInOrder(t *testing.T) {
	m := createTestManager(t, "")

	delay, err := m.Schedule("user-1", "1h", "first", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, delay)

	_, err = m.Schedule("user-1", "2h", "second", nil)
	require.NoError(t, err)

	entries := m.List("user-1")
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Less(t, entries[0].ExpiresAt, entries[1].ExpiresAt)
}

func TestManager_Schedule_InvalidDuration(t *testing.T) {
	m := createTestManager(t, "")

	_, err := m.Schedule("user-1", "banana", "never", nil)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Empty(t, m.List("user-1"))
}

func TestManager_Schedule_IsolatesUsers(t *testing.T) {
	m := createTestManager(t, "")

	_, err := m.Schedule("user-1", "1h", "mine", nil)
	require.NoError(t, err)

	assert.Len(t, m.List("user-1"), 1)
	assert.Empty(t, m.List("user-2"))
}

// ==========================
// Deletion Tests
// ==========================

func TestManager_Delete(t *testing.T) {
	m := createTestManager(t, "")

	for n := 0; n < 3; n++ {
		_, err := m.Schedule("user-1", "1h", fmt.Sprintf("r%d", n), nil)
		require.NoError(t, err)
	}

	assert.True(t, m.Delete("user-1", 1))

	entries := m.List("user-1")
	require.Len(t, entries, 2)
	assert.Equal(t, "r0", entries[0].Message)
	assert.Equal(t, "r2", entries[1].Message)
}

func TestManager_Delete_OutOfBounds(t *testing.T) {
	m := createTestManager(t, "")

	_, err := m.Schedule("user-1", "1h", "only", nil)
	require.NoError(t, err)

	assert.False(t, m.Delete("user-1", 1))
	assert.False(t, m.Delete("user-1", -1))
	assert.False(t, m.Delete("user-2", 0))
	assert.Len(t, m.List("user-1"), 1)
}

func TestManager_Delete_CancelsTimer(t *testing.T) {
	m := createTestManager(t, "")
	rec := newFireRecorder(1)

	_, err := m.Schedule("user-1", "1s", "cancelled", rec.fire)
	require.NoError(t, err)
	require.True(t, m.Delete("user-1", 0))

	time.Sleep(1200 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.Empty(t, m.List("user-1"))
}

// ==========================
// Firing Tests
// ==========================

func TestManager_Fire_DeliversAndRemoves(t *testing.T) {
	m := createTestManager(t, "")
	rec := newFireRecorder(1)

	_, err := m.Schedule("user-1", "1s", "wake up", rec.fire)
	require.NoError(t, err)

	rec.wait(t)
	assert.Equal(t, []string{"user-1:wake up"}, rec.snapshot())
	assert.Empty(t, m.List("user-1"))
}

func TestManager_Fire_DefaultsEmptyMessage(t *testing.T) {
	m := createTestManager(t, "")
	rec := newFireRecorder(1)

	_, err := m.Schedule("user-1", "1s", "", rec.fire)
	require.NoError(t, err)

	rec.wait(t)
	assert.Equal(t, []string{"user-1:No message provided."}, rec.snapshot())
}

// ==========================
// Rehydration Tests
// ==========================

func TestManager_LoadAndRearm_DropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	now := time.Now().UnixMilli()

	doc := fmt.Sprintf(`{
  "user-1": [
    {"message": "long gone", "createdAt": %d, "expiresAt": %d},
    {"message": "still due", "createdAt": %d, "expiresAt": %d}
  ],
  "user-2": [
    {"message": "also gone", "createdAt": %d, "expiresAt": %d}
  ]
}`, now-7200000, now-3600000, now-1000, now+3600000, now-7200000, now-1)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m := createTestManager(t, path)
	rec := newFireRecorder(1)

	assert.Equal(t, 1, m.LoadAndRearm(rec.fire))
	assert.Len(t, m.List("user-1"), 1)
	assert.Equal(t, "still due", m.List("user-1")[0].Message)
	assert.Empty(t, m.List("user-2"))
	assert.Empty(t, rec.snapshot())
}

func TestManager_LoadAndRearm_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")

	first := createTestManager(t, path)
	_, err := first.Schedule("user-1", "1h", "persisted", nil)
	require.NoError(t, err)
	first.Stop()

	second := createTestManager(t, path)
	assert.Equal(t, 1, second.LoadAndRearm(nil))
	assert.Equal(t, "persisted", second.List("user-1")[0].Message)
}
