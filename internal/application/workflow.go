package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/common/metrics"
)

var (
	// Begin guards: one application per user, for life.
	ErrAlreadyPending  = errors.New("ALREADY_PENDING")
	ErrAlreadyApproved = errors.New("ALREADY_APPROVED")
	ErrAlreadyRejected = errors.New("ALREADY_REJECTED")

	// Finalize guard: the staging entry is gone (restart, expiry, or a
	// duplicate interaction already consumed it).
	ErrStagingNotFound = errors.New("STAGING_NOT_FOUND")

	// Decision guards.
	ErrNotFound         = errors.New("APPLICATION_NOT_FOUND")
	ErrAlreadyProcessed = errors.New("ALREADY_PROCESSED")
)

// Profile is the result of the external account lookup. A lookup that
// finds nothing is a valid outcome, not an error.
type Profile struct {
	ID    string
	Name  string
	Valid bool
}

// ProfileLookup resolves a claimed account name to a canonical profile.
type ProfileLookup interface {
	Lookup(ctx context.Context, username string) (Profile, error)
}

// Whitelister performs the external whitelist side effect. Connection and
// auth failures surface as false, never as panics into the workflow.
type Whitelister interface {
	Add(ctx context.Context, username string) bool
}

// Notifier is the delivery adapter for applicant notifications.
type Notifier interface {
	DirectMessage(userID, content string) error
}

// Workflow drives the application state machine:
// absent -> pending -> {approved, rejected}.
type Workflow struct {
	apps      *Manager
	staging   *staging
	lookup    ProfileLookup
	whitelist Whitelister
	notifier  Notifier
	log       logger.Logger
	now       func() time.Time
}

func NewWorkflow(apps *Manager, lookup ProfileLookup, whitelist Whitelister, notifier Notifier, stagingTTL time.Duration, log logger.Logger) *Workflow {
	return &Workflow{
		apps:      apps,
		staging:   newStaging(stagingTTL),
		lookup:    lookup,
		whitelist: whitelist,
		notifier:  notifier,
		log:       log.WithFields(map[string]interface{}{"component": "application-workflow"}),
		now:       time.Now,
	}
}

// Begin checks whether userID may start a new application. Any existing
// record, pending or terminal, blocks re-entry.
func (w *Workflow) Begin(userID string) error {
	app, ok := w.apps.Get(userID)
	if !ok {
		return nil
	}

	switch app.Status {
	case StatusPending:
		return fmt.Errorf("%w: %s", ErrAlreadyPending, userID)
	case StatusApproved:
		return fmt.Errorf("%w: %s", ErrAlreadyApproved, userID)
	default:
		return fmt.Errorf("%w: %s", ErrAlreadyRejected, userID)
	}
}

// Stage runs the account lookup on the submitted form and stores a
// staging entry for userID. Lookup failure degrades to an unverified
// entry; it never aborts the flow.
func (w *Workflow) Stage(ctx context.Context, userID, minecraftUsername, reason, experience string) StagedForm {
	profile, err := w.lookup.Lookup(ctx, minecraftUsername)
	if err != nil {
		w.log.WithError(commonerrors.NewProfileLookupFailedError(minecraftUsername, err)).
			Warn("account lookup failed, staging unverified", map[string]interface{}{
				"userId": userID,
			})
	}

	name := minecraftUsername
	if profile.Valid && profile.Name != "" {
		name = profile.Name
	}

	form := StagedForm{
		MinecraftUsername:       name,
		MinecraftUUID:           profile.ID,
		IsValidMinecraftAccount: profile.Valid,
		Reason:                  reason,
		Experience:              experience,
	}
	w.staging.put(userID, form)
	return form
}

// Finalize consumes the staging entry for userID and writes the durable
// record with status pending. Fails with ErrStagingNotFound when the
// entry is missing, telling the user to start over.
func (w *Workflow) Finalize(userID, username, likeTrains string) (Application, error) {
	form, ok := w.staging.take(userID)
	if !ok {
		return Application{}, fmt.Errorf("%w: %s", ErrStagingNotFound, userID)
	}

	app := Application{
		UserID:                  userID,
		Username:                username,
		MinecraftUsername:       form.MinecraftUsername,
		MinecraftUUID:           form.MinecraftUUID,
		IsValidMinecraftAccount: form.IsValidMinecraftAccount,
		Reason:                  form.Reason,
		Experience:              form.Experience,
		LikeTrains:              likeTrains,
		Status:                  StatusPending,
		CreatedAt:               w.now().UnixMilli(),
	}
	w.apps.Create(app)
	return app, nil
}

// Decision is the result of an approve: the whitelist side effect is
// best-effort and its outcome is reported, not rolled back.
type Decision struct {
	App                Application
	WhitelistAttempted bool
	Whitelisted        bool
}

// Approve transitions a pending application to approved, then attempts
// the whitelist side effect and the applicant notification. Neither side
// effect can undo the approval.
func (w *Workflow) Approve(ctx context.Context, userID string) (Decision, error) {
	app, prior, ok := w.apps.Decide(userID, StatusApproved)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if prior != StatusPending {
		return Decision{}, fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, userID, prior)
	}
	metrics.ApplicationsDecided.WithLabelValues(string(StatusApproved)).Inc()

	decision := Decision{App: app}
	if app.IsValidMinecraftAccount && app.MinecraftUsername != "" {
		decision.WhitelistAttempted = true
		decision.Whitelisted = w.whitelist.Add(ctx, app.MinecraftUsername)
		outcome := "success"
		if !decision.Whitelisted {
			outcome = "failure"
			w.log.Warn("whitelist call failed", map[string]interface{}{
				"userId":   userID,
				"username": app.MinecraftUsername,
			})
		}
		metrics.WhitelistCalls.WithLabelValues(outcome).Inc()
	}

	content := "🎉 Congratulations! Your application has been **APPROVED**!"
	if decision.Whitelisted {
		content += fmt.Sprintf("\n\n✅ Your Minecraft account **%s** has been whitelisted! You can now join the server.", app.MinecraftUsername)
	}
	w.notify(userID, content)

	return decision, nil
}

// Reject transitions a pending application to rejected and notifies the
// applicant best-effort.
func (w *Workflow) Reject(ctx context.Context, userID string) (Application, error) {
	app, prior, ok := w.apps.Decide(userID, StatusRejected)
	if !ok {
		return Application{}, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if prior != StatusPending {
		return Application{}, fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, userID, prior)
	}
	metrics.ApplicationsDecided.WithLabelValues(string(StatusRejected)).Inc()

	w.notify(userID, "❌ Unfortunately, your application has been **REJECTED**. Please contact a moderator for more information.")

	return app, nil
}

// notify sends a DM to the applicant. Failures are logged, never
// surfaced, never retried.
func (w *Workflow) notify(userID, content string) {
	if err := w.notifier.DirectMessage(userID, content); err != nil {
		w.log.WithError(commonerrors.NewNotificationSendFailedError(userID, err)).
			Warn("could not notify applicant", map[string]interface{}{
				"userId": userID,
			})
	}
}

// SetMessageID records the moderation message for a pending application.
func (w *Workflow) SetMessageID(userID, messageID string) bool {
	return w.apps.SetMessageID(userID, messageID)
}

// Get returns the application for userID.
func (w *Workflow) Get(userID string) (Application, bool) {
	return w.apps.Get(userID)
}

// List returns applications, optionally filtered by status.
func (w *Workflow) List(status Status) []Application {
	return w.apps.All(status)
}

// Delete removes the application for userID. Administrative escape hatch.
func (w *Workflow) Delete(userID string) bool {
	return w.apps.Delete(userID)
}
