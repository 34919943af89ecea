// Package application implements the moderator-reviewed membership
// application workflow: staged form collection, a durable pending record,
// and approve/reject decisions with best-effort side effects.
package application

import (
	"sort"

	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/store"
)

// Status is the application lifecycle state. Approved and rejected are
// terminal: no transition leaves them.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// StoreSchema validates the persisted applications document.
const StoreSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"userId": {"type": "string"},
			"username": {"type": "string"},
			"minecraftUsername": {"type": "string"},
			"minecraftUUID": {"type": "string"},
			"isValidMinecraftAccount": {"type": "boolean"},
			"reason": {"type": "string"},
			"experience": {"type": "string"},
			"likeTrains": {"type": "string"},
			"status": {"type": "string", "enum": ["pending", "approved", "rejected"]},
			"createdAt": {"type": "integer"},
			"messageId": {"type": "string"}
		},
		"required": ["userId", "username", "minecraftUsername", "status", "createdAt"]
	}
}`

// Application is the durable membership application record. It is only
// ever written fully formed, in state pending.
type Application struct {
	UserID                  string `json:"userId"`
	Username                string `json:"username"`
	MinecraftUsername       string `json:"minecraftUsername"`
	MinecraftUUID           string `json:"minecraftUUID,omitempty"`
	IsValidMinecraftAccount bool   `json:"isValidMinecraftAccount,omitempty"`
	Reason                  string `json:"reason,omitempty"`
	Experience              string `json:"experience,omitempty"`
	LikeTrains              string `json:"likeTrains,omitempty"`
	Status                  Status `json:"status"`
	CreatedAt               int64  `json:"createdAt"`
	MessageID               string `json:"messageId,omitempty"`
}

// Manager is the store-backed application record keeper. One record per
// owning-user id.
type Manager struct {
	store *store.Store[Application]
	log   logger.Logger
}

func NewManager(st *store.Store[Application], log logger.Logger) *Manager {
	return &Manager{
		store: st,
		log:   log.WithFields(map[string]interface{}{"component": "applications"}),
	}
}

// Get returns the application for userID.
func (m *Manager) Get(userID string) (Application, bool) {
	return m.store.Get(userID)
}

// All returns every application, optionally filtered by status, ordered
// by creation time.
func (m *Manager) All(status Status) []Application {
	var apps []Application
	m.store.ForEach(func(_ string, app Application) {
		if status == "" || app.Status == status {
			apps = append(apps, app)
		}
	})
	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt < apps[j].CreatedAt })
	return apps
}

// Create stores app keyed by its owning user and persists.
func (m *Manager) Create(app Application) {
	m.store.Set(app.UserID, app)
	m.log.Info("application created", map[string]interface{}{
		"userId":   app.UserID,
		"username": app.Username,
	})
}

// Decide transitions a pending record to status. The pending check and
// the write happen inside one store.Update closure, so two concurrent
// decisions serialize: the second one finds the record no longer pending
// and leaves it untouched. Returns the record after the call, its prior
// status, and whether a record existed at all.
func (m *Manager) Decide(userID string, status Status) (Application, Status, bool) {
	var (
		app   Application
		prior Status
		found bool
	)
	m.store.Update(userID, func(cur Application, ok bool) (Application, bool) {
		if !ok {
			return cur, false
		}
		found = true
		prior = cur.Status
		if cur.Status == StatusPending {
			cur.Status = status
		}
		app = cur
		return cur, true
	})
	return app, prior, found
}

// SetMessageID records the moderation message a pending application
// produced, so the decision handler can edit it later.
func (m *Manager) SetMessageID(userID, messageID string) bool {
	updated := false
	m.store.Update(userID, func(app Application, ok bool) (Application, bool) {
		if !ok {
			return app, false
		}
		app.MessageID = messageID
		updated = true
		return app, true
	})
	return updated
}

// Delete removes the application for userID. Administrative escape hatch;
// nothing in the normal flow destroys records.
func (m *Manager) Delete(userID string) bool {
	return m.store.Delete(userID)
}
