// Package reminder implements scheduled personal reminders: duration
// parsing, in-memory one-shot timers, and JSON persistence with
// rehydration on restart.
package reminder

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/common/metrics"
	"github.com/09wizardguy/SignalBox/internal/store"
)

// StoreSchema validates the persisted reminders document.
const StoreSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"message": {"type": "string"},
				"createdAt": {"type": "integer"},
				"expiresAt": {"type": "integer"}
			},
			"required": ["createdAt", "expiresAt"]
		}
	}
}`

// Reminder is a single scheduled reminder. The ID is process-local and
// never persisted: it keys the live timer, and a fresh one is generated
// when records are rehydrated from disk.
type Reminder struct {
	ID        string `json:"-"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Entry is the listing view of a reminder.
type Entry struct {
	Message   string
	ExpiresAt int64
}

// FireFunc delivers a due reminder. Delivery failures are the adapter's
// concern; the manager does not retry.
type FireFunc func(userID, message string, createdAt int64)

// Manager owns the per-user reminder sequences and their live timers.
type Manager struct {
	store *store.Store[[]Reminder]
	log   logger.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer

	now func() time.Time
}

func NewManager(st *store.Store[[]Reminder], log logger.Logger) *Manager {
	return &Manager{
		store:  st,
		log:    log.WithFields(map[string]interface{}{"component": "reminders"}),
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
}

// Schedule parses durationText, stores a new reminder for userID and arms
// a one-shot timer. Returns the parsed duration, or ErrInvalidDuration.
func (m *Manager) Schedule(userID, durationText, message string, onFire FireFunc) (time.Duration, error) {
	delay, err := ParseDuration(durationText)
	if err != nil {
		return 0, err
	}

	createdAt := m.now().UnixMilli()
	r := Reminder{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: createdAt,
		ExpiresAt: createdAt + delay.Milliseconds(),
	}

	m.mu.Lock()
	list, _ := m.store.Get(userID)
	m.store.Set(userID, append(list, r))
	m.arm(userID, r, delay, onFire)
	m.mu.Unlock()

	metrics.RemindersScheduled.Inc()
	m.log.Info("reminder scheduled", map[string]interface{}{
		"userId":    userID,
		"expiresAt": r.ExpiresAt,
	})

	return delay, nil
}

// List returns userID's reminders in creation order.
func (m *Manager) List(userID string) []Entry {
	list, _ := m.store.Get(userID)
	entries := make([]Entry, 0, len(list))
	for _, r := range list {
		entries = append(entries, Entry{Message: r.Message, ExpiresAt: r.ExpiresAt})
	}
	return entries
}

// Delete removes the reminder at the 0-based index, cancelling its timer.
// Returns false when the index is out of bounds or the user has none.
func (m *Manager) Delete(userID string, index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.store.Get(userID)
	if !ok || index < 0 || index >= len(list) {
		return false
	}

	r := list[index]
	if t := m.timers[r.ID]; t != nil {
		t.Stop()
		delete(m.timers, r.ID)
	}

	next := make([]Reminder, 0, len(list)-1)
	next = append(next, list[:index]...)
	next = append(next, list[index+1:]...)

	if len(next) == 0 {
		m.store.Delete(userID)
	} else {
		m.store.Set(userID, next)
	}
	return true
}

// LoadAndRearm re-arms a timer for every persisted reminder that has not
// yet expired; expired records are dropped without delivery. Returns the
// number of reminders re-armed. Call once at startup, before the manager
// is handed to the command surface.
func (m *Manager) LoadAndRearm(onFire FireFunc) int {
	now := m.now().UnixMilli()
	rearmed := 0

	m.store.ForEach(func(userID string, list []Reminder) {
		kept := make([]Reminder, 0, len(list))
		for _, r := range list {
			if r.ExpiresAt <= now {
				m.log.Info("skipping expired reminder", map[string]interface{}{
					"userId":    userID,
					"expiresAt": r.ExpiresAt,
				})
				continue
			}
			r.ID = uuid.NewString()
			kept = append(kept, r)
		}

		m.mu.Lock()
		if len(kept) == 0 {
			m.store.Delete(userID)
		} else {
			m.store.Set(userID, kept)
			for _, r := range kept {
				delay := time.Duration(r.ExpiresAt-now) * time.Millisecond
				m.arm(userID, r, delay, onFire)
				rearmed++
			}
		}
		m.mu.Unlock()
	})

	m.log.Info("reminders loaded", map[string]interface{}{"rearmed": rearmed})
	return rearmed
}

// Stop cancels every live timer. Pending reminders stay on disk and are
// re-armed on the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

// arm installs the one-shot timer for r. Caller holds m.mu.
func (m *Manager) arm(userID string, r Reminder, delay time.Duration, onFire FireFunc) {
	m.timers[r.ID] = time.AfterFunc(delay, func() {
		m.fire(userID, r, onFire)
	})
}

// fire claims the record (removing it by id under the lock), then
// delivers it. A record already removed by a concurrent delete is never
// delivered.
func (m *Manager) fire(userID string, r Reminder, onFire FireFunc) {
	m.mu.Lock()
	claimed := m.removeByID(userID, r.ID)
	delete(m.timers, r.ID)
	m.mu.Unlock()

	if !claimed {
		return
	}

	metrics.RemindersFired.Inc()
	message := r.Message
	if message == "" {
		message = "No message provided."
	}
	onFire(userID, message, r.CreatedAt)
}

// removeByID removes the record with the given id from userID's sequence
// and persists. Caller holds m.mu.
func (m *Manager) removeByID(userID, id string) bool {
	list, ok := m.store.Get(userID)
	if !ok {
		return false
	}

	for i, r := range list {
		if r.ID != id {
			continue
		}
		next := make([]Reminder, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			m.store.Delete(userID)
		} else {
			m.store.Set(userID, next)
		}
		return true
	}
	return false
}
