// Package invites attributes new members to the invite that brought them
// in, by diffing invite use counts across joins.
package invites

import (
	"sync"

	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/store"
)

// StoreSchema validates the persisted member-invite document.
const StoreSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"inviteCode": {"type": "string"},
			"inviterId": {"type": "string"},
			"inviterTag": {"type": "string"},
			"joinedAt": {"type": "integer"}
		},
		"required": ["inviteCode", "inviterId", "joinedAt"]
	}
}`

// MemberInvite records which invite a member joined through.
type MemberInvite struct {
	InviteCode string `json:"inviteCode"`
	InviterID  string `json:"inviterId"`
	InviterTag string `json:"inviterTag"`
	JoinedAt   int64  `json:"joinedAt"`
}

// InviteUse is a point-in-time snapshot of one invite's use counter.
type InviteUse struct {
	Code       string
	InviterID  string
	InviterTag string
	Uses       int
}

// Tracker caches per-guild invite counters and persists the member
// attribution map. Deleting an invite only clears the cache; member data
// is kept.
type Tracker struct {
	store *store.Store[MemberInvite]
	log   logger.Logger

	mu     sync.Mutex
	guilds map[string]map[string]InviteUse
}

func NewTracker(st *store.Store[MemberInvite], log logger.Logger) *Tracker {
	return &Tracker{
		store:  st,
		log:    log.WithFields(map[string]interface{}{"component": "invites"}),
		guilds: make(map[string]map[string]InviteUse),
	}
}

// SetGuildInvites replaces the cached counters for a guild.
func (t *Tracker) SetGuildInvites(guildID string, uses []InviteUse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cache := make(map[string]InviteUse, len(uses))
	for _, u := range uses {
		cache[u.Code] = u
	}
	t.guilds[guildID] = cache
}

// InviteCreated adds a new invite to the guild cache.
func (t *Tracker) InviteCreated(guildID string, u InviteUse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.guilds[guildID] == nil {
		t.guilds[guildID] = make(map[string]InviteUse)
	}
	t.guilds[guildID][u.Code] = u
}

// InviteDeleted drops an invite from the guild cache.
func (t *Tracker) InviteDeleted(guildID, code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.guilds[guildID], code)
}

// ResolveJoin compares the current invite counters against the cache to
// find the invite whose use count went up, records the attribution, and
// refreshes the cache. Returns false when no invite can be attributed
// (vanity URLs, expired single-use invites, stale cache).
func (t *Tracker) ResolveJoin(guildID, userID string, current []InviteUse, joinedAt int64) (MemberInvite, bool) {
	t.mu.Lock()
	cached := t.guilds[guildID]

	var used *InviteUse
	for i, u := range current {
		prev, ok := cached[u.Code]
		if ok && u.Uses > prev.Uses {
			used = &current[i]
			break
		}
		if !ok && u.Uses > 0 {
			// New invite already consumed before we cached it.
			used = &current[i]
		}
	}

	cache := make(map[string]InviteUse, len(current))
	for _, u := range current {
		cache[u.Code] = u
	}
	t.guilds[guildID] = cache
	t.mu.Unlock()

	if used == nil {
		t.log.Info("could not attribute join to an invite", map[string]interface{}{
			"guildId": guildID,
			"userId":  userID,
		})
		return MemberInvite{}, false
	}

	info := MemberInvite{
		InviteCode: used.Code,
		InviterID:  used.InviterID,
		InviterTag: used.InviterTag,
		JoinedAt:   joinedAt,
	}
	t.store.Set(userID, info)

	t.log.Info("member join attributed", map[string]interface{}{
		"userId":  userID,
		"code":    info.InviteCode,
		"inviter": info.InviterTag,
	})
	return info, true
}

// Lookup returns the stored attribution for a member.
func (t *Tracker) Lookup(userID string) (MemberInvite, bool) {
	return t.store.Get(userID)
}
