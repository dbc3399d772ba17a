package punish

import (
	"modbot/metrics"
	"modbot/model"
	"sync"
	"time"
)

// ExpirationQueue holds the active time-bound punishments of one kind until
// they are due. At most one entry exists per member and guild.
type ExpirationQueue struct {
	kind    model.Kind
	mu      sync.Mutex
	entries []model.ActivePunishment
}

// NewExpirationQueue creates an empty queue for kind.
func NewExpirationQueue(kind model.Kind) *ExpirationQueue {
	return &ExpirationQueue{kind: kind}
}

// Kind returns the punishment kind tracked by the queue.
func (q *ExpirationQueue) Kind() model.Kind {
	return q.kind
}

// Add inserts p, replacing any entry for the same member and guild.
func (q *ExpirationQueue) Add(p model.ActivePunishment) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexLocked(p.MemberID, p.GuildID); i >= 0 {
		q.entries[i] = p
	} else {
		q.entries = append(q.entries, p)
	}
	q.reportLocked()
}

// Tick removes and returns every entry whose clear time is at or before now.
func (q *ExpirationQueue) Tick(now time.Time) []model.ActivePunishment {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []model.ActivePunishment
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Due(now) {
			due = append(due, e)
		} else {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	if len(due) > 0 {
		q.reportLocked()
	}
	return due
}

// Remove deletes the entry for the member in the guild. It reports whether one existed.
func (q *ExpirationQueue) Remove(memberID, guildID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(memberID, guildID)
	if i < 0 {
		return false
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.reportLocked()
	return true
}

// Has reports whether the member has an entry in the guild.
func (q *ExpirationQueue) Has(memberID, guildID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(memberID, guildID) >= 0
}

// Get returns the entry for the member in the guild.
func (q *ExpirationQueue) Get(memberID, guildID string) (model.ActivePunishment, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexLocked(memberID, guildID); i >= 0 {
		return q.entries[i], true
	}
	return model.ActivePunishment{}, false
}

// Len returns the number of entries.
func (q *ExpirationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the current entries.
func (q *ExpirationQueue) Snapshot() []model.ActivePunishment {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.ActivePunishment, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *ExpirationQueue) indexLocked(memberID, guildID string) int {
	for i, e := range q.entries {
		if e.MemberID == memberID && e.GuildID == guildID {
			return i
		}
	}
	return -1
}

func (q *ExpirationQueue) reportLocked() {
	metrics.ExpirationQueueSize.WithLabelValues(string(q.kind)).Set(float64(len(q.entries)))
}
