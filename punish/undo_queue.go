package punish

import (
	"math/rand"
	"modbot/metrics"
	"modbot/model"
	"sync"
	"time"
)

// UndoEntry is an expired punishment waiting to be reversed.
type UndoEntry struct {
	model.ActivePunishment
	// Attempts counts the failed reversals so far.
	Attempts int
	// NotBefore delays a retry; the zero value means immediately.
	NotBefore time.Time
}

// UndoQueue is a LIFO stack of pending reversals shared by every punishment kind.
type UndoQueue struct {
	mu      sync.Mutex
	entries []UndoEntry
}

// NewUndoQueue creates an empty queue.
func NewUndoQueue() *UndoQueue {
	return &UndoQueue{}
}

// Push places e on top of the stack.
func (q *UndoQueue) Push(e UndoEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
	metrics.UndoQueueSize.Set(float64(len(q.entries)))
}

// Pop removes and returns the newest entry that is eligible at now.
// Entries still waiting on a retry delay are skipped.
func (q *UndoQueue) Pop(now time.Time) (UndoEntry, bool) {
	return q.PopIf(now, nil)
}

// PopIf is Pop gated by allow, which is consulted only once an eligible entry
// is found. When allow returns false the stack is left exactly as it was.
func (q *UndoQueue) PopIf(now time.Time, allow func() bool) (UndoEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := len(q.entries) - 1; i >= 0; i-- {
		e := q.entries[i]
		if e.NotBefore.After(now) {
			continue
		}
		if allow != nil && !allow() {
			return UndoEntry{}, false
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		metrics.UndoQueueSize.Set(float64(len(q.entries)))
		return e, true
	}
	return UndoEntry{}, false
}

// Len returns the number of pending reversals.
func (q *UndoQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the stack, bottom first.
func (q *UndoQueue) Snapshot() []UndoEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]UndoEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// retryDelay returns the wait before the given attempt: base doubled per
// previous attempt, capped at max, plus up to 25% jitter.
func retryDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}
	if delay <= 0 {
		return 0
	}
	return delay + time.Duration(rand.Int63n(int64(delay)/4+1))
}
