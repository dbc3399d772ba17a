package punish

import (
	"context"
	"database/sql"
	"modbot/model"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedulerConfig() model.SchedulerConfig {
	return model.SchedulerConfig{
		ScanInterval:  time.Second,
		DrainInterval: 3 * time.Second,
		DrainBurst:    1,
		MaxRetries:    2,
		RetryBase:     5 * time.Second,
		RetryMax:      time.Minute,
	}
}

func TestScheduler_MuteExpiresEndToEnd(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	sched := NewScheduler(testSchedulerConfig(), h.gate, NewUndoQueue(), h.audit, h.clock.Now, mute)
	ctx := context.Background()

	_, err := mute.Mute(ctx, alice, mod, "spam", "1h")
	require.NoError(t, err)

	assert.Zero(t, sched.ScanOnce(h.clock.Now()))
	h.clock.Advance(time.Hour)
	assert.Equal(t, 1, sched.ScanOnce(h.clock.Now()))
	assert.Zero(t, mute.Queue().Len())

	assert.Equal(t, 1, sched.DrainOnce(ctx, h.clock.Now()))
	assert.False(t, h.platform.hasRole("g1", "u1", "muted"))
	assert.Empty(t, h.store.active(model.KindMute, "u1", "g1"))
}

func TestScheduler_DrainIsRateLimited(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	undo := NewUndoQueue()
	sched := NewScheduler(testSchedulerConfig(), h.gate, undo, h.audit, h.clock.Now, mute)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		undo.Push(UndoEntry{ActivePunishment: entryAt(id, 0)})
	}

	now := h.clock.Now()
	assert.Equal(t, 1, sched.DrainOnce(ctx, now))
	assert.Equal(t, 2, undo.Len())
	assert.Zero(t, sched.DrainOnce(ctx, now.Add(time.Second)))
	assert.Equal(t, 1, sched.DrainOnce(ctx, now.Add(3*time.Second)))
	assert.Equal(t, 1, sched.DrainOnce(ctx, now.Add(6*time.Second)))
	assert.Zero(t, undo.Len())
}

func TestScheduler_DrainToleratesUnevenTicks(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	undo := NewUndoQueue()
	sched := NewScheduler(testSchedulerConfig(), h.gate, undo, h.audit, h.clock.Now, mute)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		undo.Push(UndoEntry{ActivePunishment: entryAt(id, 0)})
	}

	now := h.clock.Now()
	assert.Equal(t, 1, sched.DrainOnce(ctx, now.Add(2*time.Millisecond)))
	assert.Equal(t, 1, sched.DrainOnce(ctx, now.Add(3*time.Second+time.Millisecond)), "a tick that wakes early still drains")
	assert.Equal(t, 1, sched.DrainOnce(ctx, now.Add(6*time.Second-5*time.Millisecond)))
	assert.Zero(t, undo.Len())
}

func TestScheduler_RateLimitedDrainKeepsStackOrder(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	undo := NewUndoQueue()
	sched := NewScheduler(testSchedulerConfig(), h.gate, undo, h.audit, h.clock.Now, mute)
	ctx := context.Background()
	now := h.clock.Now()

	undo.Push(UndoEntry{ActivePunishment: entryAt("a", 0)})
	undo.Push(UndoEntry{ActivePunishment: entryAt("b", 0)})
	undo.Push(UndoEntry{ActivePunishment: entryAt("c", 0), NotBefore: now.Add(time.Hour)})
	undo.Push(UndoEntry{ActivePunishment: entryAt("d", 0)})

	require.Equal(t, 1, sched.DrainOnce(ctx, now))
	assert.Zero(t, sched.DrainOnce(ctx, now.Add(time.Second)))

	var order []string
	for _, e := range undo.Snapshot() {
		order = append(order, e.MemberID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestScheduler_RetriesThenDeadLetters(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	undo := NewUndoQueue()
	cfg := testSchedulerConfig()
	cfg.DrainBurst = 10
	sched := NewScheduler(cfg, h.gate, undo, h.audit, h.clock.Now, mute)
	ctx := context.Background()

	_, err := mute.Mute(ctx, alice, mod, "spam", "1h")
	require.NoError(t, err)
	h.platform.removeRoleErr = errors.New("discord is down")

	now := h.clock.Now().Add(time.Hour)
	require.Equal(t, 1, sched.ScanOnce(now))

	require.Equal(t, 1, sched.DrainOnce(ctx, now))
	pending := undo.Snapshot()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.True(t, pending[0].NotBefore.After(now))
	assert.Zero(t, sched.DrainOnce(ctx, now), "retry waits for its delay")

	now = now.Add(time.Minute)
	require.Equal(t, 1, sched.DrainOnce(ctx, now))
	now = now.Add(2 * time.Minute)
	require.Equal(t, 1, sched.DrainOnce(ctx, now))

	assert.Zero(t, undo.Len())
	assert.Equal(t, int64(1), sched.Dropped())
	assert.Len(t, h.store.active(model.KindMute, "u1", "g1"), 1, "record stays active for the next startup")
	assert.Contains(t, h.audit.all(), "[g1] Failed to automatically lift mute for u1 after 3 attempts. The record stays active and will be retried on next startup")
}

func TestScheduler_RetrySucceedsAfterTransientFailure(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	undo := NewUndoQueue()
	sched := NewScheduler(testSchedulerConfig(), h.gate, undo, h.audit, h.clock.Now, mute)
	ctx := context.Background()

	_, err := mute.Mute(ctx, alice, mod, "spam", "1h")
	require.NoError(t, err)
	h.platform.removeRoleErr = errors.New("discord is down")

	now := h.clock.Now().Add(time.Hour)
	sched.ScanOnce(now)
	sched.DrainOnce(ctx, now)
	require.Equal(t, 1, undo.Len())

	h.platform.removeRoleErr = nil
	now = now.Add(time.Minute)
	require.Equal(t, 1, sched.DrainOnce(ctx, now))
	assert.Zero(t, undo.Len())
	assert.False(t, h.platform.hasRole("g1", "u1", "muted"))
	assert.Empty(t, h.store.active(model.KindMute, "u1", "g1"))
}

func TestScheduler_DropsEntryReplacedByNewPunishment(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	undo := NewUndoQueue()
	sched := NewScheduler(testSchedulerConfig(), h.gate, undo, h.audit, h.clock.Now, mute)
	ctx := context.Background()

	_, err := mute.Mute(ctx, alice, mod, "spam", "1h")
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	require.Equal(t, 1, sched.ScanOnce(h.clock.Now()))

	_, err = mute.Mute(ctx, alice, mod, "again", "2h")
	require.NoError(t, err)

	require.Equal(t, 1, sched.DrainOnce(ctx, h.clock.Now()))
	assert.True(t, h.platform.hasRole("g1", "u1", "muted"), "new mute is not lifted by the old expiry")
	assert.Len(t, h.store.active(model.KindMute, "u1", "g1"), 1)
	assert.True(t, mute.Queue().Has("u1", "g1"))
}

func TestScheduler_HandlesBothKinds(t *testing.T) {
	h := newHarness(t)
	mute := NewMuteService(h.deps)
	ban := NewBanService(h.deps)
	cfg := testSchedulerConfig()
	cfg.DrainBurst = 5
	sched := NewScheduler(cfg, h.gate, NewUndoQueue(), h.audit, h.clock.Now, mute, ban)
	ctx := context.Background()

	h.platform.join(bob)
	_, err := mute.Mute(ctx, alice, mod, "spam", "1h")
	require.NoError(t, err)
	_, err = ban.Ban(ctx, bob, mod, "raid", "1h")
	require.NoError(t, err)

	now := h.clock.Now().Add(time.Hour)
	require.Equal(t, 2, sched.ScanOnce(now))
	require.Equal(t, 2, sched.DrainOnce(ctx, now))
	assert.False(t, h.platform.banned("g1", "u2"))
	assert.Empty(t, h.store.active(model.KindBan, "u2", "g1"))
	assert.Empty(t, h.store.active(model.KindMute, "u1", "g1"))
}

func TestScheduler_RunWaitsForGate(t *testing.T) {
	h := newHarness(t)
	gate := NewGate()
	h.deps.Gate = gate
	mute := NewMuteService(h.deps)
	cfg := testSchedulerConfig()
	cfg.ScanInterval = 5 * time.Millisecond
	cfg.DrainInterval = 5 * time.Millisecond
	sched := NewScheduler(cfg, gate, NewUndoQueue(), h.audit, h.clock.Now, mute)

	mute.Queue().Add(entryAt("u1", h.clock.Now().UnixMilli()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, mute.Queue().Len(), "nothing is processed before the gate opens")

	gate.Open()
	assert.Eventually(t, func() bool { return mute.Queue().Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestReconciler_RestoresQueueAndExpiresOverdue(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()
	h.platform.join(bob)
	h.platform.members["g1/u1"].Roles = []string{"muted"}

	overdue := model.PunishmentRow{UserID: "u1", ServerID: "g1", Kind: model.KindMute, Active: true,
		ClearTime: sql.NullInt64{Int64: now.Add(-time.Second).UnixMilli(), Valid: true}}
	future := model.PunishmentRow{UserID: "u2", ServerID: "g1", Kind: model.KindMute, Active: true,
		ClearTime: sql.NullInt64{Int64: now.Add(100 * time.Second).UnixMilli(), Valid: true}}
	finished := model.PunishmentRow{UserID: "u3", ServerID: "g1", Kind: model.KindMute, Active: false,
		ClearTime: sql.NullInt64{Int64: now.Add(100 * time.Second).UnixMilli(), Valid: true}}
	for _, r := range []model.PunishmentRow{overdue, future, finished} {
		r := r
		_, err := h.store.Create(context.Background(), &r)
		require.NoError(t, err)
	}

	gate := NewGate()
	h.deps.Gate = gate
	mute := NewMuteService(h.deps)
	ban := NewBanService(h.deps)
	results := NewReconciler(gate, mute, ban).Run(context.Background())

	assert.True(t, gate.Ready())
	require.Len(t, results, 2)
	assert.Equal(t, ReconcileResult{Kind: model.KindMute, Restored: 1, Expired: 1}, results[0])
	assert.Equal(t, ReconcileResult{Kind: model.KindBan}, results[1])

	assert.Empty(t, h.store.active(model.KindMute, "u1", "g1"))
	assert.False(t, h.platform.hasRole("g1", "u1", "muted"))
	assert.True(t, mute.Queue().Has("u2", "g1"))
	assert.False(t, mute.Queue().Has("u3", "g1"))
	assert.Equal(t, 1, mute.Queue().Len())
}

func TestReconciler_LiftsOverdueBan(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()
	h.platform.bans["g1/u2"] = true
	row := model.PunishmentRow{UserID: "u2", ServerID: "g1", Kind: model.KindBan, Active: true,
		ClearTime: sql.NullInt64{Int64: now.Add(-time.Minute).UnixMilli(), Valid: true}}
	_, err := h.store.Create(context.Background(), &row)
	require.NoError(t, err)

	gate := NewGate()
	h.deps.Gate = gate
	ban := NewBanService(h.deps)
	results := NewReconciler(gate, ban).Run(context.Background())

	assert.True(t, gate.Ready())
	assert.Equal(t, ReconcileResult{Kind: model.KindBan, Expired: 1}, results[0])
	assert.False(t, h.platform.banned("g1", "u2"))
	assert.Empty(t, h.store.active(model.KindBan, "u2", "g1"))
	assert.Zero(t, ban.Queue().Len())
}

func TestReconciler_GuildUnavailableLeavesRowActive(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()
	row := model.PunishmentRow{UserID: "u1", ServerID: "gone", Kind: model.KindBan, Active: true,
		ClearTime: sql.NullInt64{Int64: now.Add(-time.Minute).UnixMilli(), Valid: true}}
	_, err := h.store.Create(context.Background(), &row)
	require.NoError(t, err)

	gate := NewGate()
	h.deps.Gate = gate
	ban := NewBanService(h.deps)
	results := NewReconciler(gate, ban).Run(context.Background())

	assert.True(t, gate.Ready())
	assert.Equal(t, 1, results[0].Failed)
	assert.Len(t, h.store.active(model.KindBan, "u1", "gone"), 1)
	assert.Zero(t, ban.Queue().Len())
}

func TestReconciler_StoreFailureStillOpensGate(t *testing.T) {
	h := newHarness(t)
	h.store.findErr = errors.New("database is locked")
	gate := NewGate()
	h.deps.Gate = gate

	results := NewReconciler(gate, NewMuteService(h.deps)).Run(context.Background())
	assert.True(t, gate.Ready())
	assert.Len(t, results, 1)
}
