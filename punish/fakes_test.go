package punish

import (
	"context"
	"fmt"
	"modbot/model"
	"modbot/utils"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeStore struct {
	mu        sync.Mutex
	rows      []model.PunishmentRow
	nextID    int64
	writes    int
	createErr error
	findErr   error
}

func (f *fakeStore) FindAll(_ context.Context, kind model.Kind) ([]model.PunishmentRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []model.PunishmentRow
	for _, r := range f.rows {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) FindActive(_ context.Context, kind model.Kind, userID, serverID string) ([]model.PunishmentRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PunishmentRow
	for _, r := range f.rows {
		if r.Kind == kind && r.UserID == userID && r.ServerID == serverID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, row *model.PunishmentRow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	row.ID = f.nextID
	f.rows = append(f.rows, *row)
	f.writes++
	return row.ID, nil
}

func (f *fakeStore) Deactivate(_ context.Context, kind model.Kind, userID, serverID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i, r := range f.rows {
		if r.Kind == kind && r.UserID == userID && r.ServerID == serverID && r.Active {
			f.rows[i].Active = false
			n++
		}
	}
	if n > 0 {
		f.writes++
	}
	return n, nil
}

func (f *fakeStore) active(kind model.Kind, userID, serverID string) []model.PunishmentRow {
	rows, _ := f.FindActive(context.Background(), kind, userID, serverID)
	return rows
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeSettings map[string]string

func (f fakeSettings) GetSetting(_ context.Context, serverID, key string) (string, bool, error) {
	v, ok := f[serverID+"/"+key]
	return v, ok, nil
}

type fakePlatform struct {
	mu      sync.Mutex
	guilds  map[string]model.Guild
	members map[string]*model.Member
	bans    map[string]bool
	calls   []string
	dms     []Notice

	addRoleErr    error
	removeRoleErr error
	banErr        error
	unbanErr      error
	kickErr       error
	dmErr         error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		guilds:  map[string]model.Guild{"g1": {ID: "g1", Name: "Test Guild"}},
		members: make(map[string]*model.Member),
		bans:    make(map[string]bool),
	}
}

func (f *fakePlatform) join(m model.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[m.GuildID+"/"+m.ID] = &m
}

func (f *fakePlatform) leave(guildID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, guildID+"/"+userID)
}

func (f *fakePlatform) hasRole(guildID, userID, roleID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[guildID+"/"+userID]
	return ok && m.HasRole(roleID)
}

func (f *fakePlatform) banned(guildID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bans[guildID+"/"+userID]
}

func (f *fakePlatform) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlatform) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakePlatform) Guild(_ context.Context, guildID string) (model.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return model.Guild{}, errors.WithMessagef(ErrNotFound, "guild %s", guildID)
	}
	return g, nil
}

func (f *fakePlatform) Member(_ context.Context, guildID, userID string) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[guildID+"/"+userID]
	if !ok {
		return model.Member{}, errors.WithMessagef(ErrNotFound, "member %s", userID)
	}
	return *m, nil
}

func (f *fakePlatform) AddRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add_role:" + userID)
	if f.addRoleErr != nil {
		return f.addRoleErr
	}
	m, ok := f.members[guildID+"/"+userID]
	if !ok {
		return errors.WithMessagef(ErrNotFound, "member %s", userID)
	}
	if !m.HasRole(roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (f *fakePlatform) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove_role:" + userID)
	if f.removeRoleErr != nil {
		return f.removeRoleErr
	}
	m, ok := f.members[guildID+"/"+userID]
	if !ok {
		return errors.WithMessagef(ErrNotFound, "member %s", userID)
	}
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
	return nil
}

func (f *fakePlatform) Ban(_ context.Context, guildID, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ban:" + userID)
	if f.banErr != nil {
		return f.banErr
	}
	f.bans[guildID+"/"+userID] = true
	delete(f.members, guildID+"/"+userID)
	return nil
}

func (f *fakePlatform) Unban(_ context.Context, guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unban:" + userID)
	if f.unbanErr != nil {
		return f.unbanErr
	}
	if !f.bans[guildID+"/"+userID] {
		return errors.WithMessagef(ErrNotFound, "ban for %s", userID)
	}
	delete(f.bans, guildID+"/"+userID)
	return nil
}

func (f *fakePlatform) Kick(_ context.Context, guildID, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("kick:" + userID)
	if f.kickErr != nil {
		return f.kickErr
	}
	delete(f.members, guildID+"/"+userID)
	return nil
}

func (f *fakePlatform) SendDirectMessage(_ context.Context, userID string, notice Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("dm:" + userID)
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms = append(f.dms, notice)
	return nil
}

type fakeAudit struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeAudit) Log(_ context.Context, guildID, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, fmt.Sprintf("[%s] %s", guildID, message))
}

func (f *fakeAudit) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type harness struct {
	clock    *fakeClock
	store    *fakeStore
	platform *fakePlatform
	settings fakeSettings
	audit    *fakeAudit
	gate     *Gate
	deps     Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    newFakeClock(),
		store:    &fakeStore{},
		platform: newFakePlatform(),
		settings: fakeSettings{"g1/" + model.SettingMutedRole: "muted"},
		audit:    &fakeAudit{},
		gate:     NewGate(),
	}
	h.gate.Open()
	h.deps = Deps{
		Store:        h.store,
		Platform:     h.platform,
		Settings:     h.settings,
		Audit:        h.audit,
		Parser:       utils.NewExpirationParser(-5),
		Gate:         h.gate,
		Clock:        h.clock.Now,
		ReadyTimeout: 50 * time.Millisecond,
	}
	h.platform.join(alice)
	h.platform.join(mod)
	return h
}

var (
	alice = model.Member{ID: "u1", GuildID: "g1", Username: "alice"}
	bob   = model.Member{ID: "u2", GuildID: "g1", Username: "bob"}
	mod   = model.Member{ID: "m1", GuildID: "g1", Username: "moderator"}
)

// pausingSettings holds the first lookup after arm until release is closed.
type pausingSettings struct {
	Settings
	paused  atomic.Bool
	armed   chan struct{}
	entered chan struct{}
	release chan struct{}
}

func newPausingSettings(inner Settings) *pausingSettings {
	return &pausingSettings{
		Settings: inner,
		armed:    make(chan struct{}),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (p *pausingSettings) arm() {
	close(p.armed)
}

func (p *pausingSettings) GetSetting(ctx context.Context, serverID, key string) (string, bool, error) {
	select {
	case <-p.armed:
		if p.paused.CompareAndSwap(false, true) {
			close(p.entered)
			<-p.release
		}
	default:
	}
	return p.Settings.GetSetting(ctx, serverID, key)
}
