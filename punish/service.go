package punish

import (
	"context"
	"database/sql"
	"fmt"
	"modbot/metrics"
	"modbot/model"
	"modbot/utils"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultReadyTimeout = 30 * time.Second

// Deps are the collaborators shared by every moderation service.
type Deps struct {
	Store    Store
	Platform Platform
	Settings Settings
	Audit    AuditLog
	Parser   DateParser
	Gate     *Gate
	Clock    Clock
	// ReadyTimeout bounds how long a command waits for startup reconciliation.
	ReadyTimeout time.Duration
}

type service struct {
	kind     model.Kind
	store    Store
	platform Platform
	settings Settings
	audit    AuditLog
	parser   DateParser
	gate     *Gate
	now      Clock
	timeout  time.Duration
	locks    *utils.KeyedMutex
	queue    *ExpirationQueue
}

func newService(kind model.Kind, d Deps) service {
	s := service{
		kind:     kind,
		store:    d.Store,
		platform: d.Platform,
		settings: d.Settings,
		audit:    d.Audit,
		parser:   d.Parser,
		gate:     d.Gate,
		now:      d.Clock,
		timeout:  d.ReadyTimeout,
		locks:    &utils.KeyedMutex{},
	}
	if kind.Expires() {
		s.queue = NewExpirationQueue(kind)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.gate == nil {
		s.gate = NewGate()
		s.gate.Open()
	}
	if s.timeout <= 0 {
		s.timeout = defaultReadyTimeout
	}
	return s
}

// Kind returns the punishment kind handled by the service.
func (s *service) Kind() model.Kind {
	return s.kind
}

// Queue returns the service's expiration queue, nil for kinds that never expire.
func (s *service) Queue() *ExpirationQueue {
	return s.queue
}

func (s *service) awaitReady(ctx context.Context) error {
	if s.gate.Ready() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gate.Wait(ctx)
}

func (s *service) lock(memberID, guildID string) func() {
	return s.locks.Lock(guildID + ":" + memberID)
}

func (s *service) log(ctx context.Context, guildID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Info().Str("kind", string(s.kind)).Str("guild", guildID).Msg(msg)
	if s.audit != nil {
		s.audit.Log(ctx, guildID, msg)
	}
}

func (s *service) platformFailed(op string) {
	metrics.PlatformFailures.WithLabelValues(string(s.kind), op).Inc()
}

// notify sends a direct message. Members with closed DMs are common, so failures are only logged.
func (s *service) notify(ctx context.Context, member model.Member, notice Notice) {
	if err := s.platform.SendDirectMessage(ctx, member.ID, notice); err != nil {
		log.Warn().Err(err).Str("user", member.ID).Str("kind", string(s.kind)).Msg("could not send punishment notice")
	}
}

// override clears any active punishment of this kind for the member so that a
// new one can take its place. Called with the member lock held.
func (s *service) override(ctx context.Context, member model.Member) error {
	n, err := s.store.Deactivate(ctx, s.kind, member.ID, member.GuildID)
	if err != nil {
		return errors.WithMessage(ErrStore, err.Error())
	}
	removed := false
	if s.queue != nil {
		removed = s.queue.Remove(member.ID, member.GuildID)
	}
	if n > 0 || removed {
		s.log(ctx, member.GuildID, "%s currently has an active %s - overriding it", member.DisplayText(), s.kind)
	}
	return nil
}

// record writes the punishment row. clearAt is ignored for kinds that never expire.
func (s *service) record(ctx context.Context, target, issuer model.Member, reason string, clearAt time.Time) (*model.PunishmentRow, error) {
	row := &model.PunishmentRow{
		UserID:       target.ID,
		UserName:     target.Username,
		PunisherID:   issuer.ID,
		PunisherName: issuer.Username,
		Reason:       sql.NullString{String: reason, Valid: reason != ""},
		ServerID:     target.GuildID,
		Kind:         s.kind,
		CreatedAt:    s.now().UnixMilli(),
	}
	if s.kind.Expires() {
		row.Active = true
		row.ClearTime = sql.NullInt64{Int64: clearAt.UnixMilli(), Valid: true}
	}
	if _, err := s.store.Create(ctx, row); err != nil {
		return nil, errors.WithMessage(ErrStore, err.Error())
	}
	return row, nil
}

// clearRecords deactivates the member's active rows and drops the queue entry.
// It reports whether anything was active. No write happens when nothing is.
func (s *service) clearRecords(ctx context.Context, memberID, guildID string) (bool, error) {
	removed := s.queue.Remove(memberID, guildID)
	active, err := s.store.FindActive(ctx, s.kind, memberID, guildID)
	if err != nil {
		return removed, errors.WithMessage(ErrStore, err.Error())
	}
	if len(active) == 0 {
		return removed, nil
	}
	if _, err := s.store.Deactivate(ctx, s.kind, memberID, guildID); err != nil {
		return true, errors.WithMessage(ErrStore, err.Error())
	}
	return true, nil
}

// reconcile rebuilds the expiration queue from the store. Rows already past
// their clear time are reversed immediately with reverse, which is called with
// the member lock held.
func (s *service) reconcile(ctx context.Context, now time.Time, reverse func(ctx context.Context, memberID, guildID, trigger string) (string, error)) (ReconcileResult, error) {
	res := ReconcileResult{Kind: s.kind}
	rows, err := s.store.FindAll(ctx, s.kind)
	if err != nil {
		return res, errors.WithMessage(ErrStore, err.Error())
	}

	// Legacy data can hold several active rows per member; the latest clear time wins.
	latest := make(map[string]model.ActivePunishment)
	var order []string
	for _, row := range rows {
		if !row.Active {
			continue
		}
		if !row.ClearTime.Valid {
			log.Warn().Int64("id", row.ID).Str("kind", string(s.kind)).Msg("active punishment without clear time, skipping")
			continue
		}
		entry := model.ActiveFromRow(row)
		key := entry.GuildID + ":" + entry.MemberID
		prev, seen := latest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || entry.ClearTime > prev.ClearTime {
			latest[key] = entry
		}
	}

	for _, key := range order {
		entry := latest[key]
		if !entry.Due(now) {
			if !s.queue.Has(entry.MemberID, entry.GuildID) {
				s.queue.Add(entry)
				res.Restored++
			}
			continue
		}

		unlock := s.lock(entry.MemberID, entry.GuildID)
		msg, err := reverse(ctx, entry.MemberID, entry.GuildID, "startup")
		unlock()
		if err != nil {
			res.Failed++
			log.Warn().Err(err).Str("kind", string(s.kind)).Str("user", entry.MemberID).Str("guild", entry.GuildID).
				Msg("could not reverse expired punishment at startup, it stays active")
			continue
		}
		res.Expired++
		log.Info().Str("kind", string(s.kind)).Msg(msg)
	}
	return res, nil
}

// expire reverses a due queue entry unless a newer punishment has replaced it.
func (s *service) expire(ctx context.Context, entry model.ActivePunishment, reverse func(ctx context.Context, memberID, guildID, trigger string) (string, error)) error {
	unlock := s.lock(entry.MemberID, entry.GuildID)
	defer unlock()

	if s.queue.Has(entry.MemberID, entry.GuildID) {
		log.Debug().Str("kind", string(s.kind)).Str("user", entry.MemberID).Str("guild", entry.GuildID).
			Msg("expired entry was replaced by a newer punishment, dropping")
		return nil
	}
	_, err := reverse(ctx, entry.MemberID, entry.GuildID, "expired")
	return err
}

func reversed(kind model.Kind, trigger string) {
	metrics.PunishmentsReversed.WithLabelValues(string(kind), trigger).Inc()
}
