package punish

import (
	"context"
	"fmt"
	"modbot/metrics"
	"modbot/model"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// BanService applies and lifts time-bound guild bans.
type BanService struct {
	service
}

// NewBanService creates a ban service with an empty expiration queue.
func NewBanService(d Deps) *BanService {
	return &BanService{service: newService(model.KindBan, d)}
}

// Ban removes target from the guild until the time described by expiration.
// The member is messaged before the ban, while a shared guild still allows it.
func (s *BanService) Ban(ctx context.Context, target, issuer model.Member, reason, expiration string) (string, error) {
	if err := s.awaitReady(ctx); err != nil {
		return "Moderation is still starting up, try again in a moment", err
	}
	unlock := s.lock(target.ID, target.GuildID)
	defer unlock()

	name := target.DisplayText()
	s.log(ctx, target.GuildID, "Banning user %s for _%s_ until %s by %s", name, reason, expiration, issuer.DisplayText())
	clearAt, ok := s.parser.Parse(expiration, s.now())
	if !ok {
		msg := fmt.Sprintf("Cannot parse passed in date, cannot ban %s", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, errors.WithMessagef(ErrUnparseableExpiration, "%q", expiration)
	}

	if err := s.override(ctx, target); err != nil {
		return fmt.Sprintf("Unable to ban %s, could not clear the previous ban", name), err
	}

	guildName := "the"
	if g, err := s.platform.Guild(ctx, target.GuildID); err == nil && g.Name != "" {
		guildName = "`" + g.Name + "`"
	}
	until := s.parser.Format(clearAt)
	s.notify(ctx, target, Notice{
		Title:       "You have been banned",
		Description: fmt.Sprintf("You have been banned from %s discord for _%s_ until %s by **%s**", guildName, reason, until, issuer.Username),
	})

	if err := s.platform.Ban(ctx, target.GuildID, target.ID, reason); err != nil {
		s.platformFailed("ban")
		s.rollback(ctx, target)
		msg := fmt.Sprintf("Unable to ban %s. Removing ban as a precaution", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, errors.WithMessage(ErrPlatformEffect, err.Error())
	}

	if _, err := s.record(ctx, target, issuer, reason, clearAt); err != nil {
		s.rollback(ctx, target)
		msg := fmt.Sprintf("Unable to ban %s. Removing ban as a precaution", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, err
	}

	s.queue.Add(model.ActivePunishment{
		Kind:      model.KindBan,
		MemberID:  target.ID,
		GuildID:   target.GuildID,
		ClearTime: clearAt.UnixMilli(),
	})
	metrics.PunishmentsApplied.WithLabelValues(string(model.KindBan)).Inc()

	msg := fmt.Sprintf("User %s banned until %s", name, until)
	s.log(ctx, target.GuildID, "%s", msg)
	return msg, nil
}

func (s *BanService) rollback(ctx context.Context, target model.Member) {
	if err := s.platform.Unban(ctx, target.GuildID, target.ID); err != nil && !errors.Is(err, ErrNotFound) {
		log.Error().Err(err).Str("user", target.ID).Str("guild", target.GuildID).Msg("failed to roll back ban")
	}
}

// Unban lifts the member's ban. It succeeds without error when no ban exists.
func (s *BanService) Unban(ctx context.Context, memberID, guildID string) (string, error) {
	if err := s.awaitReady(ctx); err != nil {
		return "Moderation is still starting up, try again in a moment", err
	}
	unlock := s.lock(memberID, guildID)
	defer unlock()
	return s.unban(ctx, memberID, guildID, "manual")
}

// Expire reverses a due entry from the expiration queue.
func (s *BanService) Expire(ctx context.Context, entry model.ActivePunishment) error {
	return s.expire(ctx, entry, s.unban)
}

// Reconcile restores the expiration queue from the store and lifts bans that expired while offline.
func (s *BanService) Reconcile(ctx context.Context) (ReconcileResult, error) {
	return s.reconcile(ctx, s.now(), s.unban)
}

func (s *BanService) unban(ctx context.Context, memberID, guildID, trigger string) (string, error) {
	if _, err := s.platform.Guild(ctx, guildID); err != nil {
		return fmt.Sprintf("Unable to unban %s", memberID), errors.WithMessagef(ErrGuildUnavailable, "guild %s: %v", guildID, err)
	}

	s.log(ctx, guildID, "Unbanning user %s.", memberID)
	if err := s.platform.Unban(ctx, guildID, memberID); err != nil && !errors.Is(err, ErrNotFound) {
		s.platformFailed("unban")
		msg := fmt.Sprintf("Unable to unban %s", memberID)
		s.log(ctx, guildID, "%s", msg)
		return msg, errors.WithMessage(ErrPlatformEffect, err.Error())
	}

	wasActive, err := s.clearRecords(ctx, memberID, guildID)
	if err != nil {
		return fmt.Sprintf("Unbanned %s but could not update the ban record", memberID), err
	}
	if !wasActive {
		return fmt.Sprintf("User %s is not banned", memberID), nil
	}
	reversed(model.KindBan, trigger)

	msg := fmt.Sprintf("Unbanned user %s", memberID)
	s.log(ctx, guildID, "%s", msg)
	return msg, nil
}
