package punish

import (
	"context"
	"fmt"
	"modbot/metrics"
	"modbot/model"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MuteService applies and lifts mutes by toggling the guild's configured muted role.
type MuteService struct {
	service
}

// NewMuteService creates a mute service with an empty expiration queue.
func NewMuteService(d Deps) *MuteService {
	return &MuteService{service: newService(model.KindMute, d)}
}

func (s *MuteService) mutedRole(ctx context.Context, guildID string) (string, error) {
	roleID, ok, err := s.settings.GetSetting(ctx, guildID, model.SettingMutedRole)
	if err != nil {
		return "", errors.WithMessage(ErrStore, err.Error())
	}
	if !ok {
		return "", nil
	}
	return roleID, nil
}

// Mute applies the muted role to target until the time described by expiration.
// The returned message is suitable for the moderator who issued the command.
func (s *MuteService) Mute(ctx context.Context, target, issuer model.Member, reason, expiration string) (string, error) {
	if err := s.awaitReady(ctx); err != nil {
		return "Moderation is still starting up, try again in a moment", err
	}
	unlock := s.lock(target.ID, target.GuildID)
	defer unlock()

	name := target.DisplayText()
	roleID, err := s.mutedRole(ctx, target.GuildID)
	if err != nil {
		return fmt.Sprintf("Unable to mute %s, could not read settings", name), err
	}
	if roleID == "" {
		msg := fmt.Sprintf("Cannot mute %s, no mute role set", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, errors.WithMessagef(ErrMissingConfiguration, "%s not set for guild %s", model.SettingMutedRole, target.GuildID)
	}

	s.log(ctx, target.GuildID, "Muting user %s for _%s_ until %s by %s", name, reason, expiration, issuer.DisplayText())
	clearAt, ok := s.parser.Parse(expiration, s.now())
	if !ok {
		msg := fmt.Sprintf("Cannot parse passed in date, cannot mute %s", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, errors.WithMessagef(ErrUnparseableExpiration, "%q", expiration)
	}

	if err := s.override(ctx, target); err != nil {
		return fmt.Sprintf("Unable to mute %s, could not clear the previous mute", name), err
	}

	until := s.parser.Format(clearAt)
	s.notify(ctx, target, Notice{
		Title:       "You have been muted",
		Description: fmt.Sprintf("You have been muted for _%s_ until %s by **%s**", reason, until, issuer.Username),
	})

	if err := s.platform.AddRole(ctx, target.GuildID, target.ID, roleID); err != nil {
		s.platformFailed("add_role")
		s.rollback(ctx, target, roleID)
		msg := fmt.Sprintf("Unable to mute %s. Removing muted role as a precaution", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, errors.WithMessage(ErrPlatformEffect, err.Error())
	}

	if _, err := s.record(ctx, target, issuer, reason, clearAt); err != nil {
		s.rollback(ctx, target, roleID)
		msg := fmt.Sprintf("Unable to mute %s. Removing muted role as a precaution", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, err
	}

	s.queue.Add(model.ActivePunishment{
		Kind:      model.KindMute,
		MemberID:  target.ID,
		GuildID:   target.GuildID,
		ClearTime: clearAt.UnixMilli(),
	})
	metrics.PunishmentsApplied.WithLabelValues(string(model.KindMute)).Inc()

	msg := fmt.Sprintf("User %s muted until %s", name, until)
	s.log(ctx, target.GuildID, "%s", msg)
	return msg, nil
}

func (s *MuteService) rollback(ctx context.Context, target model.Member, roleID string) {
	if err := s.platform.RemoveRole(ctx, target.GuildID, target.ID, roleID); err != nil && !errors.Is(err, ErrNotFound) {
		log.Error().Err(err).Str("user", target.ID).Str("guild", target.GuildID).Msg("failed to roll back muted role")
	}
}

// Unmute lifts the member's mute. It succeeds without error when the member
// is not muted or has left the guild.
func (s *MuteService) Unmute(ctx context.Context, memberID, guildID string) (string, error) {
	if err := s.awaitReady(ctx); err != nil {
		return "Moderation is still starting up, try again in a moment", err
	}
	unlock := s.lock(memberID, guildID)
	defer unlock()
	return s.unmute(ctx, memberID, guildID, "manual")
}

// Expire reverses a due entry from the expiration queue.
func (s *MuteService) Expire(ctx context.Context, entry model.ActivePunishment) error {
	return s.expire(ctx, entry, s.unmute)
}

// Reconcile restores the expiration queue from the store and lifts mutes that expired while offline.
func (s *MuteService) Reconcile(ctx context.Context) (ReconcileResult, error) {
	return s.reconcile(ctx, s.now(), s.unmute)
}

func (s *MuteService) unmute(ctx context.Context, memberID, guildID, trigger string) (string, error) {
	if _, err := s.platform.Guild(ctx, guildID); err != nil {
		return fmt.Sprintf("Unable to unmute %s", memberID), errors.WithMessagef(ErrGuildUnavailable, "guild %s: %v", guildID, err)
	}
	roleID, err := s.mutedRole(ctx, guildID)
	if err != nil {
		return fmt.Sprintf("Unable to unmute %s", memberID), err
	}

	name := memberID
	present := true
	member, err := s.platform.Member(ctx, guildID, memberID)
	switch {
	case errors.Is(err, ErrNotFound):
		present = false
	case err != nil:
		s.platformFailed("get_member")
		return fmt.Sprintf("Unable to unmute %s", memberID), errors.WithMessage(ErrPlatformEffect, err.Error())
	default:
		name = member.DisplayText()
	}

	s.log(ctx, guildID, "Unmuting user %s.", name)
	if present && roleID != "" {
		if err := s.platform.RemoveRole(ctx, guildID, memberID, roleID); err != nil && !errors.Is(err, ErrNotFound) {
			s.platformFailed("remove_role")
			msg := fmt.Sprintf("Unable to unmute %s", name)
			s.log(ctx, guildID, "%s", msg)
			return msg, errors.WithMessage(ErrPlatformEffect, err.Error())
		}
	}

	wasActive, err := s.clearRecords(ctx, memberID, guildID)
	if err != nil {
		return fmt.Sprintf("Unmuted %s but could not update the mute record", name), err
	}
	if !wasActive {
		return fmt.Sprintf("User %s is not muted", name), nil
	}
	reversed(model.KindMute, trigger)

	msg := fmt.Sprintf("Unmuted user %s", name)
	if !present {
		msg = fmt.Sprintf("User %s is no longer in the server, cleared their mute", name)
	}
	s.log(ctx, guildID, "%s", msg)
	return msg, nil
}

// HandleRejoin re-applies the muted role to a member who left and rejoined
// while their mute was still active.
func (s *MuteService) HandleRejoin(ctx context.Context, member model.Member) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	unlock := s.lock(member.ID, member.GuildID)
	defer unlock()

	if !s.queue.Has(member.ID, member.GuildID) {
		return nil
	}
	roleID, err := s.mutedRole(ctx, member.GuildID)
	if err != nil || roleID == "" {
		return err
	}

	s.log(ctx, member.GuildID, "%s has rejoined with a current mute, re-muting", member.DisplayText())
	if err := s.platform.AddRole(ctx, member.GuildID, member.ID, roleID); err != nil {
		s.platformFailed("add_role")
		return errors.WithMessage(ErrPlatformEffect, err.Error())
	}
	return nil
}
