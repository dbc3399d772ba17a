package punish

import (
	"context"
	"fmt"
	"modbot/metrics"
	"modbot/model"
	"time"

	"github.com/pkg/errors"
)

// KickService removes members from a guild and records it.
type KickService struct {
	service
}

// NewKickService creates a kick service. Kicks never expire, so it has no queue.
func NewKickService(d Deps) *KickService {
	return &KickService{service: newService(model.KindKick, d)}
}

// Kick removes target from the guild. The record is written only after the kick succeeds.
func (s *KickService) Kick(ctx context.Context, target, issuer model.Member, reason string) (string, error) {
	if err := s.awaitReady(ctx); err != nil {
		return "Moderation is still starting up, try again in a moment", err
	}
	unlock := s.lock(target.ID, target.GuildID)
	defer unlock()

	name := target.DisplayText()
	s.log(ctx, target.GuildID, "Kicking user %s for _%s_ by %s", name, reason, issuer.DisplayText())

	guildName := "the"
	if g, err := s.platform.Guild(ctx, target.GuildID); err == nil && g.Name != "" {
		guildName = "`" + g.Name + "`"
	}
	s.notify(ctx, target, Notice{
		Title:       "You have been kicked",
		Description: fmt.Sprintf("You have been kicked from %s discord for _%s_ by **%s**", guildName, reason, issuer.Username),
	})

	if err := s.platform.Kick(ctx, target.GuildID, target.ID, reason); err != nil {
		s.platformFailed("kick")
		msg := fmt.Sprintf("Unable to kick %s", name)
		s.log(ctx, target.GuildID, "%s", msg)
		return msg, errors.WithMessage(ErrPlatformEffect, err.Error())
	}

	if _, err := s.record(ctx, target, issuer, reason, time.Time{}); err != nil {
		return fmt.Sprintf("Kicked %s but could not record it", name), err
	}
	metrics.PunishmentsApplied.WithLabelValues(string(model.KindKick)).Inc()

	msg := fmt.Sprintf("Kicked user %s", name)
	s.log(ctx, target.GuildID, "%s", msg)
	return msg, nil
}
