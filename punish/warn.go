package punish

import (
	"context"
	"fmt"
	"modbot/metrics"
	"modbot/model"
	"time"
)

// WarnService records warnings and tells the member about them.
type WarnService struct {
	service
}

// NewWarnService creates a warn service. Warnings never expire, so it has no queue.
func NewWarnService(d Deps) *WarnService {
	return &WarnService{service: newService(model.KindWarn, d)}
}

// Warn records a warning for target.
func (s *WarnService) Warn(ctx context.Context, target, issuer model.Member, reason string) (string, error) {
	if err := s.awaitReady(ctx); err != nil {
		return "Moderation is still starting up, try again in a moment", err
	}

	name := target.DisplayText()
	if _, err := s.record(ctx, target, issuer, reason, time.Time{}); err != nil {
		return fmt.Sprintf("Unable to warn %s", name), err
	}
	metrics.PunishmentsApplied.WithLabelValues(string(model.KindWarn)).Inc()

	s.notify(ctx, target, Notice{
		Title:       "You have been warned",
		Description: fmt.Sprintf("You have been warned for _%s_ by **%s**", reason, issuer.Username),
	})

	msg := fmt.Sprintf("Warned user %s", name)
	s.log(ctx, target.GuildID, "%s for _%s_ by %s", msg, reason, issuer.DisplayText())
	return msg, nil
}
