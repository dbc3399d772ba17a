package bot

import (
	"context"
	"modbot/tasks"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const reportWindow = 24 * time.Hour

// runReports posts the punishment report on the configured cron schedule.
func (b *Bot) runReports(ctx context.Context) error {
	if b.Config.ReportCron == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(b.Config.ReportCron, func() {
		log.Info().Msg("Running punishment report...")
		tasks.PostPunishmentReports(ctx, b.Session, b.Punishments, b.Settings, reportWindow)
	})
	if err != nil {
		return errors.Wrapf(err, "invalid REPORT_CRON %q", b.Config.ReportCron)
	}

	c.Start()
	log.Info().Str("schedule", b.Config.ReportCron).Msg("punishment report scheduled")
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
