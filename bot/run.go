package bot

import (
	"context"
	"modbot/commands"
	"modbot/metrics"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Run opens the gateway, registers commands and runs every background worker
// until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return errors.Wrap(err, "error opening connection")
	}
	defer b.Close()

	if err := b.RegisterCommands(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Reconciler.Run(ctx)
		log.Info().Msg("moderation services ready")
		return nil
	})
	g.Go(func() error { return b.Scheduler.Run(ctx) })
	g.Go(func() error { return b.runReports(ctx) })
	if b.Config.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(ctx, b.Config.MetricsAddr) })
	}
	if b.Config.GRPCAddr != "" {
		g.Go(func() error { return b.serveHealth(ctx, b.Config.GRPCAddr) })
	}

	log.Info().Msg("Bot is now running. Press CTRL-C to exit.")
	return g.Wait()
}

// RegisterCommands overwrites the application's global commands.
func (b *Bot) RegisterCommands() error {
	appID := b.Config.AppID
	if appID == "" && b.Session.State != nil && b.Session.State.User != nil {
		appID = b.Session.State.User.ID
	}
	cmds := commands.GenerateCommands()
	log.Info().Int("count", len(cmds)).Msg("registering commands")
	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, "", cmds)
	if err != nil {
		return errors.Wrap(err, "cannot register commands")
	}
	b.RegisteredCommands = registered
	return nil
}

// Close unregisters commands unless disabled and closes the gateway.
func (b *Bot) Close() {
	log.Info().Msg("Gracefully shutting down.")
	if !b.Config.DisableCommandUnregister {
		for _, cmd := range b.RegisteredCommands {
			if err := b.Session.ApplicationCommandDelete(cmd.ApplicationID, "", cmd.ID); err != nil {
				log.Warn().Err(err).Str("command", cmd.Name).Msg("cannot delete command")
			}
		}
	}
	if err := b.Session.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing session")
	}
}
