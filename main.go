package main

import (
	"context"
	"modbot/bot"
	"modbot/config"
	"modbot/handlers"
	"modbot/utils"
	"modbot/utils/database"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := utils.SetupLogger(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("Error setting up logger")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), os.ModePerm); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}
	db, err := database.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	defer db.Close()

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating bot")
	}
	handlers.Register(b)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
	}
}
