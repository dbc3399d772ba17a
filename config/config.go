package config

import (
	"modbot/model"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Load reads .env, the optional data/config.yaml and the environment, in
// increasing order of precedence.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg(".env file not found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("data")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("using config file")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*model.Config, error) {
	cfg := &model.Config{
		BotToken:                 v.GetString("BOT_TOKEN"),
		AppID:                    v.GetString("APP_ID"),
		DatabasePath:             v.GetString("DATABASE_PATH"),
		DisableCommandUnregister: v.GetBool("DISABLE_COMMAND_UNREGISTER"),
		Log: model.LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
		Scheduler: model.SchedulerConfig{
			ScanInterval:  v.GetDuration("EXPIRATION_SCAN_INTERVAL"),
			DrainInterval: v.GetDuration("UNDO_DRAIN_INTERVAL"),
			DrainBurst:    v.GetInt("UNDO_BURST"),
			MaxRetries:    v.GetInt("UNDO_MAX_RETRIES"),
			RetryBase:     v.GetDuration("UNDO_RETRY_BASE"),
			RetryMax:      v.GetDuration("UNDO_RETRY_MAX"),
		},
		Expiration: model.ExpirationConfig{
			OffsetHours: v.GetInt("TIMEZONE_OFFSET_HOURS"),
		},
		ReadyTimeout: v.GetDuration("READY_TIMEOUT"),
		MetricsAddr:  v.GetString("METRICS_ADDR"),
		GRPCAddr:     v.GetString("GRPC_ADDR"),
		ReportCron:   v.GetString("REPORT_CRON"),
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable not set")
	}
	if cfg.AppID == "" {
		log.Warn().Msg("APP_ID not set, commands will be registered for the session's application")
	}
	if cfg.Scheduler.ScanInterval <= 0 || cfg.Scheduler.DrainInterval <= 0 {
		return nil, errors.New("EXPIRATION_SCAN_INTERVAL and UNDO_DRAIN_INTERVAL must be positive")
	}
	if cfg.Expiration.OffsetHours < -12 || cfg.Expiration.OffsetHours > 14 {
		return nil, errors.Errorf("TIMEZONE_OFFSET_HOURS %d out of range", cfg.Expiration.OffsetHours)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_PATH", "data/moderation.db")
	v.SetDefault("DISABLE_COMMAND_UNREGISTER", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	v.SetDefault("EXPIRATION_SCAN_INTERVAL", "1s")
	v.SetDefault("UNDO_DRAIN_INTERVAL", "3s")
	v.SetDefault("UNDO_BURST", 1)
	v.SetDefault("UNDO_MAX_RETRIES", 3)
	v.SetDefault("UNDO_RETRY_BASE", "5s")
	v.SetDefault("UNDO_RETRY_MAX", "5m")

	v.SetDefault("TIMEZONE_OFFSET_HOURS", -5)
	v.SetDefault("READY_TIMEOUT", "30s")
	v.SetDefault("METRICS_ADDR", ":2112")
	v.SetDefault("GRPC_ADDR", ":50051")
	v.SetDefault("REPORT_CRON", "0 5,13,21 * * *")
}
