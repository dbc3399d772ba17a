package model

import "time"

// Config 存储应用程序的配置
type Config struct {
	BotToken                 string
	AppID                    string
	DatabasePath             string
	DisableCommandUnregister bool

	Log        LogConfig
	Scheduler  SchedulerConfig
	Expiration ExpirationConfig

	ReadyTimeout time.Duration
	MetricsAddr  string
	GRPCAddr     string
	ReportCron   string
}

// LogConfig controls process logging.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SchedulerConfig controls the expiration scan and the undo drain.
type SchedulerConfig struct {
	ScanInterval  time.Duration
	DrainInterval time.Duration
	DrainBurst    int
	MaxRetries    int
	RetryBase     time.Duration
	RetryMax      time.Duration
}

// ExpirationConfig controls how expiration text is interpreted.
type ExpirationConfig struct {
	// OffsetHours is a fixed UTC offset; daylight saving is not applied.
	OffsetHours int
}
