package utils

import (
	"context"
	"modbot/model"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type LogLevel string

const (
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

func getColor(level LogLevel) int {
	switch level {
	case Info:
		return 3066993 // Green
	case Warn:
		return 15105570 // Orange
	case Error:
		return 15158332 // Red
	default:
		return 3447003 // Blue
	}
}

// levelOf picks an embed color from the wording of a moderation message.
func levelOf(message string) LogLevel {
	lower := strings.ToLower(message)
	switch {
	case strings.HasPrefix(lower, "unable"), strings.HasPrefix(lower, "failed"):
		return Error
	case strings.HasPrefix(lower, "cannot"), strings.Contains(lower, "overriding"):
		return Warn
	default:
		return Info
	}
}

// SettingGetter reads a per-server setting.
type SettingGetter interface {
	GetSetting(ctx context.Context, serverID, key string) (value string, ok bool, err error)
}

// GuildLogger posts moderation activity to each guild's configured log channel.
// Guilds without a logChannel setting are skipped silently.
type GuildLogger struct {
	session  *discordgo.Session
	settings SettingGetter
}

func NewGuildLogger(s *discordgo.Session, settings SettingGetter) *GuildLogger {
	return &GuildLogger{session: s, settings: settings}
}

// Log sends message to the guild's log channel. Failures are logged and dropped.
func (l *GuildLogger) Log(ctx context.Context, guildID, message string) {
	channelID, ok, err := l.settings.GetSetting(ctx, guildID, model.SettingLogChannel)
	if err != nil {
		log.Warn().Err(err).Str("guild", guildID).Msg("failed to read log channel setting")
		return
	}
	if !ok || channelID == "" {
		return
	}

	level := levelOf(message)
	embed := &discordgo.MessageEmbed{
		Title:       string(level) + " Log",
		Description: message,
		Color:       getColor(level),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := l.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Str("guild", guildID).Str("channel", channelID).Msg("failed to send audit log")
	}
}
