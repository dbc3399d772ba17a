package punish

import (
	"context"
	"modbot/model"
	"time"
)

// Store is the durable record of punishments.
type Store interface {
	FindAll(ctx context.Context, kind model.Kind) ([]model.PunishmentRow, error)
	FindActive(ctx context.Context, kind model.Kind, userID, serverID string) ([]model.PunishmentRow, error)
	Create(ctx context.Context, row *model.PunishmentRow) (int64, error)
	Deactivate(ctx context.Context, kind model.Kind, userID, serverID string) (int64, error)
}

// Settings resolves per-server configuration values.
type Settings interface {
	GetSetting(ctx context.Context, serverID, key string) (value string, ok bool, err error)
}

// Platform performs the side effects of a punishment on the chat platform.
// Errors for unknown guilds, members or bans wrap ErrNotFound.
type Platform interface {
	Guild(ctx context.Context, guildID string) (model.Guild, error)
	Member(ctx context.Context, guildID, userID string) (model.Member, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
	Unban(ctx context.Context, guildID, userID string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	SendDirectMessage(ctx context.Context, userID string, notice Notice) error
}

// AuditLog records moderation activity where the guild's moderators can read it.
type AuditLog interface {
	Log(ctx context.Context, guildID, message string)
}

// DateParser turns free-form expiration text into an absolute time.
type DateParser interface {
	Parse(text string, now time.Time) (time.Time, bool)
	Format(t time.Time) string
}

// Notice is a direct message sent to a punished member.
type Notice struct {
	Title       string
	Description string
}

// Clock returns the current time.
type Clock func() time.Time
