package model

import (
	"database/sql"
	"time"
)

// Kind identifies the type of punishment stored in a row.
type Kind string

const (
	KindMute Kind = "mute"
	KindBan  Kind = "ban"
	KindKick Kind = "kick"
	KindWarn Kind = "warn"
)

// Kinds lists every punishment kind in display order.
var Kinds = []Kind{KindMute, KindBan, KindKick, KindWarn}

// Expires reports whether punishments of this kind are time-bound.
func (k Kind) Expires() bool {
	return k == KindMute || k == KindBan
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// PunishmentRow represents a single punishment record in the database.
// The database table is named 'punishments'.
type PunishmentRow struct {
	ID           int64          `db:"id"` // Primary Key, Auto-increment
	UserID       string         `db:"user_id"`
	UserName     string         `db:"user_name"`
	PunisherID   string         `db:"punisher_id"`
	PunisherName string         `db:"punisher_name"`
	Reason       sql.NullString `db:"reason"`
	ServerID     string         `db:"server_id"`
	Active       bool           `db:"active"`
	ClearTime    sql.NullInt64  `db:"clear_time"` // epoch milliseconds, NULL for kick/warn
	Kind         Kind           `db:"kind"`
	CreatedAt    int64          `db:"created_at"` // epoch milliseconds
}

// ClearAt returns the expiration as a time. ok is false for rows that never expire.
func (r PunishmentRow) ClearAt() (t time.Time, ok bool) {
	if !r.ClearTime.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(r.ClearTime.Int64), true
}

// ReasonText returns the reason or an empty string when none was given.
func (r PunishmentRow) ReasonText() string {
	if !r.Reason.Valid {
		return ""
	}
	return r.Reason.String
}

// ActivePunishment is an in-memory entry for a time-bound punishment that
// still requires automatic reversal.
type ActivePunishment struct {
	Kind      Kind
	MemberID  string
	GuildID   string
	ClearTime int64 // epoch milliseconds
}

// Due reports whether the punishment has reached its expiration at now.
func (p ActivePunishment) Due(now time.Time) bool {
	return now.UnixMilli() >= p.ClearTime
}

// ActiveFromRow builds the queue entry for an expiring row.
func ActiveFromRow(r PunishmentRow) ActivePunishment {
	return ActivePunishment{
		Kind:      r.Kind,
		MemberID:  r.UserID,
		GuildID:   r.ServerID,
		ClearTime: r.ClearTime.Int64,
	}
}

// Member is the subset of a guild member the moderation services need.
type Member struct {
	ID       string
	GuildID  string
	Username string
	Nickname string
	Roles    []string
}

// DisplayText renders a member as "name (id)" for logs and replies.
func (m Member) DisplayText() string {
	name := m.Nickname
	if name == "" {
		name = m.Username
	}
	return name + " (" + m.ID + ")"
}

// HasRole reports whether the member currently holds roleID.
func (m Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// Guild is the subset of a guild the services need.
type Guild struct {
	ID   string
	Name string
}

// Setting is a per-server key/value pair.
type Setting struct {
	ID       int64  `db:"id"`
	ServerID string `db:"server_id"`
	Key      string `db:"key"`
	Value    string `db:"value"`
}

// Setting keys read by the moderation services.
const (
	SettingMutedRole     = "mutedRole"
	SettingLogChannel    = "logChannel"
	SettingReportChannel = "reportChannel"
)
