package database

import (
	"context"
	"database/sql"
	"modbot/model"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// SettingStore reads and writes per-server key/value settings.
type SettingStore struct {
	db *sqlx.DB
}

// NewSettingStore wraps an initialized database.
func NewSettingStore(db *sqlx.DB) *SettingStore {
	return &SettingStore{db: db}
}

// GetSetting returns the value stored for key in the server. ok is false when the key is unset.
func (s *SettingStore) GetSetting(ctx context.Context, serverID, key string) (value string, ok bool, err error) {
	err = s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE server_id = ? AND key = ?", serverID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get setting %s for server %s", key, serverID)
	}
	return value, true, nil
}

// SetSetting creates or overwrites a setting. created reports whether the key was new.
func (s *SettingStore) SetSetting(ctx context.Context, serverID, key, value string) (created bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin settings transaction")
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM settings WHERE server_id = ? AND key = ?", serverID, key); err != nil {
		return false, errors.Wrapf(err, "failed to look up setting %s", key)
	}

	query := `INSERT INTO settings (server_id, key, value) VALUES (:server_id, :key, :value)
			  ON CONFLICT(server_id, key) DO UPDATE SET value = excluded.value`
	if _, err := tx.NamedExecContext(ctx, query, model.Setting{ServerID: serverID, Key: key, Value: value}); err != nil {
		return false, errors.Wrapf(err, "failed to save setting %s for server %s", key, serverID)
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit setting")
	}
	return count == 0, nil
}

// ListByKey returns every server's value for key.
func (s *SettingStore) ListByKey(ctx context.Context, key string) ([]model.Setting, error) {
	var settings []model.Setting
	if err := s.db.SelectContext(ctx, &settings, "SELECT * FROM settings WHERE key = ? ORDER BY server_id", key); err != nil {
		return nil, errors.Wrapf(err, "failed to list setting %s", key)
	}
	return settings, nil
}
