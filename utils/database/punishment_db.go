package database

import (
	"context"
	"modbot/model"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PunishmentStore reads and writes rows of the punishments table.
type PunishmentStore struct {
	db *sqlx.DB
}

// NewPunishmentStore wraps an initialized database.
func NewPunishmentStore(db *sqlx.DB) *PunishmentStore {
	return &PunishmentStore{db: db}
}

// FindAll retrieves every punishment row of a kind.
func (s *PunishmentStore) FindAll(ctx context.Context, kind model.Kind) ([]model.PunishmentRow, error) {
	var rows []model.PunishmentRow
	query := "SELECT * FROM punishments WHERE kind = ? ORDER BY id"
	if err := s.db.SelectContext(ctx, &rows, query, kind); err != nil {
		return nil, errors.Wrapf(err, "failed to get %s punishments", kind)
	}
	return rows, nil
}

// FindActive retrieves the active rows of a kind for one member in one server.
func (s *PunishmentStore) FindActive(ctx context.Context, kind model.Kind, userID, serverID string) ([]model.PunishmentRow, error) {
	var rows []model.PunishmentRow
	query := "SELECT * FROM punishments WHERE kind = ? AND user_id = ? AND server_id = ? AND active = 1 ORDER BY id"
	if err := s.db.SelectContext(ctx, &rows, query, kind, userID, serverID); err != nil {
		return nil, errors.Wrapf(err, "failed to get active %s for user %s in server %s", kind, userID, serverID)
	}
	return rows, nil
}

// Create inserts a new punishment row and returns its ID.
func (s *PunishmentStore) Create(ctx context.Context, row *model.PunishmentRow) (int64, error) {
	if row.CreatedAt == 0 {
		row.CreatedAt = time.Now().UnixMilli()
	}
	query := `INSERT INTO punishments (user_id, user_name, punisher_id, punisher_name, reason, server_id, active, clear_time, kind, created_at)
			  VALUES (:user_id, :user_name, :punisher_id, :punisher_name, :reason, :server_id, :active, :clear_time, :kind, :created_at)`

	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert %s punishment", row.Kind)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get last insert ID")
	}
	row.ID = id
	return id, nil
}

// Deactivate marks every active row of a kind for the member in the server as inactive.
// It returns the number of rows changed.
func (s *PunishmentStore) Deactivate(ctx context.Context, kind model.Kind, userID, serverID string) (int64, error) {
	query := "UPDATE punishments SET active = 0 WHERE kind = ? AND user_id = ? AND server_id = ? AND active = 1"
	result, err := s.db.ExecContext(ctx, query, kind, userID, serverID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to deactivate %s for user %s in server %s", kind, userID, serverID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to check rows affected")
	}
	return n, nil
}

// ListByUser retrieves one page of a member's punishments of a kind, newest first.
func (s *PunishmentStore) ListByUser(ctx context.Context, serverID, userID string, kind model.Kind, offset, limit int) ([]model.PunishmentRow, error) {
	var rows []model.PunishmentRow
	query := `SELECT * FROM punishments
			  WHERE server_id = ? AND user_id = ? AND kind = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, query, serverID, userID, kind, limit, offset); err != nil {
		return nil, errors.Wrapf(err, "failed to list %s punishments for user %s", kind, userID)
	}
	return rows, nil
}

// CountByKindSince counts the punishments issued in a server since the given time, per kind.
func (s *PunishmentStore) CountByKindSince(ctx context.Context, serverID string, since time.Time) (map[model.Kind]int, error) {
	query := `SELECT kind, COUNT(*) AS count FROM punishments WHERE server_id = ? AND created_at >= ? GROUP BY kind`
	rows, err := s.db.QueryxContext(ctx, query, serverID, since.UnixMilli())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count punishments for server %s", serverID)
	}
	defer rows.Close()

	counts := make(map[model.Kind]int)
	for rows.Next() {
		var kind model.Kind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan punishment count row")
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// PunisherStatsSince retrieves the punishment count for each punisher within a given time range.
func (s *PunishmentStore) PunisherStatsSince(ctx context.Context, serverID string, since time.Time) (map[string]int, error) {
	query := `SELECT punisher_id, COUNT(*) AS count FROM punishments WHERE server_id = ? AND created_at >= ? GROUP BY punisher_id ORDER BY count DESC`
	rows, err := s.db.QueryxContext(ctx, query, serverID, since.UnixMilli())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get punisher stats for server %s", serverID)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var punisherID string
		var count int
		if err := rows.Scan(&punisherID, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan punisher stats row")
		}
		stats[punisherID] = count
	}
	return stats, rows.Err()
}
