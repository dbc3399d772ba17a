package database

import (
	"embed"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Init connects to the moderation database and applies pending migrations.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to moderation database")
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY between goroutines.
	db.SetMaxOpenConns(1)

	n, err := Migrate(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if n > 0 {
		log.Info().Int("count", n).Str("path", dbPath).Msg("applied migrations")
	}
	return db, nil
}

// Migrate applies every embedded migration that has not run yet.
func Migrate(db *sqlx.DB) (int, error) {
	source := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(db.DB, "sqlite3", source, migrate.Up)
	if err != nil {
		return 0, errors.Wrap(err, "failed to apply migrations")
	}
	return n, nil
}
