package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a journal created by an older listq. Migrations run in
// order, each in its own transaction, and record their version in
// PRAGMA user_version.
type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{1, "index events by kind", `
		CREATE INDEX IF NOT EXISTS idx_events_run_kind ON events(run_id, kind)`},
	{2, "index failures for drop counts", `
		CREATE INDEX IF NOT EXISTS idx_failures_run_kind_reason ON failures(run_id, kind, reason)`},
}

// schemaVersion is the user_version of a fully migrated journal.
var schemaVersion = migrations[len(migrations)-1].version

// Store is a SQLite journal database. Writes go through a single connection;
// WAL lets trace read a journal another process is still writing.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path and brings its schema up to
// date. Opening an existing journal never rewrites recorded rows.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal tables: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// dsn applies the connection settings through go-sqlite3 DSN parameters so
// every pooled connection gets them.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	return path + "?" + params.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if current > schemaVersion {
		return fmt.Errorf("journal version %d is newer than supported version %d", current, schemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): record version: %w", m.version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}
