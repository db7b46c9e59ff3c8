// Package registry records training runs in SQLite.
package registry

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS training_runs (
	run_id      TEXT PRIMARY KEY,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	target      TEXT NOT NULL DEFAULT '',
	n_samples   INTEGER NOT NULL DEFAULT 0,
	train_mae   REAL NOT NULL DEFAULT 0,
	train_r2    REAL NOT NULL DEFAULT 0,
	test_mae    REAL,
	test_r2     REAL,
	model       TEXT NOT NULL DEFAULT '',
	model_path  TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_training_runs_created ON training_runs(created_at);
`

// DB wraps a sql.DB with registry operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
