// Package db opens the remote log database and keeps it tidy.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS authors (
    login TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS records (
    id TEXT PRIMARY KEY,
    author TEXT NOT NULL REFERENCES authors(login) ON DELETE CASCADE,
    namespace TEXT NOT NULL,
    tags JSONB NOT NULL DEFAULT '[]',
    content TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    received_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS records_author_namespace_created
    ON records (author, namespace, created_at DESC);
`

// InitPostgres connects to dsn and creates the schema if needed.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the authors and records tables and their index.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
