// Package repository provides the PostgreSQL persistence of the remote log:
// registered authors and their records.
package repository

import (
	"context"
	"database/sql"
)

// PostgresAuthorRepository stores registered authors.
type PostgresAuthorRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthorRepository creates a PostgresAuthorRepository over db.
func NewPostgresAuthorRepository(db *sql.DB) *PostgresAuthorRepository {
	return &PostgresAuthorRepository{DB: db}
}

// AuthorExists reports whether login is registered.
func (s *PostgresAuthorRepository) AuthorExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM authors WHERE login = $1)`,
		login,
	).Scan(&exists)
	return exists, err
}

// RegisterAuthor inserts login. Registering a known author is not an error.
func (s *PostgresAuthorRepository) RegisterAuthor(ctx context.Context, login string) error {
	_, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO authors (login) VALUES ($1) ON CONFLICT DO NOTHING`,
		login,
	)
	return err
}
