package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

// PostgresRecordRepository stores the append-only record log.
type PostgresRecordRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// Now stamps received_at. Defaults to time.Now.
	Now func() time.Time
}

// NewPostgresRecordRepository creates a PostgresRecordRepository over db.
func NewPostgresRecordRepository(db *sql.DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{DB: db, Now: time.Now}
}

// Append stores rec and reports whether it was new. Records are immutable:
// a second append with a known id changes nothing.
func (s *PostgresRecordRepository) Append(ctx context.Context, rec models.Record) (bool, error) {
	tags := rec.Tags
	if tags == nil {
		tags = [][]string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("marshal tags: %w", err)
	}

	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO records (id, author, namespace, tags, content, created_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Author, rec.Namespace, string(rawTags), rec.Content, rec.CreatedAt, s.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("append: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append: %w", err)
	}
	return n > 0, nil
}

// Query returns the records matching filter, newest first.
func (s *PostgresRecordRepository) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	var limit sql.NullInt64
	if filter.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(filter.Limit), Valid: true}
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, author, namespace, tags, content, created_at FROM records
		WHERE ($1::text[] IS NULL OR author = ANY($1::text[]))
		  AND ($2::text[] IS NULL OR namespace = ANY($2::text[]))
		  AND created_at >= $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, pq.Array(nilIfEmpty(filter.Authors)), pq.Array(nilIfEmpty(filter.Namespaces)), filter.Since, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var (
			rec     models.Record
			rawTags []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Author, &rec.Namespace, &rawTags, &rec.Content, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(rawTags, &rec.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
