package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

const (
	// MaxQueryLimit caps the number of records a single query returns.
	MaxQueryLimit = 500
	// MaxClockSkew is how far in the future a record's createdAt may be.
	MaxClockSkew = 10 * time.Minute
)

var (
	// ErrInvalidRecord is returned for records that fail validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrForbidden is returned when the caller appends on behalf of
	// another author.
	ErrForbidden = errors.New("record author does not match caller")
	// ErrUnknownAuthor is returned when the author never registered.
	ErrUnknownAuthor = errors.New("unknown author")
)

// RecordRepository defines the persistence operations needed by LogService.
type RecordRepository interface {
	// Append stores rec and reports whether it was new.
	Append(ctx context.Context, rec models.Record) (bool, error)
	// Query returns matching records, newest first.
	Query(ctx context.Context, filter models.Filter) ([]models.Record, error)
}

// LogService implements the append-only record log.
type LogService struct {
	records  RecordRepository
	authors  AuthorRepository
	validate *validator.Validate
	now      func() time.Time
}

// NewLogService constructs a LogService.
func NewLogService(records RecordRepository, authors AuthorRepository) *LogService {
	return &LogService{
		records:  records,
		authors:  authors,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Append stores rec written by caller. An empty caller skips the ownership
// check, which only trusted transports may do.
func (s *LogService) Append(ctx context.Context, caller string, rec models.Record) (bool, error) {
	if err := s.validate.Struct(rec); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if limit := s.now().Add(MaxClockSkew).Unix(); rec.CreatedAt > limit {
		return false, fmt.Errorf("%w: createdAt %d is in the future", ErrInvalidRecord, rec.CreatedAt)
	}
	if caller != "" && caller != rec.Author {
		return false, ErrForbidden
	}

	exists, err := s.authors.AuthorExists(ctx, rec.Author)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrUnknownAuthor
	}
	return s.records.Append(ctx, rec)
}

// Query returns matching records, newest first, never more than
// MaxQueryLimit.
func (s *LogService) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	if filter.Limit <= 0 || filter.Limit > MaxQueryLimit {
		filter.Limit = MaxQueryLimit
	}
	return s.records.Query(ctx, filter)
}
