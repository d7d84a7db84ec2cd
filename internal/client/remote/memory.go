package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

// MemoryLog is an in-process Log, used for offline sessions and tests.
type MemoryLog struct {
	mu      sync.Mutex
	records []models.Record
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Query implements Log.
func (m *MemoryLog) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// walk backwards so the later of two same-second records comes first
	var out []models.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if filter.Matches(m.records[i]) {
			out = append(out, m.records[i])
		}
	}
	return newestFirst(out, filter.Limit), nil
}

// Publish implements Log. Re-publishing a known record id is a no-op.
func (m *MemoryLog) Publish(ctx context.Context, rec models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.ID == rec.ID {
			return nil
		}
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything published so far, oldest first.
func (m *MemoryLog) Records() []models.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Record(nil), m.records...)
}

// newestFirst sorts by CreatedAt descending, keeping input order for ties,
// and applies limit.
func newestFirst(recs []models.Record, limit int) []models.Record {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt > recs[j].CreatedAt
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
