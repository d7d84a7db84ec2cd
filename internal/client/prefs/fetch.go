package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/client/encryptor"
	"github.com/atinyakov/HomeKeeper/internal/client/remote"
	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

// DefaultFetchTimeout bounds a single remote fetch.
const DefaultFetchTimeout = 10 * time.Second

// Fetcher loads the latest published snapshot of an identity.
type Fetcher struct {
	remote  remote.Log
	timeout time.Duration
	log     *zap.Logger
}

// NewFetcher returns a Fetcher over l. A zero timeout means
// DefaultFetchTimeout.
func NewFetcher(l remote.Log, timeout time.Duration, log *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{remote: l, timeout: timeout, log: logger.OrNop(log)}
}

// Fetch returns the newest remote snapshot of identity, or nil when there is
// none or it cannot be obtained. Failures are logged, never returned.
func (f *Fetcher) Fetch(ctx context.Context, identity encryptor.Identity) *models.PreferenceSnapshot {
	p, err := f.fetch(ctx, identity)
	if err != nil {
		f.log.Warn("remote preferences unavailable", zap.String("author", identity.PublicID), zap.Error(err))
		return nil
	}
	return p
}

func (f *Fetcher) fetch(ctx context.Context, identity encryptor.Identity) (*models.PreferenceSnapshot, error) {
	if f.remote == nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, remote.ErrNoEndpoints)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	recs, err := f.remote.Query(ctx, models.Filter{
		Authors:    []string{identity.PublicID},
		Namespaces: []string{models.Namespace},
		Limit:      1,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrFetchTimeout, f.timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}
	if len(recs) == 0 {
		f.log.Debug("no remote preferences", zap.String("author", identity.PublicID))
		return nil, nil
	}

	newest := recs[0]
	for _, r := range recs[1:] {
		if r.CreatedAt > newest.CreatedAt {
			newest = r
		}
	}
	if newest.Author != identity.PublicID || newest.Namespace != models.Namespace {
		return nil, fmt.Errorf("%w: record %s is not ours", ErrMalformedRecord, newest.ID)
	}

	p, err := ParsePayload([]byte(newest.Content), identity.Capability, f.log)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
