package remote

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

// maxParallel caps concurrent calls to endpoints.
const maxParallel = 8

// Pool fans calls out over a set of endpoints. A call succeeds when at least
// one endpoint succeeds.
type Pool struct {
	endpoints []string
	logs      []Log
	log       *zap.Logger
}

// NewPool builds a pool from already opened logs; endpoints[i] names logs[i].
func NewPool(endpoints []string, logs []Log, log *zap.Logger) *Pool {
	return &Pool{endpoints: endpoints, logs: logs, log: logger.OrNop(log)}
}

// Dial opens every endpoint with Open. Endpoints that fail to open are
// logged and skipped; ErrNoEndpoints is returned if none is left.
func Dial(ctx context.Context, endpoints []string, opts Options) (*Pool, error) {
	log := logger.OrNop(opts.Logger)
	var (
		names []string
		logs  []Log
	)
	for _, ep := range endpoints {
		l, err := Open(ctx, ep, opts)
		if err != nil {
			log.Warn("skipping endpoint", zap.String("endpoint", ep), zap.Error(err))
			continue
		}
		names = append(names, ep)
		logs = append(logs, l)
	}
	if len(logs) == 0 {
		return nil, ErrNoEndpoints
	}
	return NewPool(names, logs, log), nil
}

// Endpoints returns the endpoints the pool talks to.
func (p *Pool) Endpoints() []string {
	return append([]string(nil), p.endpoints...)
}

// Query implements Log. Results of all endpoints are merged, deduplicated by
// record id, sorted newest first and cut to filter.Limit.
func (p *Pool) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	if len(p.logs) == 0 {
		return nil, ErrNoEndpoints
	}
	results := make([][]models.Record, len(p.logs))
	errs := make([]error, len(p.logs))

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, l := range p.logs {
		g.Go(func() error {
			recs, err := l.Query(ctx, filter)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.endpoints[i], err)
				p.log.Debug("endpoint query failed", zap.String("endpoint", p.endpoints[i]), zap.Error(err))
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var merged []models.Record
	ok := false
	for i, recs := range results {
		if errs[i] != nil {
			continue
		}
		ok = true
		for _, r := range recs {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	if !ok {
		return nil, errors.Join(errs...)
	}
	return newestFirst(merged, filter.Limit), nil
}

// Publish implements Log by publishing to every endpoint.
func (p *Pool) Publish(ctx context.Context, rec models.Record) error {
	if len(p.logs) == 0 {
		return ErrNoEndpoints
	}
	errs := make([]error, len(p.logs))

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, l := range p.logs {
		g.Go(func() error {
			if err := l.Publish(ctx, rec); err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.endpoints[i], err)
				p.log.Debug("endpoint publish failed", zap.String("endpoint", p.endpoints[i]), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err == nil {
			return nil
		}
	}
	return errors.Join(errs...)
}
