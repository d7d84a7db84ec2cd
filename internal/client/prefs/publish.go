package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/client/debounce"
	"github.com/atinyakov/HomeKeeper/internal/client/encryptor"
	"github.com/atinyakov/HomeKeeper/internal/client/remote"
	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

const (
	// DefaultDebounce is the quiet period after the last mutation before a
	// publish is attempted.
	DefaultDebounce = 2000 * time.Millisecond
	// DefaultPublishTimeout bounds a single publish.
	DefaultPublishTimeout = 15 * time.Second
)

// PublisherConfig tunes a Publisher. Zero values pick the defaults.
type PublisherConfig struct {
	Debounce time.Duration
	Timeout  time.Duration
	Clock    clockwork.Clock
	Logger   *zap.Logger
	// OnResult is called after every publish attempt that fired from the
	// debounce timer or from Flush.
	OnResult func(error)
}

// Publisher turns bursts of snapshots into single remote records.
type Publisher struct {
	identity encryptor.Identity
	delay    time.Duration
	timeout  time.Duration
	clock    clockwork.Clock
	log      *zap.Logger
	onResult func(error)

	debouncer *debounce.Debouncer[models.PreferenceSnapshot]
	inFlight  atomic.Bool

	mu      sync.Mutex
	remote  remote.Log
	handle  *debounce.Handle
	closed  bool
	running sync.WaitGroup
}

// NewPublisher returns a publisher writing identity's snapshots to l.
func NewPublisher(l remote.Log, identity encryptor.Identity, cfg PublisherConfig) *Publisher {
	p := &Publisher{
		identity: identity,
		delay:    cfg.Debounce,
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		log:      logger.OrNop(cfg.Logger),
		onResult: cfg.OnResult,
		remote:   l,
	}
	if p.delay <= 0 {
		p.delay = DefaultDebounce
	}
	if p.timeout <= 0 {
		p.timeout = DefaultPublishTimeout
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	p.debouncer = debounce.New(p.clock, p.fire)
	return p
}

// SetRemote switches the log used by later publishes.
func (p *Publisher) SetRemote(l remote.Log) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = l
}

// Schedule makes snapshot the payload of the next publish and restarts the
// quiet period.
func (p *Publisher) Schedule(snapshot models.PreferenceSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if p.handle != nil && p.debouncer.Reschedule(p.handle, snapshot) {
		return
	}
	p.handle = p.debouncer.Schedule(snapshot, p.delay)
}

// Pending reports whether a publish is waiting for its quiet period.
func (p *Publisher) Pending() bool {
	return p.debouncer.Pending()
}

// Flush publishes the pending snapshot now, if there is one.
func (p *Publisher) Flush() bool {
	return p.debouncer.Flush()
}

// Close flushes the pending snapshot, then waits for running publishes.
// Schedule is a no-op afterwards.
func (p *Publisher) Close() {
	p.Flush()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.debouncer.Cancel()
	p.running.Wait()
}

func (p *Publisher) fire(snapshot models.PreferenceSnapshot) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.running.Add(1)
	p.mu.Unlock()
	defer p.running.Done()

	err := p.Publish(context.Background(), snapshot)
	switch {
	case errors.Is(err, ErrPublishInFlight):
		p.log.Info("publish dropped, previous publish still running")
	case err != nil:
		p.log.Warn("preferences kept local only", zap.Error(err))
	default:
		p.log.Debug("preferences published")
	}
	if p.onResult != nil {
		p.onResult(err)
	}
}

// Publish writes snapshot as a new record right away. It returns
// ErrPublishInFlight without doing anything while another publish runs.
func (p *Publisher) Publish(ctx context.Context, snapshot models.PreferenceSnapshot) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrPublishInFlight
	}
	defer p.inFlight.Store(false)

	p.mu.Lock()
	l := p.remote
	p.mu.Unlock()
	if l == nil {
		return fmt.Errorf("%w: %w", ErrPublishFailure, remote.ErrNoEndpoints)
	}

	content, err := BuildPayload(snapshot, p.identity.Capability, p.log)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}
	rec := models.Record{
		ID:        uuid.NewString(),
		Author:    p.identity.PublicID,
		Namespace: models.Namespace,
		Tags:      [][]string{{"title", models.RecordTitle}},
		Content:   string(content),
		CreatedAt: p.clock.Now().Unix(),
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := l.Publish(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}
	return nil
}
