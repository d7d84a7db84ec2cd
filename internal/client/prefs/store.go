// Package prefs is the preference synchronization engine: a local-first
// store of one identity's preferences that round-trips through a remote,
// author-addressed log.
//
// Mutations are written locally first and published after a quiet period.
// On open, and whenever the private relay set changes, one sync pass pulls
// the newest remote snapshot and either adopts it (fresh device) or merges
// its list fields into the local copy.
package prefs

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/client/encryptor"
	"github.com/atinyakov/HomeKeeper/internal/client/remote"
	"github.com/atinyakov/HomeKeeper/internal/client/storage"
	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

// Connector returns the remote log for the current endpoint set. It is
// called on Open and again whenever the private relay list changes.
type Connector func(ctx context.Context, privateRelays []string) (remote.Log, error)

// Static returns a Connector that always yields l.
func Static(l remote.Log) Connector {
	return func(context.Context, []string) (remote.Log, error) {
		return l, nil
	}
}

// Options configures a Store.
type Options struct {
	// Identity owns the preferences. Without a capability the sensitive
	// fields degrade as described on BuildPayload.
	Identity encryptor.Identity
	// Backend persists the local snapshot.
	Backend storage.Backend
	// Connect reaches the remote log. Nil keeps the store offline.
	Connect Connector

	Clock             clockwork.Clock
	Logger            *zap.Logger
	Debounce          time.Duration
	FetchTimeout      time.Duration
	PublishTimeout    time.Duration
	MinSelectInterval time.Duration
	// OnPublish observes every debounced publish attempt.
	OnPublish func(error)
}

// Event is delivered to listeners after every observable change.
type Event struct {
	Snapshot  models.PreferenceSnapshot
	Selected  string
	SyncState SyncState
}

// Listener receives store events. It may be called from a background
// goroutine and must not block.
type Listener func(Event)

// Unsubscribe removes the listener it was returned for.
type Unsubscribe func()

// Store is the public face of the engine for one identity.
type Store struct {
	identity encryptor.Identity
	connect  Connector
	timeout  time.Duration
	log      *zap.Logger

	local     *storage.LocalStore
	session   *Session
	coord     *Coordinator
	publisher *Publisher

	mu              sync.Mutex
	snapshot        models.PreferenceSnapshot
	endpointVersion uint64
	remote          remote.Log
	listeners       map[uint64]Listener
	nextListener    uint64
	closed          bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open loads identity's local snapshot, connects to the remote log and
// starts the first sync pass in the background. A remote that cannot be
// reached leaves the store working offline and the pass settles with no
// remote data.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Identity.PublicID == "" {
		return nil, errors.New("identity is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("backend is required")
	}
	log := logger.OrNop(opts.Logger).With(zap.String("identity", opts.Identity.PublicID))

	s := &Store{
		identity:  opts.Identity,
		connect:   opts.Connect,
		timeout:   opts.FetchTimeout,
		log:       log,
		local:     storage.NewLocalStore(opts.Backend, opts.Identity.PublicID, log),
		session:   NewSession(opts.Clock, opts.MinSelectInterval),
		listeners: make(map[uint64]Listener),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.coord = NewCoordinator(s.generationLocked(), func(SyncState) { s.notify() })
	s.snapshot = s.local.Read()

	s.remote = s.dial(ctx, s.snapshot.PrivateRelays)
	s.publisher = NewPublisher(s.remote, opts.Identity, PublisherConfig{
		Debounce: opts.Debounce,
		Timeout:  opts.PublishTimeout,
		Clock:    opts.Clock,
		Logger:   log,
		OnResult: opts.OnPublish,
	})

	// an unreachable remote still settles the first generation
	if s.connect != nil {
		s.startSync(s.generationLocked(), false)
	}
	return s, nil
}

func (s *Store) dial(ctx context.Context, relays []string) remote.Log {
	if s.connect == nil {
		return nil
	}
	l, err := s.connect(ctx, slices.Clone(relays))
	if err != nil {
		s.log.Warn("remote log unavailable, working offline", zap.Error(err))
		return nil
	}
	return l
}

func (s *Store) generationLocked() Generation {
	return Generation{Identity: s.identity.PublicID, EndpointVersion: s.endpointVersion}
}

// Read returns the current snapshot. A Mutate that returned is always
// visible to the next Read.
func (s *Store) Read() models.PreferenceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Mutate replaces the snapshot with updater's result. updater receives a
// copy of the current snapshot and must return a complete one. The result
// is written locally before Mutate returns and published after the quiet
// period.
func (s *Store) Mutate(updater func(prev models.PreferenceSnapshot) models.PreferenceSnapshot) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := s.snapshot
	next := updater(prev.Clone())
	next.BackfillDefaults()
	normalize(&next)
	if reflect.DeepEqual(prev, next) {
		s.mu.Unlock()
		return nil
	}
	if err := s.local.Write(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snapshot = next
	relaysChanged := !slices.Equal(prev.PrivateRelays, next.PrivateRelays)
	s.mu.Unlock()

	s.publisher.Schedule(next.Clone())
	s.notify()
	if relaysChanged {
		s.endpointsChanged()
	}
	return nil
}

// Select switches the current view, subject to the select throttle. The
// selection is never persisted or published.
func (s *Store) Select(view string) bool {
	if !s.session.Select(view) {
		return false
	}
	s.notify()
	return true
}

// Selected returns the current view.
func (s *Store) Selected() string {
	return s.session.Selected()
}

// SyncState returns the sync state of the current generation.
func (s *Store) SyncState() SyncState {
	return s.coord.State()
}

// Subscribe registers l for every later event.
func (s *Store) Subscribe(l Listener) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// Resync starts a new generation and runs its sync pass on the calling
// goroutine.
func (s *Store) Resync(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.endpointVersion++
	gen := s.generationLocked()
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.coord.Advance(gen)
	s.sync(ctx, gen, true)
	return nil
}

// Close publishes a pending snapshot, stops background work and waits for
// it to finish or for ctx to end.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.publisher.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// endpointsChanged starts a new generation for the changed relay set.
func (s *Store) endpointsChanged() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.endpointVersion++
	gen := s.generationLocked()
	s.mu.Unlock()

	s.coord.Advance(gen)
	s.startSync(gen, true)
}

func (s *Store) startSync(gen Generation, reconnect bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sync(s.ctx, gen, reconnect)
	}()
}

func (s *Store) sync(ctx context.Context, gen Generation, reconnect bool) {
	s.coord.Sync(ctx, gen, func(ctx context.Context) *models.PreferenceSnapshot {
		l := s.currentRemote(ctx, reconnect)
		if l == nil {
			return nil
		}
		return NewFetcher(l, s.timeout, s.log).Fetch(ctx, s.identity)
	}, s.apply)
}

func (s *Store) currentRemote(ctx context.Context, reconnect bool) remote.Log {
	if reconnect {
		relays := s.Read().PrivateRelays
		if l := s.dial(ctx, relays); l != nil {
			s.mu.Lock()
			s.remote = l
			s.mu.Unlock()
			s.publisher.SetRemote(l)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// apply reconciles fetched against the snapshot current at this moment, so
// mutations made while the fetch ran are not lost.
func (s *Store) apply(fetched models.PreferenceSnapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	local := s.snapshot
	result, decision := Reconcile(local, fetched)
	if decision == DecisionNone || reflect.DeepEqual(result, local) {
		s.mu.Unlock()
		s.log.Debug("local preferences already up to date", zap.Stringer("decision", decision))
		return
	}
	if err := s.local.Write(result); err != nil {
		s.mu.Unlock()
		s.log.Error("failed to store synced preferences", zap.Error(err))
		return
	}
	s.snapshot = result
	relaysChanged := !slices.Equal(local.PrivateRelays, result.PrivateRelays)
	s.mu.Unlock()

	s.log.Info("preferences synced", zap.Stringer("decision", decision))
	s.notify()
	if relaysChanged {
		s.endpointsChanged()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	ev := Event{Snapshot: s.snapshot.Clone()}
	s.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	ev.Selected = s.session.Selected()
	ev.SyncState = s.coord.State()
	for _, l := range listeners {
		l(ev)
	}
}
