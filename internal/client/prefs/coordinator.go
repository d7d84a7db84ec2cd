package prefs

import (
	"context"
	"sync"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

// SyncState is the progress of the sync pass of the current generation.
type SyncState int

const (
	Unsynced SyncState = iota
	Syncing
	Synced
)

func (s SyncState) String() string {
	switch s {
	case Syncing:
		return "syncing"
	case Synced:
		return "synced"
	default:
		return "unsynced"
	}
}

// Generation identifies one (identity, endpoint set) pair. Each generation
// gets at most one sync pass.
type Generation struct {
	Identity        string
	EndpointVersion uint64
}

// Coordinator runs the sync pass of each generation once.
type Coordinator struct {
	mu      sync.Mutex
	gen     Generation
	state   SyncState
	onState func(SyncState)
}

// NewCoordinator returns a coordinator at Unsynced for gen. onState, if not
// nil, is called after every state change without locks held.
func NewCoordinator(gen Generation, onState func(SyncState)) *Coordinator {
	return &Coordinator{gen: gen, onState: onState}
}

// State returns the state of the current generation.
func (c *Coordinator) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Advance moves to gen and resets the state to Unsynced. Advancing to the
// current generation is a no-op.
func (c *Coordinator) Advance(gen Generation) {
	c.mu.Lock()
	if c.gen == gen {
		c.mu.Unlock()
		return
	}
	c.gen = gen
	c.state = Unsynced
	c.mu.Unlock()
	c.notify(Unsynced)
}

// Sync runs the pass for gen: fetch, then apply when fetch returned a
// snapshot. The state is Synced once it settles whatever the outcome. It
// reports false, without calling anything, when gen is not current or its
// pass already started.
func (c *Coordinator) Sync(
	ctx context.Context,
	gen Generation,
	fetch func(context.Context) *models.PreferenceSnapshot,
	apply func(models.PreferenceSnapshot),
) bool {
	if !c.transition(gen, Unsynced, Syncing) {
		return false
	}
	defer c.transition(gen, Syncing, Synced)

	if remote := fetch(ctx); remote != nil {
		apply(*remote)
	}
	return true
}

func (c *Coordinator) transition(gen Generation, from, to SyncState) bool {
	c.mu.Lock()
	if c.gen != gen || c.state != from {
		c.mu.Unlock()
		return false
	}
	c.state = to
	c.mu.Unlock()
	c.notify(to)
	return true
}

func (c *Coordinator) notify(s SyncState) {
	if c.onState != nil {
		c.onState(s)
	}
}
