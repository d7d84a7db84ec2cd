package prefs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []SyncState
}

func (r *stateRecorder) record(s SyncState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func TestCoordinator_OncePerGeneration(t *testing.T) {
	rec := &stateRecorder{}
	gen := Generation{Identity: "alice"}
	c := NewCoordinator(gen, rec.record)
	assert.Equal(t, Unsynced, c.State())

	fetches := 0
	fetch := func(context.Context) *models.PreferenceSnapshot {
		fetches++
		p := models.DefaultPreferences()
		return &p
	}
	applied := 0
	apply := func(models.PreferenceSnapshot) { applied++ }

	assert.True(t, c.Sync(context.Background(), gen, fetch, apply))
	assert.False(t, c.Sync(context.Background(), gen, fetch, apply))
	assert.Equal(t, Synced, c.State())
	assert.Equal(t, 1, fetches)
	assert.Equal(t, 1, applied)

	next := Generation{Identity: "alice", EndpointVersion: 1}
	c.Advance(next)
	assert.Equal(t, Unsynced, c.State())
	c.Advance(next)

	// a pass for a stale generation does nothing
	assert.False(t, c.Sync(context.Background(), gen, fetch, apply))
	assert.True(t, c.Sync(context.Background(), next, fetch, apply))
	assert.Equal(t, 2, fetches)

	assert.Equal(t, []SyncState{Syncing, Synced, Unsynced, Syncing, Synced}, rec.states)
}

func TestCoordinator_SyncedWithoutRemoteData(t *testing.T) {
	gen := Generation{Identity: "alice"}
	c := NewCoordinator(gen, nil)

	var states []SyncState
	ok := c.Sync(context.Background(), gen,
		func(context.Context) *models.PreferenceSnapshot {
			states = append(states, c.State())
			return nil
		},
		func(models.PreferenceSnapshot) { t.Fatal("apply called without remote data") },
	)
	assert.True(t, ok)
	assert.Equal(t, []SyncState{Syncing}, states)
	assert.Equal(t, Synced, c.State())
}

func TestSyncState_String(t *testing.T) {
	assert.Equal(t, "unsynced", Unsynced.String())
	assert.Equal(t, "syncing", Syncing.String())
	assert.Equal(t, "synced", Synced.String())
}
