// Package storage persists the preference snapshot of one identity on the
// local device. Reads never fail: anything missing or unreadable falls back
// to defaults.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

// ErrNotFound is returned by a Backend for a key that was never written.
var ErrNotFound = errors.New("key not found")

// KeyPrefix namespaces preference documents inside a backend.
const KeyPrefix = "homekeeper:preferences:"

// Backend is a durable key-value map. Put must not return before the value
// is durable.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Key returns the backend key holding identity's snapshot.
func Key(identity string) string {
	return KeyPrefix + identity
}

// LocalStore reads and writes the snapshot of a single identity.
type LocalStore struct {
	backend Backend
	key     string
	log     *zap.Logger
	mu      sync.Mutex
}

// NewLocalStore binds a backend to identity's namespace key.
func NewLocalStore(backend Backend, identity string, log *zap.Logger) *LocalStore {
	return &LocalStore{
		backend: backend,
		key:     Key(identity),
		log:     logger.OrNop(log),
	}
}

// Read returns the stored snapshot with missing fields backfilled from
// defaults, or the defaults when nothing usable is stored.
func (ls *LocalStore) Read() models.PreferenceSnapshot {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	raw, err := ls.backend.Get(ls.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			ls.log.Warn("failed to read local preferences, using defaults",
				zap.String("key", ls.key), zap.Error(err))
		}
		return models.DefaultPreferences()
	}

	var snap models.PreferenceSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		ls.log.Warn("stored preferences are corrupt, using defaults",
			zap.String("key", ls.key), zap.Error(err))
		return models.DefaultPreferences()
	}
	snap.BackfillDefaults()
	return snap
}

// Write stores snapshot durably before returning.
func (ls *LocalStore) Write(snapshot models.PreferenceSnapshot) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := ls.backend.Put(ls.key, b); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
