package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

// memBackend is an in-memory Backend with injectable failures.
type memBackend struct {
	data   map[string][]byte
	getErr error
	putErr error
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}}
}

func (m *memBackend) Get(key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memBackend) Put(key string, value []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = value
	return nil
}

func TestRead_NothingStored(t *testing.T) {
	ls := NewLocalStore(newMemBackend(), "alice", nil)

	got := ls.Read()
	assert.Equal(t, models.DefaultPreferences(), got)
	assert.Empty(t, got.ActiveTabs)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	ls := NewLocalStore(newMemBackend(), "alice", nil)

	snap := models.DefaultPreferences()
	snap.ActiveTabs = []string{"vehicles", "maintenance"}
	snap.Theme = "dark"
	snap.CustomRooms = []string{"Garage"}
	snap.PrivateRelays = []string{"wss://private.example"}
	snap.ExchangeRates = &models.ExchangeRates{Base: "USD", Rates: map[string]float64{"EUR": 0.9}, FetchedAt: 100}

	require.NoError(t, ls.Write(snap))
	assert.Equal(t, snap, ls.Read())
}

func TestRead_BackfillsMissingFields(t *testing.T) {
	backend := newMemBackend()
	backend.data[Key("alice")] = []byte(`{"version":1,"theme":"dark","activeTabs":["pets"],"tabViewModes":{"pets":"list"}}`)
	ls := NewLocalStore(backend, "alice", nil)

	got := ls.Read()
	assert.Equal(t, models.CurrentSchemaVersion, got.Version)
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, []string{"pets"}, got.ActiveTabs)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "list", got.TabViewModes["pets"])
	assert.Equal(t, "cards", got.TabViewModes["vehicles"])
	for _, f := range got.ListFields() {
		assert.NotNil(t, *f)
	}
	assert.NotNil(t, got.StorageServers)
	assert.NotNil(t, got.PrivateRelays)
}

func TestRead_CorruptDocument(t *testing.T) {
	backend := newMemBackend()
	backend.data[Key("alice")] = []byte(`{not json`)
	ls := NewLocalStore(backend, "alice", nil)

	assert.Equal(t, models.DefaultPreferences(), ls.Read())
}

func TestRead_BackendError(t *testing.T) {
	backend := newMemBackend()
	backend.getErr = errors.New("disk gone")
	ls := NewLocalStore(backend, "alice", nil)

	assert.Equal(t, models.DefaultPreferences(), ls.Read())
}

func TestWrite_BackendError(t *testing.T) {
	backend := newMemBackend()
	backend.putErr = errors.New("disk full")
	ls := NewLocalStore(backend, "alice", nil)

	err := ls.Write(models.DefaultPreferences())
	assert.ErrorContains(t, err, "write preferences")
}

func TestLocalStore_IdentitiesAreIsolated(t *testing.T) {
	backend := newMemBackend()
	alice := NewLocalStore(backend, "alice", nil)
	bob := NewLocalStore(backend, "bob", nil)

	snap := models.DefaultPreferences()
	snap.Theme = "dark"
	require.NoError(t, alice.Write(snap))

	assert.Equal(t, "dark", alice.Read().Theme)
	assert.Equal(t, "system", bob.Read().Theme)
}

func TestFileBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "prefs")
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	_, err = b.Get("homekeeper:preferences:alice")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Put("homekeeper:preferences:alice", []byte(`{"theme":"dark"}`)))
	require.NoError(t, b.Put("homekeeper:preferences:alice", []byte(`{"theme":"light"}`)))

	got, err := b.Get("homekeeper:preferences:alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"light"}`, string(got))

	// no temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "homekeeper_preferences_alice.json", entries[0].Name())
}

func TestLocalStore_FileBackendSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	snap := models.DefaultPreferences()
	snap.CustomVehicleTypes = []string{"Tractor"}
	require.NoError(t, NewLocalStore(b, "alice", nil).Write(snap))

	reopened, err := NewFileBackend(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tractor"}, NewLocalStore(reopened, "alice", nil).Read().CustomVehicleTypes)
}
