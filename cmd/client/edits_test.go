package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

func TestEdits(t *testing.T) {
	tests := []struct {
		name  string
		build func() (edit, error)
		check func(t *testing.T, p models.PreferenceSnapshot)
	}{
		{
			name:  "theme",
			build: func() (edit, error) { return setScalar("theme", "dark") },
			check: func(t *testing.T, p models.PreferenceSnapshot) { assert.Equal(t, "dark", p.Theme) },
		},
		{
			name:  "currency is upper-cased",
			build: func() (edit, error) { return setScalar("currency", "eur") },
			check: func(t *testing.T, p models.PreferenceSnapshot) { assert.Equal(t, "EUR", p.Currency) },
		},
		{
			name:  "view mode",
			build: func() (edit, error) { return setViewMode("vehicles", "table") },
			check: func(t *testing.T, p models.PreferenceSnapshot) { assert.Equal(t, "table", p.TabViewModes["vehicles"]) },
		},
		{
			name:  "enable tab",
			build: func() (edit, error) { return toggleTab("pets", true) },
			check: func(t *testing.T, p models.PreferenceSnapshot) { assert.Equal(t, []string{"pets"}, p.ActiveTabs) },
		},
		{
			name:  "add label",
			build: func() (edit, error) { return listOp("add", "rooms", " Garage ") },
			check: func(t *testing.T, p models.PreferenceSnapshot) { assert.Equal(t, []string{"Garage"}, p.CustomRooms) },
		},
		{
			name:  "hide default",
			build: func() (edit, error) { return listOp("hide", "petTypes", "Fish") },
			check: func(t *testing.T, p models.PreferenceSnapshot) { assert.Equal(t, []string{"Fish"}, p.HiddenDefaultPetTypes) },
		},
		{
			name:  "add relay",
			build: func() (edit, error) { return relayOp("add", "wss://relay.example/") },
			check: func(t *testing.T, p models.PreferenceSnapshot) {
				assert.Equal(t, []string{"wss://relay.example"}, p.PrivateRelays)
			},
		},
		{
			name:  "add storage server",
			build: func() (edit, error) { return storageOp("add", "https://blobs.example", true) },
			check: func(t *testing.T, p models.PreferenceSnapshot) {
				assert.Equal(t, []models.StorageServer{{URL: "https://blobs.example", Enabled: true, Trusted: true}}, p.StorageServers)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.build()
			require.NoError(t, err)
			p := models.DefaultPreferences()
			e(&p)
			tt.check(t, p)
		})
	}
}

func TestEdits_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		build func() (edit, error)
	}{
		{"unknown setting", func() (edit, error) { return setScalar("font", "mono") }},
		{"bad theme", func() (edit, error) { return setScalar("theme", "neon") }},
		{"bad currency", func() (edit, error) { return setScalar("currency", "XYZ1") }},
		{"bad distance", func() (edit, error) { return setScalar("distance", "ly") }},
		{"unknown view mode tab", func() (edit, error) { return setViewMode("garden", "cards") }},
		{"bad view mode", func() (edit, error) { return setViewMode("pets", "grid") }},
		{"unknown tab", func() (edit, error) { return toggleTab("garden", true) }},
		{"unknown list", func() (edit, error) { return listOp("add", "colors", "Red") }},
		{"empty label", func() (edit, error) { return listOp("add", "rooms", "  ") }},
		{"bad list op", func() (edit, error) { return listOp("rename", "rooms", "Den") }},
		{"bad relay", func() (edit, error) { return relayOp("add", "not a url") }},
		{"bad relay op", func() (edit, error) { return relayOp("list", "wss://relay.example") }},
		{"storage needs http", func() (edit, error) { return storageOp("add", "wss://relay.example", false) }},
		{"bad storage op", func() (edit, error) { return storageOp("trust", "https://blobs.example", false) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.Error(t, err)
		})
	}
}

func TestRemoveIsCaseInsensitive(t *testing.T) {
	p := models.DefaultPreferences()
	p.CustomRooms = []string{"Garage", "Attic"}
	p.HiddenDefaultRooms = []string{"Basement"}

	e, err := listOp("remove", "rooms", "GARAGE")
	require.NoError(t, err)
	e(&p)
	e, err = listOp("unhide", "rooms", "basement")
	require.NoError(t, err)
	e(&p)

	assert.Equal(t, []string{"Attic"}, p.CustomRooms)
	assert.Empty(t, p.HiddenDefaultRooms)
}

func TestToggleTabIsIdempotent(t *testing.T) {
	p := models.DefaultPreferences()
	enable, _ := toggleTab("pets", true)
	disable, _ := toggleTab("pets", false)

	enable(&p)
	enable(&p)
	assert.Equal(t, []string{"pets"}, p.ActiveTabs)
	disable(&p)
	disable(&p)
	assert.Empty(t, p.ActiveTabs)
}

func TestStorageToggle(t *testing.T) {
	p := models.DefaultPreferences()
	add, _ := storageOp("add", "https://blobs.example", false)
	disable, _ := storageOp("disable", "https://blobs.example", false)
	remove, _ := storageOp("remove", "https://blobs.example", false)

	add(&p)
	add(&p)
	require.Len(t, p.StorageServers, 1)
	disable(&p)
	assert.False(t, p.StorageServers[0].Enabled)
	remove(&p)
	assert.Empty(t, p.StorageServers)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{line: "show", want: []string{"show"}},
		{line: "  set   theme\tdark ", want: []string{"set", "theme", "dark"}},
		{line: `list add rooms "Wine Cellar"`, want: []string{"list", "add", "rooms", "Wine Cellar"}},
		{line: `list add rooms 'Boot Room'`, want: []string{"list", "add", "rooms", "Boot Room"}},
		{line: `list add rooms Wine\ Cellar`, want: []string{"list", "add", "rooms", "Wine Cellar"}},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	got, err := splitArgs("   ")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = splitArgs(`list add rooms "Wine`)
	assert.Error(t, err)
}
