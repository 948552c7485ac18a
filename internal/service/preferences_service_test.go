package service_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easel/internal/domain"
	"easel/internal/service"
	"easel/internal/storage"
)

func newPreferences(t *testing.T) (*service.PreferencesService, *storage.SettingsStore) {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := storage.NewSettingsStore(db)
	return service.NewPreferencesService(store), store
}

func TestPreferences_GetSet(t *testing.T) {
	prefs, _ := newPreferences(t)

	v, err := prefs.Get("theme")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, prefs.Set("theme", "dark"))
	require.NoError(t, prefs.Set("grid", map[string]any{"size": 8, "snap": true}))

	v, err = prefs.Get("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	v, err = prefs.Get("grid")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"size": 8.0, "snap": true}, v)

	require.NoError(t, prefs.Set("theme", nil))
	v, err = prefs.Get("theme")
	require.NoError(t, err)
	assert.Nil(t, v)

	err = prefs.Set("", 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestPreferences_CorruptValue(t *testing.T) {
	prefs, store := newPreferences(t)
	require.NoError(t, store.Set("broken", "{"))

	_, err := prefs.Get("broken")
	assert.True(t, errors.Is(err, domain.ErrFormat))
}

func TestPreferences_WindowSize(t *testing.T) {
	prefs, store := newPreferences(t)

	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900}, prefs.LoadWindowSize())

	require.NoError(t, prefs.SaveWindowSize(1600, 1000))
	assert.Equal(t, service.WindowSize{Width: 1600, Height: 1000}, prefs.LoadWindowSize())

	// too small to be usable
	require.NoError(t, prefs.SaveWindowSize(300, 200))
	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900}, prefs.LoadWindowSize())

	require.NoError(t, store.Set("window_size", "garbage"))
	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900}, prefs.LoadWindowSize())
}
