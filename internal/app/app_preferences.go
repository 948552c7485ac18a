package app

// ── Preferences ────────────────────────────────────────────

// GetPreference returns the value stored under key, or null.
func (a *App) GetPreference(key string) (any, error) {
	return a.prefs.Get(key)
}

// SetPreference stores value under key; null removes it.
func (a *App) SetPreference(key string, value any) error {
	return a.prefs.Set(key, value)
}
