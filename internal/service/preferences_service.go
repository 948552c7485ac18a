package service

import (
	"encoding/json"
	"fmt"
	"log"

	"easel/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Preferences: frontend settings and window size
// ─────────────────────────────────────────────────────────────
//
// Values are stored as JSON text so the frontend can keep any shape it
// likes under a key. The window size is stored the same way.

// SettingsStore is the key-value table behind PreferencesService.
type SettingsStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

const (
	settingWindowSize   = "window_size"
	defaultWindowWidth  = 1440
	defaultWindowHeight = 900
	minWindowWidth      = 800
	minWindowHeight     = 600
)

// PreferencesService persists frontend preferences between sessions.
type PreferencesService struct {
	store SettingsStore
}

func NewPreferencesService(store SettingsStore) *PreferencesService {
	return &PreferencesService{store: store}
}

// Get returns the decoded value stored under key, or nil if none is.
func (s *PreferencesService) Get(key string) (any, error) {
	raw, ok, err := s.store.Get(key)
	if err != nil || !ok {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: preference %s: %v", domain.ErrFormat, key, err)
	}
	return v, nil
}

// Set stores value under key. A nil value removes the key.
func (s *PreferencesService) Set(key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: preference key is required", domain.ErrInvalidArgument)
	}
	if value == nil {
		return s.store.Delete(key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: preference %s: %v", domain.ErrInvalidArgument, key, err)
	}
	return s.store.Set(key, string(data))
}

// LoadWindowSize returns the saved window dimensions, or the defaults when
// nothing usable is stored.
func (s *PreferencesService) LoadWindowSize() WindowSize {
	size := WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	raw, ok, err := s.store.Get(settingWindowSize)
	if err != nil {
		log.Printf("[preferences] load window size: %v", err)
		return size
	}
	if !ok {
		return size
	}
	var saved WindowSize
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return size
	}
	if saved.Width >= minWindowWidth {
		size.Width = saved.Width
	}
	if saved.Height >= minWindowHeight {
		size.Height = saved.Height
	}
	return size
}

// SaveWindowSize persists the current window dimensions.
func (s *PreferencesService) SaveWindowSize(width, height int) error {
	data, _ := json.Marshal(WindowSize{Width: width, Height: height})
	return s.store.Set(settingWindowSize, string(data))
}
