// Package prefs persists user preferences as a single JSON document at a
// well-known path. Mutations are written through immediately; the last
// writer wins.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"farmhand/internal/i18n"
)

// Preferences is the user's profile record
type Preferences struct {
	Language string `json:"language"`
	Region   string `json:"region"`
	Name     string `json:"name"`
	FirstRun bool   `json:"first_run"`
}

// Store loads and saves the preferences document
type Store struct {
	path string
	mu   sync.Mutex
	cur  Preferences
}

// NewStore loads preferences from path, creating defaults on first run
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.cur = defaults()
		if err := s.writeLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prefs: failed to read %s: %w", path, err)
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("prefs: failed to parse %s: %w", path, err)
	}
	if !i18n.Supported(p.Language) {
		p.Language = i18n.DefaultLanguage
	}
	s.cur = p
	return s, nil
}

func defaults() Preferences {
	return Preferences{
		Language: i18n.DefaultLanguage,
		FirstRun: true,
	}
}

// Get returns the current preferences
func (s *Store) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Set replaces the preferences and persists immediately. An unknown
// language code is mapped to the default language so translation lookups
// always resolve a table.
func (s *Store) Set(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !i18n.Supported(p.Language) {
		p.Language = i18n.DefaultLanguage
	}
	s.cur = p
	return s.writeLocked()
}

// Update applies fn to the current preferences and persists the result
func (s *Store) Update(fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.cur)
	if !i18n.Supported(s.cur.Language) {
		s.cur.Language = i18n.DefaultLanguage
	}
	return s.writeLocked()
}

func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.cur, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: failed to marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("prefs: failed to write %s: %w", s.path, err)
	}
	return nil
}
