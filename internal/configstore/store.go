// Package configstore provides the in-memory configuration key-value store
// backing the framework's config callbacks. The store is a narrow external
// collaborator of the command framework: the framework owns the whitelist
// contract and callback dispatch, the store owns the values and change
// notification.
//
// Keys are declared with defaults at construction; setting an undeclared key
// is an error so typos never create phantom configuration. Watchers fire on
// every successful mutation, letting components like the logging system react
// to runtime changes without polling.
package configstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/validate"
)

// WatchFunc is called after a key changes, with the old and new values.
type WatchFunc func(key, old, new string)

// Store is a concurrency-safe configuration store with declared keys,
// defaults, and per-key change watchers.
type Store struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers map[string][]WatchFunc
}

// New creates a store seeded with the given declared keys and defaults.
// Every key must satisfy the dotted config key format.
func New(defaults map[string]string) (*Store, error) {
	values := make(map[string]string, len(defaults))
	for key, value := range defaults {
		if err := validate.ConfigKeyFormat(key); err != nil {
			return nil, err
		}
		values[key] = value
	}

	return &Store{
		values:   values,
		watchers: make(map[string][]WatchFunc),
	}, nil
}

// Get returns the current value of a declared key.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	value, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("config key %q not declared", key)
	}
	return value, nil
}

// Set updates a declared key and notifies its watchers. Undeclared keys are
// rejected; declaration happens only at construction.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	old, ok := s.values[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("config key %q not declared", key)
	}
	s.values[key] = value
	watchers := append([]WatchFunc(nil), s.watchers[key]...)
	s.mu.Unlock()

	// Watchers run outside the lock so slow handlers cannot stall readers.
	for _, fn := range watchers {
		fn(key, old, value)
	}
	return nil
}

// Watch registers a change callback for a key. Watchers fire in registration
// order on every successful Set.
func (s *Store) Watch(key string, fn WatchFunc) {
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], fn)
	s.mu.Unlock()
}

// Keys returns the declared key set in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Entry adapts one declared key into the framework's config callback shape.
// The optional formatter applies on display only; stored values stay raw.
func (s *Store) Entry(format func(key, raw string) string) *command.ConfigEntry {
	return &command.ConfigEntry{
		Get:    s.Get,
		Set:    s.Set,
		Format: format,
	}
}

// RegisterAll registers every declared key's callbacks into the framework
// registry. Whitelisting stays a separate, explicit step: registration alone
// leaves every key read-only.
func (s *Store) RegisterAll(r *command.Registry) error {
	for _, key := range s.Keys() {
		if err := r.RegisterConfig(key, s.Entry(nil)); err != nil {
			return fmt.Errorf("failed to register config key %q: %w", key, err)
		}
	}
	return nil
}
