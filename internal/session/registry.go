// Package session keeps the per-guild playback state.
//
// A [Registry] hands out one [State] per session key (the guild ID). States
// are created lazily with default settings on first reference and are never
// removed for the lifetime of the process. All mutation goes through
// [Registry.Do], which serialises work on one key while leaving other keys
// free to proceed in parallel.
package session

import (
	"slices"
	"sync"

	"github.com/MrWong99/soursound/internal/noise"
)

// ViewRef points at the last control panel posted for a session. It is a weak
// reference: the message may have been deleted at any time.
type ViewRef struct {
	ChannelID string
	MessageID string
}

// State is the mutable record of one session.
type State struct {
	// Key identifies the session. It is the guild ID.
	Key string

	// Settings are the synthesis parameters applied on the next play.
	Settings noise.Settings

	// Cursor is the quick-select position in the preset catalog. It moves
	// independently of Settings.Preset.
	Cursor int

	// View is the last known control panel, or nil.
	View *ViewRef
}

// clone returns a deep copy of s.
func (s *State) clone() State {
	c := *s
	if s.View != nil {
		v := *s.View
		c.View = &v
	}
	return c
}

type entry struct {
	mu    sync.Mutex
	state *State
}

// Registry owns every session [State]. The zero value is not usable; create
// one with [NewRegistry].
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) entry(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{state: &State{Key: key, Settings: noise.DefaultSettings()}}
		r.entries[key] = e
	}
	return e
}

// GetOrCreate returns a copy of the state for key, creating it with default
// settings if this is the first reference. It never fails.
func (r *Registry) GetOrCreate(key string) State {
	e := r.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Do runs fn with exclusive access to the state for key, creating the state
// if needed. fn may mutate the state freely; the lock is held until fn
// returns. Calls for different keys do not block each other.
func (r *Registry) Do(key string, fn func(*State) error) error {
	e := r.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// Keys returns the keys of every session created so far, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
