// Package theme holds the site's light/dark preference as observable
// process-wide state.
package theme

import (
	"fmt"
	"strings"
	"sync"
)

// Preference is a color scheme choice.
type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	System Preference = "system"
)

// Parse accepts light, dark or system (case-insensitive). Blank means System.
func Parse(s string) (Preference, error) {
	switch p := Preference(strings.ToLower(strings.TrimSpace(s))); p {
	case Light, Dark, System:
		return p, nil
	case "":
		return System, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want light, dark or system)", s)
	}
}

// Resolve turns System into a concrete scheme using the client's
// Sec-CH-Prefers-Color-Scheme hint. Without a usable hint it picks Light.
func Resolve(p Preference, hint string) Preference {
	if p == Light || p == Dark {
		return p
	}
	if strings.EqualFold(strings.Trim(hint, `" `), string(Dark)) {
		return Dark
	}
	return Light
}

// Toggle returns the opposite concrete scheme.
func Toggle(p Preference) Preference {
	if p == Dark {
		return Light
	}
	return Dark
}

// Store is the current preference plus its subscribers.
type Store struct {
	mu     sync.RWMutex
	cur    Preference
	nextID int
	subs   map[int]func(Preference)
}

// NewStore creates a store seeded with initial.
func NewStore(initial Preference) *Store {
	if initial == "" {
		initial = System
	}
	return &Store{cur: initial, subs: make(map[int]func(Preference))}
}

// Current returns the stored preference.
func (s *Store) Current() Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Set replaces the preference and notifies subscribers if it changed.
// Subscribers run synchronously, outside the store's lock.
func (s *Store) Set(p Preference) {
	s.mu.Lock()
	if p == s.cur {
		s.mu.Unlock()
		return
	}
	s.cur = p
	fns := make([]func(Preference), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// Subscribe registers fn for future changes. The returned function removes
// the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Preference)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers reports how many subscriptions are live.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
