// Package settings is a watched key/value store for runtime settings such
// as discover.defaultIndex.
package settings

import (
	"sync"

	"github.com/letmevibethatforyou/discover"
)

type watcher struct {
	id int
	fn func(string)
}

// Store holds string settings. Watchers run synchronously on the goroutine
// that changed the value, outside the store's lock.
type Store struct {
	mu       sync.Mutex
	values   map[string]string
	watchers map[string][]watcher
	nextID   int
}

var _ discover.Config = (*Store)(nil)

// New creates a Store seeded with initial values.
func New(initial map[string]string) *Store {
	s := &Store{
		values:   make(map[string]string, len(initial)),
		watchers: make(map[string][]watcher),
	}
	for k, v := range initial {
		s.values[k] = v
	}
	return s
}

// Get returns the value of key, "" when unset.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set stores value and notifies watchers of key when it changed.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	old, had := s.values[key]
	if had && old == value {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	fns := make([]func(string), 0, len(s.watchers[key]))
	for _, w := range s.watchers[key] {
		fns = append(fns, w.fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Watch implements discover.Config. fn is called once with the current value.
func (s *Store) Watch(key string, fn func(string)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[key] = append(s.watchers[key], watcher{id: id, fn: fn})
	current := s.values[key]
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.watchers[key]
		for i, w := range list {
			if w.id == id {
				s.watchers[key] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}
