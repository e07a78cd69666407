package inmemory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/discover"
)

// SavedSearches is a discover.SavedSearchStore kept in memory.
type SavedSearches struct {
	mu       sync.RWMutex
	searches map[string]discover.SavedSearch
}

var _ discover.SavedSearchStore = (*SavedSearches)(nil)

// NewSavedSearches creates an empty store.
func NewSavedSearches() *SavedSearches {
	return &SavedSearches{searches: make(map[string]discover.SavedSearch)}
}

// Get implements discover.SavedSearchStore.
func (s *SavedSearches) Get(ctx context.Context, id string) (*discover.SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved, ok := s.searches[id]
	if !ok {
		return nil, errors.Wrapf(discover.ErrNotFound, "id %q", id)
	}
	return cloneDefinition(saved), nil
}

// Save implements discover.SavedSearchStore. Only the definition is kept.
func (s *SavedSearches) Save(ctx context.Context, saved *discover.SavedSearch) error {
	if saved == nil || saved.ID == "" {
		return errors.New("saved search needs an id")
	}
	def := cloneDefinition(*saved)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches[saved.ID] = *def
	return nil
}

func cloneDefinition(s discover.SavedSearch) *discover.SavedSearch {
	out := &discover.SavedSearch{ID: s.ID, Title: s.Title, Index: s.Index}
	if s.Query != nil {
		q := *s.Query
		out.Query = &q
	}
	if s.Sort != nil {
		primary := *s.Sort
		out.Sort = &primary
	}
	return out
}
