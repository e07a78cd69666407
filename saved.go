package discover

import "context"

// SavedSearch is a named search definition with the live source built from it.
type SavedSearch struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Index, Query and Sort are the persisted definition. Sync refreshes
	// them from Source before a save.
	Index string       `json:"index,omitempty"`
	Query *QueryString `json:"query,omitempty"`
	Sort  *Sort        `json:"sort,omitempty"`

	Source SearchSource `json:"-"`
}

// Sync copies the source's current index, query and primary sort into the
// definition.
func (s *SavedSearch) Sync() {
	if s.Source == nil {
		return
	}
	s.Index = s.Source.Index()
	if q := s.Source.Query(); q != nil {
		cp := *q
		s.Query = &cp
	} else {
		s.Query = nil
	}
	if sorts := s.Source.Sort(); len(sorts) > 0 {
		primary := sorts[0]
		s.Sort = &primary
	} else {
		s.Sort = nil
	}
}

// Destroy releases the source. Pending Next calls return ErrSourceClosed.
func (s *SavedSearch) Destroy() error {
	if s.Source == nil {
		return nil
	}
	return s.Source.Close()
}

// SavedSearchStore loads and saves search definitions.
type SavedSearchStore interface {
	// Get returns ErrNotFound for unknown ids. The returned search has no Source.
	Get(ctx context.Context, id string) (*SavedSearch, error)
	Save(ctx context.Context, s *SavedSearch) error
}

// Notifier surfaces messages to the user.
type Notifier interface {
	Info(ctx context.Context, msg string)
	Error(ctx context.Context, err error)
}

// Navigator changes the current location.
type Navigator interface {
	Navigate(path string)
}

// Config is a watched key/value settings store.
type Config interface {
	// Watch calls fn with the current value and on every change.
	// The returned func stops the watch.
	Watch(key string, fn func(value string)) func()
	Set(key, value string)
}

// Emitter receives lifecycle events.
type Emitter interface {
	Emit(event string)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string)

// Emit implements Emitter.
func (f EmitterFunc) Emit(event string) { f(event) }

const (
	// EventApplicationLoad is emitted once the controller is wired up.
	EventApplicationLoad = "application.load"

	// ConfigDefaultIndex holds the index used when none is chosen.
	ConfigDefaultIndex = "discover.defaultIndex"

	// DefaultIndex is written to ConfigDefaultIndex when it is unset.
	DefaultIndex = "_all"
)
