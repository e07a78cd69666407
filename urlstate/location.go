// Package urlstate keeps view state in a URL, the way a browser location
// carries it between reloads.
package urlstate

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/discover"
)

// StateParam is the query parameter holding the encoded view state.
const StateParam = "_a"

// Location is a mutable URL. It implements discover.StateStore over the
// StateParam query parameter and discover.Navigator over the path.
type Location struct {
	mu  sync.Mutex
	url *url.URL
}

var (
	_ discover.StateStore = (*Location)(nil)
	_ discover.Navigator  = (*Location)(nil)
)

// Parse creates a Location from a URL such as "/discover/errors?_a=...".
func Parse(raw string) (*Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid location %q", raw)
	}
	return &Location{url: u}, nil
}

// String returns the current URL.
func (l *Location) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url.String()
}

// Path returns the current path, escaped the way discover.ParseRoute expects.
func (l *Location) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url.EscapedPath()
}

// Navigate replaces the path with an escaped path such as one built by
// discover.RoutePath. The query string is kept.
func (l *Location) Navigate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, err := url.Parse(path)
	if err != nil {
		l.url.Path, l.url.RawPath = path, ""
		return
	}
	l.url.Path, l.url.RawPath = u.Path, u.RawPath
}

// Load implements discover.StateStore. Only keys present in the encoded
// state overwrite st.
func (l *Location) Load(ctx context.Context, st *discover.ViewState) error {
	l.mu.Lock()
	raw := l.url.Query().Get(StateParam)
	l.mu.Unlock()
	if raw == "" {
		return nil
	}

	var partial struct {
		Query   *string        `json:"query"`
		Columns []string       `json:"columns"`
		Sort    *discover.Sort `json:"sort"`
	}
	if err := json.Unmarshal([]byte(raw), &partial); err != nil {
		return errors.Wrapf(err, "invalid %s parameter", StateParam)
	}
	if partial.Query != nil {
		st.Query = *partial.Query
	}
	if partial.Columns != nil {
		st.Columns = partial.Columns
	}
	if partial.Sort != nil {
		st.Sort = *partial.Sort
	}
	return nil
}

// Save implements discover.StateStore.
func (l *Location) Save(ctx context.Context, st discover.ViewState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "failed to encode view state")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.url.Query()
	q.Set(StateParam, string(data))
	l.url.RawQuery = q.Encode()
	return nil
}
