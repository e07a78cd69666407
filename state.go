package discover

import "context"

// ViewState is the part of the page that survives a reload.
type ViewState struct {
	Query   string   `json:"query"`
	Columns []string `json:"columns"`
	Sort    Sort     `json:"sort"`
}

// Clone returns a copy that shares no memory with s.
func (s ViewState) Clone() ViewState {
	s.Columns = append([]string(nil), s.Columns...)
	return s
}

// StateStore persists view state somewhere durable, such as the URL.
type StateStore interface {
	// Load decodes persisted keys onto st. Keys that were never persisted
	// leave the corresponding fields of st untouched.
	Load(ctx context.Context, st *ViewState) error
	Save(ctx context.Context, st ViewState) error
}

func defaultViewState(initialQuery string) ViewState {
	return ViewState{
		Query:   initialQuery,
		Columns: []string{SourceField},
		Sort:    Sort{Field: "_score", Direction: Desc},
	}
}
