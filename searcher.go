package discover

import "context"

// Searcher executes a fully configured search request.
type Searcher interface {
	// Search runs req and returns hits plus any requested aggregations.
	Search(ctx context.Context, req *Request) (*Response, error)
}

// SearcherFunc is a function type that implements the Searcher interface.
// This allows using a function as a Searcher, similar to http.HandlerFunc.
type SearcherFunc func(context.Context, *Request) (*Response, error)

// Search implements the Searcher interface for SearcherFunc.
func (f SearcherFunc) Search(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// FieldLister reports the fields known for an index pattern.
type FieldLister interface {
	ListFields(ctx context.Context, index string) (map[string]FieldInfo, error)
}

// Backend is what a courier needs from a search engine.
type Backend interface {
	Searcher
	FieldLister
}

// SearchSource is a mutable query descriptor bound to a saved search.
// Setters only record configuration; execution happens when a Courier fetches.
type SearchSource interface {
	Index() string
	SetIndex(name string)
	SetSize(n int)
	// Query returns the current query body, nil when matching everything.
	Query() *QueryString
	SetQuery(q *QueryString)
	// Sort returns the configured sort keys, primary first.
	Sort() []Sort
	SetSort(sorts ...Sort)
	SetAggs(aggs map[string]Aggregation)

	// Fields returns the field mapping for the current index, cached.
	Fields(ctx context.Context) (map[string]FieldInfo, error)
	ClearFieldCache(ctx context.Context) error

	// Next blocks until the next result delivery. A delivery that is already
	// queued is returned even when ctx is done. It returns ErrSourceClosed
	// once the source is closed and every queued delivery has been read.
	Next(ctx context.Context) (*Response, error)

	Close() error
}

// Courier executes every pending search source.
type Courier interface {
	Fetch(ctx context.Context) error
}
