// Package courier schedules search sources against a search backend.
package courier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/letmevibethatforyou/discover"
)

// Courier executes pending sources when told to Fetch.
type Courier struct {
	backend discover.Backend
	logger  *slog.Logger
	tracer  trace.Tracer

	mu      sync.Mutex
	sources []*Source
}

var _ discover.Courier = (*Courier)(nil)

// Option configures a Courier.
type Option func(*Courier)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Courier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Courier) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New creates a Courier that runs searches on backend.
func New(backend discover.Backend, opts ...Option) *Courier {
	c := &Courier{
		backend: backend,
		logger:  slog.Default(),
		tracer:  otel.Tracer("discover-courier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSource registers a source starting from index and query.
func (c *Courier) NewSource(index string, query *discover.QueryString) *Source {
	if query != nil {
		cp := *query
		query = &cp
	}
	s := newSource(c, index, query)
	c.mu.Lock()
	c.sources = append(c.sources, s)
	c.mu.Unlock()
	return s
}

// Resolve loads the saved search named by a route id and attaches a new
// source to it. An empty id yields a new, unsaved search.
func (c *Courier) Resolve(ctx context.Context, store discover.SavedSearchStore, id string) (*discover.SavedSearch, error) {
	if id == "" {
		saved := &discover.SavedSearch{}
		saved.Source = c.NewSource("", nil)
		return saved, nil
	}

	saved, err := store.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load saved search %q", id)
	}
	source := c.NewSource(saved.Index, saved.Query)
	if saved.Sort != nil {
		source.SetSort(*saved.Sort)
	}
	saved.Source = source
	return saved, nil
}

// Fetch executes every source that changed since its last fetch, in
// registration order. Each outcome is queued on its source. Errors from
// individual sources are combined into the returned error.
func (c *Courier) Fetch(ctx context.Context) error {
	c.mu.Lock()
	sources := append([]*Source(nil), c.sources...)
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "courier.fetch",
		trace.WithAttributes(attribute.Int("courier.source_count", len(sources))),
	)
	defer span.End()

	var (
		errs     error
		executed int
	)
	for _, s := range sources {
		req, ok := s.takePending()
		if !ok {
			continue
		}
		executed++

		resp, err := c.backend.Search(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				// Not the source's fault; keep it pending for the next fetch.
				s.markPending()
				errs = errors.CombineErrors(errs, errors.Wrap(ctx.Err(), "fetch interrupted"))
				break
			}
			c.logger.WarnContext(ctx, "search failed", "index", req.Index, "error", err)
			s.deliver(nil, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "search on %q failed", req.Index))
			continue
		}
		s.deliver(resp, nil)
	}

	span.SetAttributes(attribute.Int("courier.executed_count", executed))
	if errs != nil {
		span.RecordError(errs)
		span.SetStatus(codes.Error, "fetch failed")
		return errs
	}
	span.SetStatus(codes.Ok, "fetch complete")
	return nil
}

func (c *Courier) remove(s *Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, src := range c.sources {
		if src == s {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)
			return
		}
	}
}
