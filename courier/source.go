package courier

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/discover"
)

type delivery struct {
	resp *discover.Response
	err  error
}

// Source is a discover.SearchSource scheduled by a Courier. Every setter
// marks the source pending; the next Courier.Fetch executes it and queues
// the outcome for Next.
type Source struct {
	courier *Courier

	mu      sync.Mutex
	req     discover.Request
	pending bool
	fields  map[string]discover.FieldInfo
	queue   []delivery
	closed  bool

	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ discover.SearchSource = (*Source)(nil)

func newSource(c *Courier, index string, query *discover.QueryString) *Source {
	s := &Source{
		courier: c,
		req:     discover.Request{Index: index, Query: query},
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	return s
}

// Index implements discover.SearchSource.
func (s *Source) Index() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req.Index
}

// SetIndex implements discover.SearchSource. Changing the index drops the
// cached field mapping.
func (s *Source) SetIndex(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.req.Index != name {
		s.fields = nil
	}
	s.req.Index = name
	s.pending = true
}

// SetSize implements discover.SearchSource.
func (s *Source) SetSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.req.Size = n
	s.pending = true
}

// Query implements discover.SearchSource.
func (s *Source) Query() *discover.QueryString {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.req.Query == nil {
		return nil
	}
	q := *s.req.Query
	return &q
}

// SetQuery implements discover.SearchSource.
func (s *Source) SetQuery(q *discover.QueryString) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q != nil {
		cp := *q
		q = &cp
	}
	s.req.Query = q
	s.pending = true
}

// Sort implements discover.SearchSource.
func (s *Source) Sort() []discover.Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]discover.Sort(nil), s.req.Sort...)
}

// SetSort implements discover.SearchSource.
func (s *Source) SetSort(sorts ...discover.Sort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.req.Sort = append([]discover.Sort(nil), sorts...)
	s.pending = true
}

// SetAggs implements discover.SearchSource.
func (s *Source) SetAggs(aggs map[string]discover.Aggregation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.req.Aggs = aggs
	s.pending = true
}

// Request returns a copy of the configured request.
func (s *Source) Request() *discover.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req.Clone()
}

// Fields implements discover.SearchSource.
func (s *Source) Fields(ctx context.Context) (map[string]discover.FieldInfo, error) {
	s.mu.Lock()
	if s.fields != nil {
		out := copyFields(s.fields)
		s.mu.Unlock()
		return out, nil
	}
	index := s.req.Index
	s.mu.Unlock()

	fields, err := s.courier.backend.ListFields(ctx, index)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list fields for %q", index)
	}

	s.mu.Lock()
	if s.req.Index == index {
		s.fields = copyFields(fields)
	}
	s.mu.Unlock()
	return fields, nil
}

// ClearFieldCache implements discover.SearchSource.
func (s *Source) ClearFieldCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = nil
	return nil
}

// Next implements discover.SearchSource.
func (s *Source) Next(ctx context.Context) (*discover.Response, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			d := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return d.resp, d.err
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return nil, discover.ErrSourceClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.ready:
		case <-s.done:
		}
	}
}

// Close implements discover.SearchSource. The source is removed from its
// courier; deliveries already queued can still be read.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.courier.remove(s)
	})
	return nil
}

// takePending returns the request to execute if the source changed since
// the last fetch.
func (s *Source) takePending() (*discover.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending || s.closed {
		return nil, false
	}
	s.pending = false
	return s.req.Clone(), true
}

func (s *Source) markPending() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
}

func (s *Source) deliver(resp *discover.Response, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, delivery{resp: resp, err: err})
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func copyFields(in map[string]discover.FieldInfo) map[string]discover.FieldInfo {
	if in == nil {
		return nil
	}
	out := make(map[string]discover.FieldInfo, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
