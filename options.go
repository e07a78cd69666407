package discover

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	// TimestampField is the field the events histogram buckets on.
	TimestampField = "@timestamp"

	// EventsAggregation names the histogram aggregation in requests and responses.
	EventsAggregation = "events"

	// HistogramInterval is the fixed bucket width of the events histogram.
	HistogramInterval = 12 * time.Hour

	// HistogramFormat is the time layout used for bucket keys.
	HistogramFormat = "2006-01-02"
)

// QueryString is a free-text query in query_string syntax.
type QueryString struct {
	Query string `json:"query"`
}

// Sort is a single-key sort. It serializes as ["field","direction"].
type Sort struct {
	Field     string
	Direction Direction
}

// MarshalJSON implements json.Marshaler.
func (s Sort) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{s.Field, string(s.Direction)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Sort) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "sort must be a [field, direction] pair")
	}
	if len(pair) != 2 {
		return errors.Newf("sort must have 2 elements, got %d", len(pair))
	}
	d := Direction(pair[1])
	if !d.Valid() {
		return errors.Wrapf(ErrInvalidSort, "direction %q", pair[1])
	}
	s.Field, s.Direction = pair[0], d
	return nil
}

// DateHistogram buckets documents by a time field.
type DateHistogram struct {
	Field    string
	Interval time.Duration
	Format   string
}

// Aggregation is one named aggregation of a request.
type Aggregation struct {
	DateHistogram *DateHistogram
}

// Request is the search a source hands to its backend.
type Request struct {
	// Index is the index pattern to search.
	Index string

	// Size is the maximum number of hits to return.
	Size int

	// Query is nil when every document matches.
	Query *QueryString

	Sort []Sort

	Aggs map[string]Aggregation
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	out := *r
	if r.Query != nil {
		q := *r.Query
		out.Query = &q
	}
	out.Sort = append([]Sort(nil), r.Sort...)
	if r.Aggs != nil {
		out.Aggs = make(map[string]Aggregation, len(r.Aggs))
		for k, v := range r.Aggs {
			if v.DateHistogram != nil {
				h := *v.DateHistogram
				v.DateHistogram = &h
			}
			out.Aggs[k] = v
		}
	}
	return &out
}

// EventsHistogram is the aggregation every fetch requests.
func EventsHistogram() map[string]Aggregation {
	return map[string]Aggregation{
		EventsAggregation: {
			DateHistogram: &DateHistogram{
				Field:    TimestampField,
				Interval: HistogramInterval,
				Format:   HistogramFormat,
			},
		},
	}
}
