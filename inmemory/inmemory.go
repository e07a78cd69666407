package inmemory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/discover"
)

// Document represents a JSON document in the in-memory database.
type Document struct {
	// ID is the unique identifier for the document.
	ID string
	// Index is the concrete index the document belongs to.
	Index string
	// Fields contains the document's data as key-value pairs.
	Fields map[string]interface{}
}

// Backend implements discover.Backend using an in-memory store.
type Backend struct {
	mu        sync.RWMutex
	documents []Document
	idIndex   map[string]int // maps index/id to position in documents slice
}

var _ discover.Backend = (*Backend)(nil)

// New creates a new in-memory backend.
// The backend is ready to use and is safe for concurrent operations.
func New() *Backend {
	return &Backend{
		documents: make([]Document, 0),
		idIndex:   make(map[string]int),
	}
}

func docKey(index, id string) string {
	return index + "/" + id
}

// AddDocument adds a document to the in-memory store.
// If a document with the same index and ID already exists, it will be updated.
func (b *Backend) AddDocument(doc Document) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := docKey(doc.Index, doc.ID)
	if idx, exists := b.idIndex[key]; exists {
		b.documents[idx] = doc
	} else {
		b.idIndex[key] = len(b.documents)
		b.documents = append(b.documents, doc)
	}
}

// AddJSON adds a JSON object document to index.
func (b *Backend) AddJSON(index, id string, jsonData []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(jsonData, &fields); err != nil {
		return errors.Wrap(err, "failed to unmarshal JSON")
	}

	b.AddDocument(Document{
		ID:     id,
		Index:  index,
		Fields: fields,
	})
	return nil
}

// LoadNDJSON adds one document per non-empty line of r. A string "_id"
// property becomes the document ID, otherwise the line number is used.
// It returns the number of documents added.
func (b *Backend) LoadNDJSON(r io.Reader, index string) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	count := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var fields map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return count, errors.Wrapf(err, "line %d", line)
		}
		id := strconv.Itoa(line)
		if v, ok := fields["_id"].(string); ok && v != "" {
			id = v
			delete(fields, "_id")
		}
		b.AddDocument(Document{ID: id, Index: index, Fields: fields})
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, errors.Wrap(err, "failed to read documents")
	}
	return count, nil
}

// RemoveDocument removes a document from the store.
// Returns true if the document was found and removed.
func (b *Backend) RemoveDocument(index, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, exists := b.idIndex[docKey(index, id)]
	if !exists {
		return false
	}

	b.documents = append(b.documents[:idx], b.documents[idx+1:]...)

	delete(b.idIndex, docKey(index, id))
	for i := idx; i < len(b.documents); i++ {
		b.idIndex[docKey(b.documents[i].Index, b.documents[i].ID)] = i
	}

	return true
}

// Clear removes all documents from the store.
func (b *Backend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.documents = make([]Document, 0)
	b.idIndex = make(map[string]int)
}

// Size returns the number of documents currently stored.
func (b *Backend) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.documents)
}

// Search implements discover.Searcher.
func (b *Backend) Search(ctx context.Context, req *discover.Request) (*discover.Response, error) {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return nil, discover.ErrCanceled
	default:
	}

	parsed := &discover.ParsedQuery{}
	if req.Query != nil {
		var err error
		parsed, err = discover.ParseQueryString(req.Query.Query)
		if err != nil {
			return nil, err
		}
	}

	size := req.Size
	if size <= 0 {
		size = 10
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var matches []scoredDocument
	for _, doc := range b.documents {
		select {
		case <-ctx.Done():
			return nil, discover.ErrCanceled
		default:
		}

		if !matchIndex(req.Index, doc.Index) {
			continue
		}
		if !b.matchesFilters(doc, parsed.Filters) {
			continue
		}
		if b.containsAny(doc, parsed.Excluded) {
			continue
		}

		score := b.scoreDocument(doc, parsed.Terms)
		if score > 0 {
			matches = append(matches, scoredDocument{
				document: doc,
				score:    score,
			})
		}
	}

	b.sortMatches(matches, req.Sort)

	resp := &discover.Response{
		Hits: discover.Hits{
			Total: int64(len(matches)),
			Hits:  make([]discover.Hit, 0, min(size, len(matches))),
		},
	}

	for i := 0; i < len(matches) && i < size; i++ {
		match := matches[i]
		if match.score > resp.Hits.MaxScore {
			resp.Hits.MaxScore = match.score
		}
		resp.Hits.Hits = append(resp.Hits.Hits, discover.Hit{
			Index:  match.document.Index,
			ID:     match.document.ID,
			Score:  match.score,
			Source: match.document.Fields,
		})
	}

	if len(req.Aggs) > 0 {
		resp.Aggregations = make(map[string]discover.AggregationResult, len(req.Aggs))
		for name, agg := range req.Aggs {
			if agg.DateHistogram == nil {
				continue
			}
			resp.Aggregations[name] = discover.AggregationResult{
				Buckets: dateHistogram(matches, agg.DateHistogram),
			}
		}
	}

	resp.Took = time.Since(startTime).Milliseconds()
	return resp, nil
}

// matchIndex reports whether a concrete index matches a comma separated
// list of patterns. Empty and _all match everything.
func matchIndex(pattern, index string) bool {
	if pattern == "" || pattern == discover.DefaultIndex {
		return true
	}
	for _, p := range strings.Split(pattern, ",") {
		p = strings.TrimSpace(p)
		if ok, err := path.Match(p, index); err == nil && ok {
			return true
		}
	}
	return false
}

type scoredDocument struct {
	document Document
	score    float64
}

// scoreDocument calculates the relevance score for a document based on the terms.
func (b *Backend) scoreDocument(doc Document, terms []string) float64 {
	if len(terms) == 0 {
		return 1.0 // All documents match an empty query
	}

	score := 0.0
	matchedTerms := 0

	for _, term := range terms {
		term = strings.ToLower(term)
		termMatched := false
		for _, value := range doc.Fields {
			if b.valueContainsTerm(value, term) {
				termMatched = true
				score += 1.0
			}
		}
		if termMatched {
			matchedTerms++
		}
	}

	if matchedTerms == 0 {
		return 0
	}

	// Boost score if all terms matched
	if matchedTerms == len(terms) {
		score *= 1.5
	}

	return score
}

func (b *Backend) containsAny(doc Document, terms []string) bool {
	for _, term := range terms {
		term = strings.ToLower(term)
		for _, value := range doc.Fields {
			if b.valueContainsTerm(value, term) {
				return true
			}
		}
	}
	return false
}

// valueContainsTerm checks if a value contains the search term.
func (b *Backend) valueContainsTerm(value interface{}, term string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), term)
	case []interface{}:
		for _, item := range v {
			if b.valueContainsTerm(item, term) {
				return true
			}
		}
	case map[string]interface{}:
		for _, item := range v {
			if b.valueContainsTerm(item, term) {
				return true
			}
		}
	default:
		str := fmt.Sprintf("%v", v)
		return strings.Contains(strings.ToLower(str), term)
	}
	return false
}

// sortMatches sorts the matched documents according to the sort configuration.
func (b *Backend) sortMatches(matches []scoredDocument, sortFields []discover.Sort) {
	if len(sortFields) == 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].score > matches[j].score
		})
		return
	}

	sort.SliceStable(matches, func(i, j int) bool {
		for _, sf := range sortFields {
			desc := sf.Direction == discover.Desc
			if sf.Field == "_score" {
				if matches[i].score != matches[j].score {
					if desc {
						return matches[i].score > matches[j].score
					}
					return matches[i].score < matches[j].score
				}
				continue
			}

			val1 := matches[i].document.Fields[sf.Field]
			val2 := matches[j].document.Fields[sf.Field]

			cmp := b.compareValues(val1, val2)
			if cmp != 0 {
				if desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

// compareValues compares two values for sorting.
func (b *Backend) compareValues(v1, v2 interface{}) int {
	if v1 == nil && v2 == nil {
		return 0
	}
	if v1 == nil {
		return -1
	}
	if v2 == nil {
		return 1
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			if f1 < f2 {
				return -1
			} else if f1 > f2 {
				return 1
			}
			return 0
		}
	}

	s1 := fmt.Sprintf("%v", v1)
	s2 := fmt.Sprintf("%v", v2)
	return strings.Compare(s1, s2)
}
