package algolia

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/discover"
)

// IndexSearcher is the part of Client the backend needs.
type IndexSearcher interface {
	Search(ctx context.Context, indexName, query string, params ...interface{}) (search.QueryRes, error)
}

var _ IndexSearcher = (*Client)(nil)

// Backend implements discover.Backend on a single Algolia index. Index
// patterns in requests are not resolved: every request searches indexName.
//
// Algolia sorts through replica indices, so a requested sort is applied to
// the returned page only. Histograms are likewise built from the returned
// hits, which makes SampleSize the bound on what the chart can count.
type Backend struct {
	client     IndexSearcher
	indexName  string
	sampleSize int
}

var _ discover.Backend = (*Backend)(nil)

// NewBackend creates a backend for indexName.
func NewBackend(client IndexSearcher, indexName string) *Backend {
	return &Backend{
		client:     client,
		indexName:  indexName,
		sampleSize: 100,
	}
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
		if err := checkFilters(parsed.Filters); err != nil {
			return nil, err
		}
	}

	size := req.Size
	if size <= 0 {
		size = 10
	}

	query, params := buildSearchParams(parsed, size)
	res, err := b.client.Search(ctx, b.indexName, query, params...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, errors.WithSecondaryError(discover.ErrCanceled, err)
		}
		return nil, errors.WithSecondaryError(
			discover.ErrBackendUnavailable,
			errors.Wrapf(err, "Algolia search failed"),
		)
	}

	resp := toResponse(b.indexName, res)
	sortHits(resp.Hits.Hits, req.Sort)

	if len(req.Aggs) > 0 {
		resp.Aggregations = make(map[string]discover.AggregationResult, len(req.Aggs))
		for name, agg := range req.Aggs {
			if agg.DateHistogram == nil {
				continue
			}
			values := make([]interface{}, 0, len(resp.Hits.Hits))
			for _, hit := range resp.Hits.Hits {
				if v, ok := hit.Source[agg.DateHistogram.Field]; ok {
					values = append(values, v)
				}
			}
			resp.Aggregations[name] = discover.AggregationResult{
				Buckets: discover.DateBuckets(values, agg.DateHistogram),
			}
		}
	}

	resp.Took = time.Since(startTime).Milliseconds()
	return resp, nil
}

// ListFields implements discover.FieldLister by sampling the index.
func (b *Backend) ListFields(ctx context.Context, index string) (map[string]discover.FieldInfo, error) {
	res, err := b.client.Search(ctx, b.indexName, "", opt.HitsPerPage(b.sampleSize))
	if err != nil {
		return nil, errors.WithSecondaryError(
			discover.ErrBackendUnavailable,
			errors.Wrapf(err, "failed to sample fields of %s", b.indexName),
		)
	}

	fields := make(map[string]discover.FieldInfo)
	for _, hit := range res.Hits {
		for name, value := range hit {
			if isInternalAttribute(name) || value == nil {
				continue
			}
			if _, seen := fields[name]; !seen {
				fields[name] = discover.FieldInfo{Type: discover.InferFieldType(value)}
			}
		}
	}
	return fields, nil
}

// buildSearchParams converts a parsed query into an Algolia query string
// and search parameters.
func buildSearchParams(parsed *discover.ParsedQuery, size int) (string, []interface{}) {
	words := append([]string(nil), parsed.Terms...)
	for _, ex := range parsed.Excluded {
		words = append(words, "-"+ex)
	}

	params := []interface{}{opt.HitsPerPage(size)}
	if len(parsed.Excluded) > 0 {
		params = append(params, opt.AdvancedSyntax(true))
	}

	if len(parsed.Filters) > 0 {
		filterStrings := make([]string, 0, len(parsed.Filters))
		for _, expr := range parsed.Filters {
			filterStr := convertExpressionToFilter(expr)
			if filterStr == "" {
				continue
			}
			if _, ok := expr.(discover.OrExpr); ok && len(parsed.Filters) > 1 {
				filterStr = "(" + filterStr + ")"
			}
			filterStrings = append(filterStrings, filterStr)
		}
		if len(filterStrings) > 0 {
			params = append(params, opt.Filters(strings.Join(filterStrings, " AND ")))
		}
	}

	return strings.Join(words, " "), params
}

func toResponse(indexName string, res search.QueryRes) *discover.Response {
	resp := &discover.Response{
		Hits: discover.Hits{
			Total: int64(res.NbHits),
			Hits:  make([]discover.Hit, 0, len(res.Hits)),
		},
	}

	for i, hit := range res.Hits {
		objectID, _ := hit["objectID"].(string)

		source := make(map[string]interface{}, len(hit))
		for k, v := range hit {
			if !isInternalAttribute(k) {
				source[k] = v
			}
		}

		score := calculateScore(len(res.Hits), i)
		if score > resp.Hits.MaxScore {
			resp.Hits.MaxScore = score
		}
		resp.Hits.Hits = append(resp.Hits.Hits, discover.Hit{
			Index:  indexName,
			ID:     objectID,
			Score:  score,
			Source: source,
		})
	}
	return resp
}

func isInternalAttribute(name string) bool {
	return name == "objectID" || strings.HasPrefix(name, "_highlightResult") ||
		strings.HasPrefix(name, "_snippetResult") || strings.HasPrefix(name, "_rankingInfo")
}

// calculateScore creates a rank-based score for Algolia results
// Since Algolia doesn't provide relevance scores directly, we use position-based scoring
func calculateScore(totalResults, position int) float64 {
	if totalResults == 0 {
		return 1.0
	}
	return float64(totalResults-position) / float64(totalResults)
}

// sortHits orders one page of hits. _score keeps Algolia's ranking.
func sortHits(hits []discover.Hit, sorts []discover.Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(hits, func(i, j int) bool {
		for _, s := range sorts {
			var cmp int
			if s.Field == "_score" {
				cmp = compareFloat(hits[i].Score, hits[j].Score)
			} else {
				cmp = compareValues(hits[i].Source[s.Field], hits[j].Source[s.Field])
			}
			if cmp != 0 {
				if s.Direction == discover.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

func compareValues(v1, v2 interface{}) int {
	if v1 == nil || v2 == nil {
		switch {
		case v1 == nil && v2 == nil:
			return 0
		case v1 == nil:
			return -1
		default:
			return 1
		}
	}
	f1, ok1 := v1.(float64)
	f2, ok2 := v2.(float64)
	if ok1 && ok2 {
		return compareFloat(f1, f2)
	}
	return strings.Compare(fmt.Sprintf("%v", v1), fmt.Sprintf("%v", v2))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// checkFilters rejects filters Algolia cannot express. Its filter syntax
// allows OR groups inside AND but not the other way round.
func checkFilters(exprs []discover.Expression) error {
	for _, e := range exprs {
		if nestsAndInOr(e, false) {
			return errors.Wrapf(discover.ErrInvalidQuery, "Algolia filters cannot nest AND inside OR: %s", convertExpressionToFilter(e))
		}
	}
	return nil
}

func nestsAndInOr(expr discover.Expression, inOr bool) bool {
	switch e := expr.(type) {
	case discover.AndExpr:
		if inOr {
			return true
		}
		for _, inner := range e.Exprs {
			if nestsAndInOr(inner, false) {
				return true
			}
		}
	case discover.OrExpr:
		for _, inner := range e.Exprs {
			if nestsAndInOr(inner, true) {
				return true
			}
		}
	case discover.NotExpr:
		return nestsAndInOr(e.Inner, inOr)
	}
	return false
}

// convertExpressionToFilter converts an expression to an Algolia filter string
func convertExpressionToFilter(expr discover.Expression) string {
	switch e := expr.(type) {
	case discover.AndExpr:
		return joinExpressions(e.Exprs, " AND ")
	case discover.OrExpr:
		return joinExpressions(e.Exprs, " OR ")
	case discover.NotExpr:
		inner := convertExpressionToFilter(e.Inner)
		if inner == "" {
			return ""
		}
		return "NOT " + inner
	case discover.EqExpr:
		return fmt.Sprintf("%s:%s", escapeField(e.Field), escapeValue(e.Value))
	case discover.ExistsExpr:
		return fmt.Sprintf("%s:*", escapeField(e.Field))
	default:
		return ""
	}
}

func joinExpressions(exprs []discover.Expression, sep string) string {
	filters := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if filter := convertExpressionToFilter(e); filter != "" {
			filters = append(filters, "("+filter+")")
		}
	}
	if len(filters) == 0 {
		return ""
	}
	return strings.Join(filters, sep)
}

// escapeField escapes field names for Algolia filters
func escapeField(field string) string {
	if strings.ContainsAny(field, " :-()") {
		return fmt.Sprintf(`"%s"`, field)
	}
	return field
}

// escapeValue escapes string values for Algolia filters
func escapeValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		escaped := strings.ReplaceAll(v, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return fmt.Sprintf(`"%s"`, escaped)
	case bool:
		return fmt.Sprintf(`"%s"`, strconv.FormatBool(v))
	default:
		return fmt.Sprintf(`"%v"`, value)
	}
}
