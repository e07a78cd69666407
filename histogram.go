package discover

import (
	"sort"
	"strconv"
	"time"
)

// DateBuckets counts values per h.Interval, the way a date_histogram
// aggregation does. Values that are not times are skipped. Empty buckets
// between the first and the last populated one are kept.
func DateBuckets(values []interface{}, h *DateHistogram) []Bucket {
	interval := h.Interval
	if interval <= 0 {
		interval = HistogramInterval
	}
	format := h.Format
	if format == "" {
		format = time.RFC3339
	}

	counts := make(map[int64]int64)
	for _, v := range values {
		t, ok := ParseTime(v)
		if !ok {
			continue
		}
		counts[t.Truncate(interval).UnixMilli()]++
	}
	if len(counts) == 0 {
		return []Bucket{}
	}

	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	first, last := keys[0], keys[len(keys)-1]
	step := interval.Milliseconds()
	buckets := make([]Bucket, 0, (last-first)/step+1)
	for k := first; k <= last; k += step {
		buckets = append(buckets, Bucket{
			Key:         k,
			KeyAsString: time.UnixMilli(k).UTC().Format(format),
			DocCount:    counts[k],
		})
	}
	return buckets
}

// ParseTime accepts RFC 3339 strings, plain dates and epoch milliseconds.
func ParseTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t.UTC(), true
			}
		}
		if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	case float64:
		return time.UnixMilli(int64(val)).UTC(), true
	case int64:
		return time.UnixMilli(val).UTC(), true
	case int:
		return time.UnixMilli(int64(val)).UTC(), true
	case time.Time:
		return val.UTC(), true
	}
	return time.Time{}, false
}

// InferFieldType names the field type of a decoded JSON value.
func InferFieldType(v interface{}) string {
	switch val := v.(type) {
	case bool:
		return "boolean"
	case string:
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			if _, ok := ParseTime(val); ok {
				return "date"
			}
		}
		return "string"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		if len(val) > 0 {
			return InferFieldType(val[0])
		}
		return "string"
	case float64, float32, int, int64, int32:
		return "number"
	default:
		return "string"
	}
}
