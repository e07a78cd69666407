package inmemory

import (
	"strconv"

	"github.com/letmevibethatforyou/discover"
)

func dateHistogram(matches []scoredDocument, h *discover.DateHistogram) []discover.Bucket {
	values := make([]interface{}, 0, len(matches))
	for _, m := range matches {
		if v, ok := m.document.Fields[h.Field]; ok {
			values = append(values, v)
		}
	}
	return discover.DateBuckets(values, h)
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
