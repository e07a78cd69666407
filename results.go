package discover

// Hit is a single matching document.
type Hit struct {
	// Index is the concrete index the document came from.
	Index string `json:"_index,omitempty"`

	// ID is the unique identifier of the document.
	ID string `json:"_id"`

	// Score represents the relevance score of this hit.
	Score float64 `json:"_score"`

	// Source contains the document fields as key-value pairs.
	Source map[string]interface{} `json:"_source"`
}

// Hits is the hits section of a response.
type Hits struct {
	// Total is the total number of matching documents.
	Total int64 `json:"total"`

	// MaxScore is the maximum relevance score across all hits.
	MaxScore float64 `json:"max_score"`

	Hits []Hit `json:"hits"`
}

// Bucket is one histogram bucket.
type Bucket struct {
	// Key is the bucket start in epoch milliseconds.
	Key int64 `json:"key"`

	KeyAsString string `json:"key_as_string"`

	DocCount int64 `json:"doc_count"`
}

// AggregationResult holds the buckets of one named aggregation.
type AggregationResult struct {
	Buckets []Bucket `json:"buckets"`
}

// Response is one result delivery for a search source.
type Response struct {
	// Took is the time taken to execute the search in milliseconds.
	Took int64 `json:"took"`

	Hits Hits `json:"hits"`

	Aggregations map[string]AggregationResult `json:"aggregations,omitempty"`
}
