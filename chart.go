package discover

// Point is one histogram bar.
type Point struct {
	X string `json:"x"`
	Y int64  `json:"y"`
}

// Layer is a single data series.
type Layer struct {
	Key    string  `json:"key"`
	Values []Point `json:"values"`
}

// Chart is the events-over-time histogram model.
type Chart struct {
	Label      string  `json:"label"`
	XAxisLabel string  `json:"xAxisLabel"`
	YAxisLabel string  `json:"yAxisLabel"`
	Layers     []Layer `json:"layers"`
}

// NewChart builds the single-series chart from the events aggregation.
func NewChart(resp *Response) Chart {
	var buckets []Bucket
	if resp != nil {
		buckets = resp.Aggregations[EventsAggregation].Buckets
	}
	values := make([]Point, 0, len(buckets))
	for _, b := range buckets {
		values = append(values, Point{X: b.KeyAsString, Y: b.DocCount})
	}
	return Chart{
		Label:      "Events over time",
		XAxisLabel: "DateTime",
		YAxisLabel: "Hits",
		Layers:     []Layer{{Key: "somekey", Values: values}},
	}
}
