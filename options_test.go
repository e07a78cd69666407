package discover

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestSort_JSON(t *testing.T) {
	data, err := json.Marshal(ViewState{Query: "", Columns: []string{SourceField}, Sort: Sort{Field: "_score", Direction: Desc}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	expected := `{"query":"","columns":["_source"],"sort":["_score","desc"]}`
	if string(data) != expected {
		t.Errorf("Marshal = %s, want %s", data, expected)
	}

	var s Sort
	if err := json.Unmarshal([]byte(`["bytes","asc"]`), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if s != (Sort{Field: "bytes", Direction: Asc}) {
		t.Errorf("Unexpected sort %+v", s)
	}
}

func TestSort_UnmarshalErrors(t *testing.T) {
	tests := map[string]struct {
		data string
		is   error
	}{
		"bad direction": {data: `["bytes","up"]`, is: ErrInvalidSort},
		"wrong length":  {data: `["bytes"]`},
		"not an array":  {data: `{"field":"bytes"}`},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var s Sort
			err := json.Unmarshal([]byte(tc.data), &s)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Errorf("Expected %v, got %v", tc.is, err)
			}
		})
	}
}

func TestRequest_Clone(t *testing.T) {
	req := &Request{
		Index: "logstash-*",
		Query: &QueryString{Query: "error"},
		Sort:  []Sort{{Field: "bytes", Direction: Asc}},
		Aggs:  EventsHistogram(),
	}
	cp := req.Clone()

	cp.Query.Query = "changed"
	cp.Sort[0].Field = "changed"
	cp.Aggs[EventsAggregation].DateHistogram.Field = "changed"

	if req.Query.Query != "error" || req.Sort[0].Field != "bytes" || req.Aggs[EventsAggregation].DateHistogram.Field != TimestampField {
		t.Errorf("Clone shares memory with the original: %+v", req)
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeUnknownField, "unknown field"},
		{ErrCodeInvalidSort, "invalid sort"},
		{ErrCodeSourceClosed, "source closed"},
		{ErrCodeNotFound, "not found"},
		{ErrCodeInvalidQuery, "invalid query"},
		{ErrCodeCanceled, "operation canceled"},
		{ErrCodeBackendUnavailable, "backend unavailable"},
		{ErrorCode(9999), "unknown error"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.expected {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", int(tt.code), got, tt.expected)
		}
	}

	wrapped := errors.Wrap(ErrNotFound, "id \"x\"")
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped sentinel should match with errors.Is")
	}
	if errors.Is(wrapped, ErrUnknownField) {
		t.Error("Distinct sentinels should not match")
	}
}
