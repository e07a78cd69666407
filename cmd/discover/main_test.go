package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/letmevibethatforyou/discover"
)

const testEvents = `{"_id":"1","host":"web-1","status":"ok","bytes":10,"@timestamp":"2024-05-01T01:00:00Z"}
{"_id":"2","host":"web-2","status":"error","bytes":30,"@timestamp":"2024-05-01T02:00:00Z"}
{"_id":"3","host":"db-1","status":"error","bytes":20,"@timestamp":"2024-05-01T03:00:00Z"}
{"_id":"4","host":"web-1","status":"error","bytes":5,"@timestamp":"2024-05-02T04:00:00Z"}
`

type page struct {
	Location string        `json:"location"`
	Query    string        `json:"query"`
	Sort     discover.Sort `json:"sort"`
	Columns  []string      `json:"columns"`
	Rows     [][]string    `json:"rows"`
}

func runDiscover(t *testing.T, args ...string) page {
	t.Helper()
	t.Setenv("TABLE_NAME", "")

	data := filepath.Join(t.TempDir(), "events.ndjson")
	if err := os.WriteFile(data, []byte(testEvents), 0o600); err != nil {
		t.Fatalf("Failed to write data: %v", err)
	}

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	argv := append([]string{"discover", "--backend", "memory", "--index", "logstash-*", "--data", data}, args...)
	if err := app.Run(argv); err != nil {
		t.Fatalf("discover %v failed: %v", args, err)
	}

	var p page
	if err := json.Unmarshal(out.Bytes(), &p); err != nil {
		t.Fatalf("Output is not a page: %v\n%s", err, out.String())
	}
	return p
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		raw     string
		field   string
		op      discover.Operation
		value   string
		wantErr bool
	}{
		{raw: "status=error", field: "status", op: discover.Include, value: "error"},
		{raw: " host != web-1 ", field: "host", op: discover.Exclude, value: "web-1"},
		{raw: "url=/a=b", field: "url", op: discover.Include, value: "/a=b"},
		{raw: "status", wantErr: true},
		{raw: "=error", wantErr: true},
		{raw: "status=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			field, op, value, err := parseFilter(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if field != tt.field || op != tt.op || value != tt.value {
				t.Errorf("Got (%q, %q, %q), want (%q, %q, %q)", field, op, value, tt.field, tt.op, tt.value)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw     string
		field   string
		dir     discover.Direction
		wantErr bool
	}{
		{raw: "@timestamp:asc", field: "@timestamp", dir: discover.Asc},
		{raw: "bytes:DESC", field: "bytes", dir: discover.Desc},
		{raw: "bytes", field: "bytes", dir: discover.Desc},
		{raw: "bytes:up", wantErr: true},
		{raw: ":asc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			field, dir, err := parseSort(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if field != tt.field || dir != tt.dir {
				t.Errorf("Got (%q, %q), want (%q, %q)", field, dir, tt.field, tt.dir)
			}
		})
	}
}

func TestRunAction_PrintsFinalState(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		query   string
		sort    discover.Sort
		columns []string
		rows    [][]string
	}{
		{
			name:    "query and filter",
			args:    []string{"--query", "web", "--filter", "status=error", "--columns", "host"},
			query:   `web +status:"error"`,
			sort:    discover.Sort{Field: "_score", Direction: discover.Desc},
			columns: []string{"host"},
			rows:    [][]string{{"web-2"}, {"web-1"}},
		},
		{
			name:    "query filter and sort",
			args:    []string{"--query", "web", "--filter", "status=error", "--sort", "bytes:asc", "--columns", "host", "--columns", "bytes"},
			query:   `web +status:"error"`,
			sort:    discover.Sort{Field: "bytes", Direction: discover.Asc},
			columns: []string{"host", "bytes"},
			rows:    [][]string{{"web-1", "5"}, {"web-2", "30"}},
		},
		{
			name:    "exclusion filter",
			args:    []string{"--filter", "host!=web-1", "--sort", "bytes:desc", "--columns", "host"},
			query:   ` -host:"web-1"`,
			sort:    discover.Sort{Field: "bytes", Direction: discover.Desc},
			columns: []string{"host"},
			rows:    [][]string{{"web-2"}, {"db-1"}},
		},
		{
			name:    "no flags",
			args:    []string{"--sort", "bytes:asc", "--columns", "bytes"},
			sort:    discover.Sort{Field: "bytes", Direction: discover.Asc},
			columns: []string{"bytes"},
			rows:    [][]string{{"5"}, {"10"}, {"20"}, {"30"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := runDiscover(t, tt.args...)

			if p.Query != tt.query {
				t.Errorf("Query mismatch: got %q, want %q", p.Query, tt.query)
			}
			if p.Sort != tt.sort {
				t.Errorf("Sort mismatch: got %v, want %v", p.Sort, tt.sort)
			}
			if strings.Join(p.Columns, ",") != strings.Join(tt.columns, ",") {
				t.Errorf("Columns mismatch: got %v, want %v", p.Columns, tt.columns)
			}
			if len(p.Rows) != len(tt.rows) {
				t.Fatalf("Expected %d rows, got %d: %v", len(tt.rows), len(p.Rows), p.Rows)
			}
			for i := range tt.rows {
				if strings.Join(p.Rows[i], ",") != strings.Join(tt.rows[i], ",") {
					t.Errorf("Row %d mismatch: got %v, want %v", i, p.Rows[i], tt.rows[i])
				}
			}
		})
	}
}

func TestRunAction_SaveNavigates(t *testing.T) {
	p := runDiscover(t, "--filter", "status=error", "--save", "errors")

	if !strings.HasPrefix(p.Location, "/discover/errors") {
		t.Errorf("Expected location under /discover/errors, got %q", p.Location)
	}
	if len(p.Rows) != 3 {
		t.Errorf("Expected 3 error rows, got %d", len(p.Rows))
	}
}
