package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

type call struct {
	op       string
	index    string
	objectID string
	object   map[string]interface{}
}

type mockIndexer struct {
	calls []call
	err   error
}

func (m *mockIndexer) SaveObject(ctx context.Context, indexName string, object map[string]interface{}) error {
	m.calls = append(m.calls, call{op: "save", index: indexName, objectID: object["objectID"].(string), object: object})
	return m.err
}

func (m *mockIndexer) DeleteObject(ctx context.Context, indexName string, objectID string) error {
	m.calls = append(m.calls, call{op: "delete", index: indexName, objectID: objectID})
	return m.err
}

const streamJSON = `{
	"Records": [
		{
			"eventID": "1",
			"eventName": "INSERT",
			"dynamodb": {
				"Keys": {"pk": {"S": "a"}, "sk": {"S": "logstash-events"}},
				"NewImage": {
					"pk": {"S": "a"},
					"sk": {"S": "logstash-events"},
					"object": {"M": {"status": {"S": "error"}, "bytes": {"N": "512"}}}
				},
				"StreamViewType": "NEW_IMAGE"
			}
		},
		{
			"eventID": "2",
			"eventName": "MODIFY",
			"dynamodb": {
				"Keys": {"pk": {"S": "errors"}, "sk": {"S": "saved-search"}},
				"NewImage": {
					"pk": {"S": "errors"},
					"sk": {"S": "saved-search"},
					"object": {"M": {"title": {"S": "errors"}}}
				},
				"StreamViewType": "NEW_IMAGE"
			}
		},
		{
			"eventID": "3",
			"eventName": "REMOVE",
			"dynamodb": {
				"Keys": {"pk": {"S": "b"}, "sk": {"S": "logstash-events"}},
				"StreamViewType": "KEYS_ONLY"
			}
		},
		{
			"eventID": "4",
			"eventName": "REMOVE",
			"dynamodb": {
				"Keys": {"pk": {"S": "errors"}, "sk": {"S": "saved-search"}},
				"StreamViewType": "KEYS_ONLY"
			}
		}
	]
}`

func TestHandleStreamEvent(t *testing.T) {
	var event events.DynamoDBEvent
	if err := json.Unmarshal([]byte(streamJSON), &event); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	indexer := &mockIndexer{}
	h := NewHandler("discover", indexer)
	if err := h.HandleStreamEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleStreamEvent failed: %v", err)
	}

	if len(indexer.calls) != 2 {
		t.Fatalf("Expected 2 indexer calls, got %d: %+v", len(indexer.calls), indexer.calls)
	}

	save := indexer.calls[0]
	if save.op != "save" || save.index != "logstash-events" || save.objectID != "a" {
		t.Errorf("Unexpected save call: %+v", save)
	}
	if save.object["status"] != "error" {
		t.Errorf("Expected status error, got %v", save.object["status"])
	}
	if save.object["bytes"] != float64(512) {
		t.Errorf("Expected bytes 512, got %v", save.object["bytes"])
	}

	del := indexer.calls[1]
	if del.op != "delete" || del.index != "logstash-events" || del.objectID != "b" {
		t.Errorf("Unexpected delete call: %+v", del)
	}
}

func TestHandleStreamEvent_IndexerError(t *testing.T) {
	var event events.DynamoDBEvent
	if err := json.Unmarshal([]byte(streamJSON), &event); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	indexer := &mockIndexer{err: errors.New("algolia down")}
	h := NewHandler("discover", indexer)
	if err := h.HandleStreamEvent(context.Background(), event); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if len(indexer.calls) != 1 {
		t.Errorf("Expected processing to stop after first failure, got %d calls", len(indexer.calls))
	}
}

func TestProcessRecord_SkipsUnusable(t *testing.T) {
	tests := map[string]events.DynamoDBEventRecord{
		"unknown_event":        {EventName: "TTL"},
		"insert_without_image": {EventName: "INSERT"},
		"remove_without_keys":  {EventName: "REMOVE"},
		"insert_missing_index": {
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: map[string]events.DynamoDBAttributeValue{
					"pk":     events.NewStringAttribute("a"),
					"object": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{"status": events.NewStringAttribute("ok")}),
				},
			},
		},
	}

	for name, record := range tests {
		t.Run(name, func(t *testing.T) {
			indexer := &mockIndexer{}
			if err := NewHandler("discover", indexer).processRecord(context.Background(), record); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(indexer.calls) != 0 {
				t.Errorf("Expected no indexer calls, got %d", len(indexer.calls))
			}
		})
	}
}
