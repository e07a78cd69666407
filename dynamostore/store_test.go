package dynamostore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/letmevibethatforyou/discover"
)

// mockDynamoDBClient keeps items in a map keyed by pk/sk.
type mockDynamoDBClient struct {
	items  map[string]map[string]types.AttributeValue
	putErr error
	getErr error
	lastGet *dynamodb.GetItemInput
}

func newMockClient() *mockDynamoDBClient {
	return &mockDynamoDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(m map[string]types.AttributeValue) string {
	pk, _ := m["pk"].(*types.AttributeValueMemberS)
	sk, _ := m["sk"].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return ""
	}
	return pk.Value + "|" + sk.Value
}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.lastGet = params
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dynamodb.GetItemOutput{Item: m.items[itemKey(params.Key)]}, nil
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.items[itemKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	client := newMockClient()
	store := New(client, "discover")

	saved := &discover.SavedSearch{
		ID:    "errors",
		Title: "errors",
		Index: "logstash-*",
		Query: &discover.QueryString{Query: `+status:"error"`},
		Sort:  &discover.Sort{Field: "@timestamp", Direction: discover.Asc},
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "errors")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != "errors" || got.Title != "errors" || got.Index != "logstash-*" {
		t.Errorf("Unexpected saved search: %+v", got)
	}
	if got.Query == nil || got.Query.Query != `+status:"error"` {
		t.Errorf("Unexpected query: %+v", got.Query)
	}
	if got.Sort == nil || *got.Sort != (discover.Sort{Field: "@timestamp", Direction: discover.Asc}) {
		t.Errorf("Unexpected sort: %+v", got.Sort)
	}
	if got.Source != nil {
		t.Error("Get should not attach a source")
	}
	if aws.ToString(client.lastGet.TableName) != "discover" {
		t.Errorf("Expected table discover, got %s", aws.ToString(client.lastGet.TableName))
	}
}

func TestStore_SaveWithoutQuery(t *testing.T) {
	ctx := context.Background()
	store := New(newMockClient(), "discover")

	if err := store.Save(ctx, &discover.SavedSearch{ID: "all", Title: "all"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Get(ctx, "all")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Query != nil {
		t.Errorf("Expected nil query, got %+v", got.Query)
	}
	if got.Sort != nil {
		t.Errorf("Expected nil sort, got %+v", got.Sort)
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		client *mockDynamoDBClient
		run    func(*Store) error
		is     error
	}{
		"missing_item": {
			client: newMockClient(),
			run: func(s *Store) error {
				_, err := s.Get(ctx, "nope")
				return err
			},
			is: discover.ErrNotFound,
		},
		"get_failure": {
			client: &mockDynamoDBClient{items: map[string]map[string]types.AttributeValue{}, getErr: errors.New("throttled")},
			run: func(s *Store) error {
				_, err := s.Get(ctx, "x")
				return err
			},
		},
		"put_failure": {
			client: &mockDynamoDBClient{items: map[string]map[string]types.AttributeValue{}, putErr: errors.New("throttled")},
			run: func(s *Store) error {
				return s.Save(ctx, &discover.SavedSearch{ID: "x", Title: "x"})
			},
		},
		"empty_id": {
			client: newMockClient(),
			run: func(s *Store) error {
				return s.Save(ctx, &discover.SavedSearch{Title: "x"})
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.run(New(tc.client, "discover"))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Errorf("Expected %v, got %v", tc.is, err)
			}
		})
	}
}
