// Package dynamostore keeps saved searches in a DynamoDB table.
package dynamostore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/discover"
	"github.com/letmevibethatforyou/discover/internal/ddb"
)

// DynamoDBClient defines the DynamoDB operations the store uses.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Store implements discover.SavedSearchStore. Each saved search is one
// item with pk = id and sk = "saved-search".
type Store struct {
	client    DynamoDBClient
	tableName string
}

var _ discover.SavedSearchStore = (*Store)(nil)

// New creates a Store on tableName.
func New(client DynamoDBClient, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Get implements discover.SavedSearchStore.
func (s *Store) Get(ctx context.Context, id string) (*discover.SavedSearch, error) {
	key, err := ddb.Record{ID: id, Kind: ddb.SavedSearchKind}.Key()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal key")
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get saved search %q from %s", id, s.tableName)
	}
	if len(out.Item) == 0 {
		return nil, errors.Wrapf(discover.ErrNotFound, "id %q", id)
	}

	record, err := ddb.UnmarshalRecord(out.Item)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal saved search %q", id)
	}
	return fromRecord(record), nil
}

// Save implements discover.SavedSearchStore.
func (s *Store) Save(ctx context.Context, saved *discover.SavedSearch) error {
	if saved == nil || saved.ID == "" {
		return errors.New("saved search needs an id")
	}

	item, err := ddb.MarshalRecord(toRecord(saved))
	if err != nil {
		return errors.Wrap(err, "failed to marshal saved search")
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put saved search %q in %s", saved.ID, s.tableName)
	}
	return nil
}

func toRecord(saved *discover.SavedSearch) ddb.Record {
	object := map[string]any{
		"title": saved.Title,
		"index": saved.Index,
	}
	if saved.Query != nil {
		object["query"] = saved.Query.Query
	}
	if saved.Sort != nil {
		object["sort"] = []any{saved.Sort.Field, string(saved.Sort.Direction)}
	}
	return ddb.Record{ID: saved.ID, Kind: ddb.SavedSearchKind, Object: object}
}

func fromRecord(r ddb.Record) *discover.SavedSearch {
	saved := &discover.SavedSearch{ID: r.ID}
	saved.Title, _ = r.Object["title"].(string)
	saved.Index, _ = r.Object["index"].(string)
	if q, ok := r.Object["query"].(string); ok {
		saved.Query = &discover.QueryString{Query: q}
	}
	if pair, ok := r.Object["sort"].([]any); ok && len(pair) == 2 {
		field, _ := pair[0].(string)
		dir, _ := pair[1].(string)
		if d := discover.Direction(dir); field != "" && d.Valid() {
			saved.Sort = &discover.Sort{Field: field, Direction: d}
		}
	}
	return saved
}
