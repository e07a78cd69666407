package ddb

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SavedSearchKind is the sort key of saved search items. Every other sort
// key names the search index an event item belongs to.
const SavedSearchKind = "saved-search"

// Record is one table item.
type Record struct {
	ID     string         `dynamodbav:"pk"`
	Kind   string         `dynamodbav:"sk"`
	Object map[string]any `dynamodbav:"object"`
}

// IsSavedSearch reports whether the item stores a saved search.
func (r Record) IsSavedSearch() bool {
	return r.Kind == SavedSearchKind
}

// Key returns the primary key attributes of the item.
func (r Record) Key() (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(struct {
		ID   string `dynamodbav:"pk"`
		Kind string `dynamodbav:"sk"`
	}{r.ID, r.Kind})
}

// UnmarshalRecord converts a table item into a Record.
func UnmarshalRecord(image map[string]types.AttributeValue) (Record, error) {
	var record Record
	if err := attributevalue.UnmarshalMap(image, &record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// MarshalRecord converts a Record into table attributes.
func MarshalRecord(r Record) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(r)
}
