// Package ddb models the DynamoDB table shared by saved searches and
// indexed events, and the stream events it emits.
package ddb

import (
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
)

// Operation returns the kind of change a stream record describes.
func Operation(r events.DynamoDBEventRecord) events.DynamoDBOperationType {
	return events.DynamoDBOperationType(r.EventName)
}

// UnmarshalStreamImage converts a stream image or key set into a Record.
func UnmarshalStreamImage(image map[string]events.DynamoDBAttributeValue) (Record, error) {
	item, err := FromStreamImage(image)
	if err != nil {
		return Record{}, err
	}
	return UnmarshalRecord(item)
}

// FromStreamImage converts the attribute values of a Lambda stream image
// into the SDK's attribute values.
func FromStreamImage(image map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	if image == nil {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(image))
	for name, v := range image {
		av, err := fromStreamAttribute(v)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", name)
		}
		out[name] = av
	}
	return out, nil
}

func fromStreamAttribute(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for i, item := range v.List() {
			av, err := fromStreamAttribute(item)
			if err != nil {
				return nil, errors.Wrapf(err, "list item %d", i)
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case events.DataTypeMap:
		m, err := FromStreamImage(v.Map())
		if err != nil {
			return nil, err
		}
		if m == nil {
			m = map[string]types.AttributeValue{}
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, errors.Newf("unsupported attribute type %v", v.DataType())
	}
}
