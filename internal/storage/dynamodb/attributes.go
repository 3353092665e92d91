package dynamodb

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// marshalItem converts a canonical item into DynamoDB attribute values.
// Numbers travel as their decimal text so nothing is lost to float64.
func marshalItem(item storage.Item) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		av, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func marshalValue(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: t.String()}, nil
	case []any:
		list := make([]types.AttributeValue, len(t))
		for i, e := range t {
			av, err := marshalValue(e)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case map[string]any:
		m, err := marshalItem(storage.Item(t))
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", v)
	}
}

func marshalKey(key storage.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		storage.AttrPK: &types.AttributeValueMemberS{Value: key.PK},
		storage.AttrSK: &types.AttributeValueMemberS{Value: key.SK},
	}
}

// unmarshalItem converts DynamoDB attribute values back into canonical form.
func unmarshalItem(av map[string]types.AttributeValue) (storage.Item, error) {
	out := make(storage.Item, len(av))
	for k, v := range av {
		value, err := unmarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = value
	}
	return out, nil
}

func unmarshalValue(av types.AttributeValue) (any, error) {
	switch t := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return t.Value, nil
	case *types.AttributeValueMemberBOOL:
		return t.Value, nil
	case *types.AttributeValueMemberN:
		return json.Number(t.Value), nil
	case *types.AttributeValueMemberSS:
		list := make([]any, len(t.Value))
		for i, s := range t.Value {
			list[i] = s
		}
		return list, nil
	case *types.AttributeValueMemberNS:
		list := make([]any, len(t.Value))
		for i, n := range t.Value {
			list[i] = json.Number(n)
		}
		return list, nil
	case *types.AttributeValueMemberL:
		list := make([]any, len(t.Value))
		for i, e := range t.Value {
			v, err := unmarshalValue(e)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return list, nil
	case *types.AttributeValueMemberM:
		m, err := unmarshalItem(t.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any(m), nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T", av)
	}
}
