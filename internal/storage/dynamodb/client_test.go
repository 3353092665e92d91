package dynamodb

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks API

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage/dynamodb/mocks"
)

const table = "cpm-test"

// =============================================================================
// DynamoDB Client Suite
// =============================================================================
// Justification: the backend owns the translation between the storage
// vocabulary and DynamoDB requests and errors. A mocked API pins both
// directions without a DynamoDB Local container.

type ClientSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	api    *mocks.MockAPI
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.api = mocks.NewMockAPI(s.ctrl)
	client, err := New(s.api)
	s.Require().NoError(err)
	s.client = client
}

func (s *ClientSuite) TearDownTest() {
	s.ctrl.Finish()
}

func key(pk, sk string) storage.Key {
	return storage.Key{PK: pk, SK: sk}
}

func (s *ClientSuite) TestNew() {
	_, err := New(nil)
	s.ErrorContains(err, "dynamodb api is required")
}

func (s *ClientSuite) TestTransactWriteRequest() {
	ops := []storage.Operation{
		{Kind: storage.KindPut, Table: table, Key: key("D#1", "D#1"), Item: storage.Item{"name": "Device", "root": true}, Precondition: storage.PreconditionMustNotExist},
		{Kind: storage.KindUpdate, Table: table, Key: key("D#2", "D#2"), Item: storage.Item{"updated_on": "2024-05-01T12:00:00Z", "keys": []any{}}, Precondition: storage.PreconditionNone},
		{Kind: storage.KindDelete, Table: table, Key: key("D#3", "D#3"), Precondition: storage.PreconditionMustExist},
	}

	s.api.EXPECT().
		TransactWriteItems(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
			s.Require().Len(in.TransactItems, 3)

			put := in.TransactItems[0].Put
			s.Require().NotNil(put)
			s.Equal(table, aws.ToString(put.TableName))
			s.Equal(condNotExists, aws.ToString(put.ConditionExpression))
			s.Equal(map[string]string{"#pk": "pk"}, put.ExpressionAttributeNames)
			s.Equal(&types.AttributeValueMemberS{Value: "D#1"}, put.Item["pk"])
			s.Equal(&types.AttributeValueMemberBOOL{Value: true}, put.Item["root"])

			update := in.TransactItems[1].Update
			s.Require().NotNil(update)
			s.Nil(update.ConditionExpression)
			s.Equal("SET #a0 = :v0, #a1 = :v1", aws.ToString(update.UpdateExpression))
			s.Equal(map[string]string{"#a0": "keys", "#a1": "updated_on"}, update.ExpressionAttributeNames)
			s.Equal(&types.AttributeValueMemberL{Value: []types.AttributeValue{}}, update.ExpressionAttributeValues[":v0"])

			del := in.TransactItems[2].Delete
			s.Require().NotNil(del)
			s.Equal(condExists, aws.ToString(del.ConditionExpression))

			return &dynamodb.TransactWriteItemsOutput{
				ConsumedCapacity: []types.ConsumedCapacity{{CapacityUnits: aws.Float64(6)}},
			}, nil
		})

	receipt, err := s.client.TransactWrite(context.Background(), ops)
	s.Require().NoError(err)
	s.Equal(storage.Receipt{Operations: 3, ConsumedCapacity: 6}, receipt)
}

func (s *ClientSuite) TestGuardedUpdateNames() {
	op := storage.Operation{
		Kind:         storage.KindUpdate,
		Table:        table,
		Key:          key("D#2", "D#2"),
		Item:         storage.Item{"name": "Renamed"},
		Precondition: storage.PreconditionMustExist,
	}

	item, err := transactItem(op)
	s.Require().NoError(err)
	s.Require().NotNil(item.Update)
	s.Equal(condExists, aws.ToString(item.Update.ConditionExpression))
	s.Equal("SET #a0 = :v0", aws.ToString(item.Update.UpdateExpression))
	s.Equal(map[string]string{"#pk": "pk", "#a0": "name"}, item.Update.ExpressionAttributeNames)
}

func (s *ClientSuite) TestTransactWriteErrors() {
	ops := []storage.Operation{
		{Kind: storage.KindPut, Table: table, Key: key("PT#1", "PT#1"), Item: storage.Item{}, Precondition: storage.PreconditionMustNotExist},
		{Kind: storage.KindPut, Table: table, Key: key("PT#a", "PT#a"), Item: storage.Item{}, Precondition: storage.PreconditionMustNotExist},
	}

	s.Run("conditional check failure names the operation", func() {
		s.api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).Return(nil, &types.TransactionCanceledException{
			Message: aws.String("Transaction cancelled"),
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed"), Item: map[string]types.AttributeValue{
					"pk": &types.AttributeValueMemberS{Value: "PT#a"},
				}},
			},
		})

		_, err := s.client.TransactWrite(context.Background(), ops)
		var cond *storage.ConditionFailedError
		s.Require().ErrorAs(err, &cond)
		s.Equal(1, cond.Index)
		s.True(cond.Exists)
	})

	s.Run("throttled cancellation reason is throttled", func() {
		s.api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).Return(nil, &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}, {Code: aws.String("None")}},
		})

		_, err := s.client.TransactWrite(context.Background(), ops)
		s.True(storage.IsThrottled(err))
	})

	s.Run("provisioned throughput exceeded is throttled", func() {
		s.api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).
			Return(nil, &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")})

		_, err := s.client.TransactWrite(context.Background(), ops)
		s.True(storage.IsThrottled(err))
	})

	s.Run("validation errors pass through", func() {
		native := &smithy.GenericAPIError{Code: "ValidationException", Message: "bad"}
		s.api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).Return(nil, native)

		_, err := s.client.TransactWrite(context.Background(), ops)
		s.ErrorIs(err, native)
		s.False(storage.IsThrottled(err))
	})

	s.Run("duplicate keys never reach the backend", func() {
		_, err := s.client.TransactWrite(context.Background(), []storage.Operation{ops[0], ops[0]})
		s.ErrorContains(err, "duplicate key")
	})
}

func (s *ClientSuite) TestBatchWrite() {
	ops := []storage.Operation{
		{Kind: storage.KindPut, Table: table, Key: key("PT#1", "PT#1"), Item: storage.Item{"n": 1}, Precondition: storage.PreconditionNone},
		{Kind: storage.KindDelete, Table: table, Key: key("PT#2", "PT#2"), Precondition: storage.PreconditionNone},
	}

	s.Run("groups requests by table", func() {
		s.api.EXPECT().
			BatchWriteItem(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
				reqs := in.RequestItems[table]
				s.Require().Len(reqs, 2)
				s.Require().NotNil(reqs[0].PutRequest)
				s.Equal(&types.AttributeValueMemberN{Value: "1"}, reqs[0].PutRequest.Item["n"])
				s.Require().NotNil(reqs[1].DeleteRequest)
				return &dynamodb.BatchWriteItemOutput{}, nil
			})

		s.NoError(s.client.BatchWrite(context.Background(), ops))
	})

	s.Run("unprocessed items are throttled", func() {
		s.api.EXPECT().BatchWriteItem(gomock.Any(), gomock.Any()).Return(&dynamodb.BatchWriteItemOutput{
			UnprocessedItems: map[string][]types.WriteRequest{table: {{}}},
		}, nil)

		err := s.client.BatchWrite(context.Background(), ops)
		s.True(storage.IsThrottled(err))
	})

	s.Run("updates are rejected", func() {
		err := s.client.BatchWrite(context.Background(), []storage.Operation{
			{Kind: storage.KindUpdate, Table: table, Key: key("PT#1", "PT#1"), Item: storage.Item{"n": 1}, Precondition: storage.PreconditionNone},
		})
		s.ErrorContains(err, "does not support update")
	})
}

func (s *ClientSuite) TestGet() {
	s.Run("missing item is ErrNotFound", func() {
		s.api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(&dynamodb.GetItemOutput{}, nil)

		_, err := s.client.Get(context.Background(), table, key("D#1", "D#1"))
		s.ErrorIs(err, storage.ErrNotFound)
	})

	s.Run("decodes canonical values with a consistent read", func() {
		s.api.EXPECT().
			GetItem(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				s.True(aws.ToBool(in.ConsistentRead))
				return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
					"pk":      &types.AttributeValueMemberS{Value: "D#1"},
					"sk":      &types.AttributeValueMemberS{Value: "D#1"},
					"version": &types.AttributeValueMemberN{Value: "12345678901234567890"},
					"deleted": &types.AttributeValueMemberNULL{Value: true},
					"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
						&types.AttributeValueMemberS{Value: "a=1"},
					}},
				}}, nil
			})

		item, err := s.client.Get(context.Background(), table, key("D#1", "D#1"))
		s.Require().NoError(err)
		s.Equal(key("D#1", "D#1"), item.Key())
		s.Equal(json.Number("12345678901234567890"), item["version"])
		s.Nil(item["deleted"])
		s.Equal([]any{"a=1"}, item["tags"])
	})
}

func (s *ClientSuite) TestQuery() {
	page := func(sk string, last map[string]types.AttributeValue) *dynamodb.QueryOutput {
		return &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{{
				"pk": &types.AttributeValueMemberS{Value: "PT#1"},
				"sk": &types.AttributeValueMemberS{Value: sk},
			}},
			LastEvaluatedKey: last,
		}
	}

	s.Run("follows pagination", func() {
		gomock.InOrder(
			s.api.EXPECT().
				Query(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
					s.Equal("#pk = :pk AND begins_with(#sk, :sk)", aws.ToString(in.KeyConditionExpression))
					s.Equal(&types.AttributeValueMemberS{Value: "P#"}, in.ExpressionAttributeValues[":sk"])
					return page("P#1", marshalKey(key("PT#1", "P#1"))), nil
				}),
			s.api.EXPECT().
				Query(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(page("P#2", nil), nil),
		)

		items, err := s.client.Query(context.Background(), table, "PT#1", "P#")
		s.Require().NoError(err)
		s.Require().Len(items, 2)
		s.Equal("P#2", items[1].Key().SK)
	})

	s.Run("empty prefix queries the whole partition", func() {
		s.api.EXPECT().
			Query(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				s.Equal("#pk = :pk", aws.ToString(in.KeyConditionExpression))
				return &dynamodb.QueryOutput{}, nil
			})

		items, err := s.client.Query(context.Background(), table, "PT#1", "")
		s.Require().NoError(err)
		s.NotNil(items)
		s.Empty(items)
	})

	s.Run("throttling is classified", func() {
		s.api.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &smithy.GenericAPIError{Code: "ThrottlingException"})

		_, err := s.client.Query(context.Background(), table, "PT#1", "")
		s.True(storage.IsThrottled(err))
		s.False(errors.Is(err, storage.ErrNotFound))
	})
}
