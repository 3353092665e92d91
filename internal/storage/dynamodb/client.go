// Package dynamodb implements storage.Client on Amazon DynamoDB.
//
// Preconditions become condition expressions on the primary key, transactions
// use TransactWriteItems and the bulk path uses BatchWriteItem. Native errors
// are classified into the storage error vocabulary: a cancelled transaction
// whose reason is ConditionalCheckFailed becomes *storage.ConditionFailedError,
// capacity errors become storage.ErrThrottled.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// API is the subset of the DynamoDB client the backend calls.
type API interface {
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

const (
	condExists    = "attribute_exists(#pk)"
	condNotExists = "attribute_not_exists(#pk)"
)

// Error codes DynamoDB reports for retryable capacity failures.
var throttleCodes = []string{
	"ProvisionedThroughputExceeded",
	"ProvisionedThroughputExceededException",
	"RequestLimitExceeded",
	"ThrottlingError",
	"ThrottlingException",
	"TransactionConflict",
	"InternalServerError",
}

type Client struct {
	api    API
	logger *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(api API, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("dynamodb api is required")
	}
	c := &Client{api: api, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromEnv builds a client from the default AWS credential chain. A
// non-empty endpoint points the client at DynamoDB Local or LocalStack.
func NewFromEnv(ctx context.Context, region, endpoint string, opts ...Option) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	api := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(api, opts...)
}

func (c *Client) TransactWrite(ctx context.Context, ops []storage.Operation) (storage.Receipt, error) {
	if len(ops) > storage.MaxTransactionItems {
		return storage.Receipt{}, fmt.Errorf("transaction of %d operations exceeds limit of %d", len(ops), storage.MaxTransactionItems)
	}
	prepared, err := storage.Prepare(ops)
	if err != nil {
		return storage.Receipt{}, err
	}

	items := make([]types.TransactWriteItem, 0, len(prepared))
	for i, op := range prepared {
		item, err := transactItem(op)
		if err != nil {
			return storage.Receipt{}, fmt.Errorf("operation %d: %w", i, err)
		}
		items = append(items, item)
	}

	out, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems:          items,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return storage.Receipt{}, classify(err)
	}

	receipt := storage.Receipt{Operations: len(prepared)}
	for _, cc := range out.ConsumedCapacity {
		receipt.ConsumedCapacity += aws.ToFloat64(cc.CapacityUnits)
	}
	return receipt, nil
}

func (c *Client) BatchWrite(ctx context.Context, ops []storage.Operation) error {
	if len(ops) > storage.MaxBatchItems {
		return fmt.Errorf("batch of %d operations exceeds limit of %d", len(ops), storage.MaxBatchItems)
	}
	prepared, err := storage.Prepare(ops)
	if err != nil {
		return err
	}

	requests := make(map[string][]types.WriteRequest)
	for i, op := range prepared {
		var req types.WriteRequest
		switch op.Kind {
		case storage.KindPut:
			item, err := marshalItem(op.Item)
			if err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
			req.PutRequest = &types.PutRequest{Item: item}
		case storage.KindDelete:
			req.DeleteRequest = &types.DeleteRequest{Key: marshalKey(op.Key)}
		default:
			return fmt.Errorf("batch write does not support %s operations", op.Kind)
		}
		requests[op.Table] = append(requests[op.Table], req)
	}

	out, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: requests})
	if err != nil {
		return classify(err)
	}
	if n := countUnprocessed(out.UnprocessedItems); n > 0 {
		c.logger.DebugContext(ctx, "batch write left items unprocessed", "unprocessed", n, "submitted", len(prepared))
		return storage.Throttled(fmt.Errorf("%d of %d items unprocessed", n, len(prepared)))
	}
	return nil
}

func (c *Client) Get(ctx context.Context, table string, key storage.Key) (storage.Item, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            marshalKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(out.Item) == 0 {
		return nil, storage.ErrNotFound
	}
	return unmarshalItem(out.Item)
}

func (c *Client) Query(ctx context.Context, table, pk, skPrefix string) ([]storage.Item, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(table),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": storage.AttrPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		ConsistentRead: aws.Bool(true),
	}
	if skPrefix != "" {
		input.KeyConditionExpression = aws.String("#pk = :pk AND begins_with(#sk, :sk)")
		input.ExpressionAttributeNames["#sk"] = storage.AttrSK
		input.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: skPrefix}
	}

	items := []storage.Item{}
	pages := dynamodb.NewQueryPaginator(c.api, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, raw := range page.Items {
			item, err := unmarshalItem(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func transactItem(op storage.Operation) (types.TransactWriteItem, error) {
	table := aws.String(op.Table)
	cond, names := condition(op.Precondition)
	onFailure := types.ReturnValuesOnConditionCheckFailureAllOld

	switch op.Kind {
	case storage.KindPut:
		item, err := marshalItem(op.Item)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                           table,
			Item:                                item,
			ConditionExpression:                 cond,
			ExpressionAttributeNames:            names,
			ReturnValuesOnConditionCheckFailure: onFailure,
		}}, nil
	case storage.KindDelete:
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName:                           table,
			Key:                                 marshalKey(op.Key),
			ConditionExpression:                 cond,
			ExpressionAttributeNames:            names,
			ReturnValuesOnConditionCheckFailure: onFailure,
		}}, nil
	case storage.KindUpdate:
		expr, names, values, err := updateExpression(op.Item, names)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Update: &types.Update{
			TableName:                           table,
			Key:                                 marshalKey(op.Key),
			UpdateExpression:                    aws.String(expr),
			ConditionExpression:                 cond,
			ExpressionAttributeNames:            names,
			ExpressionAttributeValues:           values,
			ReturnValuesOnConditionCheckFailure: onFailure,
		}}, nil
	default:
		return types.TransactWriteItem{}, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func condition(p storage.Precondition) (*string, map[string]string) {
	switch p {
	case storage.PreconditionMustExist:
		return aws.String(condExists), map[string]string{"#pk": storage.AttrPK}
	case storage.PreconditionMustNotExist:
		return aws.String(condNotExists), map[string]string{"#pk": storage.AttrPK}
	default:
		return nil, nil
	}
}

// updateExpression builds "SET #a0 = :v0, ..." over the non-key attributes of
// patch in sorted order. It returns names extended with the attribute
// placeholders, allocating it when nil.
func updateExpression(patch storage.Item, names map[string]string) (string, map[string]string, map[string]types.AttributeValue, error) {
	attrs := make([]string, 0, len(patch))
	for k := range patch {
		if k == storage.AttrPK || k == storage.AttrSK {
			continue
		}
		attrs = append(attrs, k)
	}
	slices.Sort(attrs)
	if len(attrs) == 0 {
		return "", nil, nil, errors.New("update has no attributes to set")
	}

	if names == nil {
		names = make(map[string]string, len(attrs))
	}
	values := make(map[string]types.AttributeValue, len(attrs))
	expr := "SET "
	for i, attr := range attrs {
		av, err := marshalValue(patch[attr])
		if err != nil {
			return "", nil, nil, fmt.Errorf("attribute %q: %w", attr, err)
		}
		name, value := fmt.Sprintf("#a%d", i), fmt.Sprintf(":v%d", i)
		names[name] = attr
		values[value] = av
		if i > 0 {
			expr += ", "
		}
		expr += name + " = " + value
	}
	return expr, names, values, nil
}

// classify maps a DynamoDB error onto the storage error vocabulary.
func classify(err error) error {
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for i, reason := range cancelled.CancellationReasons {
			code := aws.ToString(reason.Code)
			switch {
			case code == "ConditionalCheckFailed":
				return &storage.ConditionFailedError{Index: i, Exists: len(reason.Item) > 0}
			case slices.Contains(throttleCodes, code):
				return storage.Throttled(err)
			}
		}
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && slices.Contains(throttleCodes, apiErr.ErrorCode()) {
		return storage.Throttled(err)
	}
	return err
}

func countUnprocessed(unprocessed map[string][]types.WriteRequest) int {
	n := 0
	for _, reqs := range unprocessed {
		n += len(reqs)
	}
	return n
}
