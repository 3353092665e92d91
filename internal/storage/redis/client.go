// Package redis implements storage.Client on Redis.
//
// Each copy is a hash whose fields are the item's attributes, JSON-encoded, so
// an update is a native field overwrite and numbers never pass through Lua.
// Each partition is a sorted set of sort keys scored zero, giving lexical
// prefix scans. Writes run in one Lua script that checks every precondition
// before applying anything. All keys of a table share a hash tag, so a
// table lives in one cluster slot.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// writeScript applies ops atomically. KEYS holds an (item, partition) pair per
// op; ARGV[1] is the JSON op list. It returns {index, exists} of the first
// failed precondition, or {-1, 0}.
var writeScript = redis.NewScript(`
local ops = cjson.decode(ARGV[1])
for i, op in ipairs(ops) do
	local exists = redis.call('EXISTS', KEYS[2*i-1]) == 1
	if op.p == 'must_exist' and not exists then
		return {i-1, 0}
	end
	if op.p == 'must_not_exist' and exists then
		return {i-1, 1}
	end
end
for i, op in ipairs(ops) do
	local item, part = KEYS[2*i-1], KEYS[2*i]
	if op.k == 'delete' then
		redis.call('DEL', item)
		redis.call('ZREM', part, op.sk)
	else
		if op.k == 'put' then
			redis.call('DEL', item)
		end
		redis.call('HSET', item, unpack(op.f))
		redis.call('ZADD', part, 0, op.sk)
	end
end
return {-1, 0}
`)

// Error prefixes Redis uses for transient unavailability.
var retryablePrefixes = []string{"LOADING", "BUSY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN"}

// scriptOp is the per-operation argument the write script reads.
type scriptOp struct {
	Kind         storage.Kind         `json:"k"`
	Precondition storage.Precondition `json:"p"`
	SK           string               `json:"sk"`
	Fields       []string             `json:"f,omitempty"`
}

type Client struct {
	rdb    redis.UniversalClient
	prefix string
	logger *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPrefix namespaces every key, e.g. per environment.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = prefix
	}
}

func New(rdb redis.UniversalClient, opts ...Option) (*Client, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	c := &Client{rdb: rdb, prefix: "cpm", logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) itemKey(table string, key storage.Key) string {
	return fmt.Sprintf("%s:{%s}:i:%s|%s", c.prefix, table, key.PK, key.SK)
}

func (c *Client) partitionKey(table, pk string) string {
	return fmt.Sprintf("%s:{%s}:p:%s", c.prefix, table, pk)
}

func (c *Client) TransactWrite(ctx context.Context, ops []storage.Operation) (storage.Receipt, error) {
	if len(ops) > storage.MaxTransactionItems {
		return storage.Receipt{}, fmt.Errorf("transaction of %d operations exceeds limit of %d", len(ops), storage.MaxTransactionItems)
	}
	prepared, err := storage.Prepare(ops)
	if err != nil {
		return storage.Receipt{}, err
	}
	if err := c.run(ctx, prepared); err != nil {
		return storage.Receipt{}, err
	}
	return storage.Receipt{Operations: len(prepared)}, nil
}

func (c *Client) BatchWrite(ctx context.Context, ops []storage.Operation) error {
	if len(ops) > storage.MaxBatchItems {
		return fmt.Errorf("batch of %d operations exceeds limit of %d", len(ops), storage.MaxBatchItems)
	}
	prepared, err := storage.Prepare(ops)
	if err != nil {
		return err
	}
	for _, op := range prepared {
		if op.Kind == storage.KindUpdate || op.Precondition != storage.PreconditionNone {
			return fmt.Errorf("batch write does not support %s operations", op)
		}
	}
	return c.run(ctx, prepared)
}

func (c *Client) run(ctx context.Context, ops []storage.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	keys := make([]string, 0, 2*len(ops))
	args := make([]scriptOp, 0, len(ops))
	for i, op := range ops {
		fields, err := encodeFields(op.Item)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		keys = append(keys, c.itemKey(op.Table, op.Key), c.partitionKey(op.Table, op.Key.PK))
		args = append(args, scriptOp{Kind: op.Kind, Precondition: op.Precondition, SK: op.Key.SK, Fields: fields})
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode script args: %w", err)
	}

	res, err := writeScript.Run(ctx, c.rdb, keys, string(raw)).Int64Slice()
	if err != nil {
		return classify(fmt.Errorf("write script: %w", err))
	}
	if len(res) != 2 {
		return fmt.Errorf("write script returned %v", res)
	}
	if res[0] >= 0 {
		c.logger.DebugContext(ctx, "transaction rejected", "operation", ops[res[0]].String(), "exists", res[1] == 1)
		return &storage.ConditionFailedError{Index: int(res[0]), Exists: res[1] == 1}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, table string, key storage.Key) (storage.Item, error) {
	fields, err := c.rdb.HGetAll(ctx, c.itemKey(table, key)).Result()
	if err != nil {
		return nil, classify(fmt.Errorf("get %s: %w", key, err))
	}
	if len(fields) == 0 {
		return nil, storage.ErrNotFound
	}
	return decodeFields(fields)
}

func (c *Client) Query(ctx context.Context, table, pk, skPrefix string) ([]storage.Item, error) {
	bounds := &redis.ZRangeBy{Min: "-", Max: "+"}
	if skPrefix != "" {
		bounds = &redis.ZRangeBy{Min: "[" + skPrefix, Max: "[" + skPrefix + "\xff"}
	}
	sks, err := c.rdb.ZRangeByLex(ctx, c.partitionKey(table, pk), bounds).Result()
	if err != nil {
		return nil, classify(fmt.Errorf("query %s: %w", pk, err))
	}
	if len(sks) == 0 {
		return []storage.Item{}, nil
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(sks))
	for i, sk := range sks {
		cmds[i] = pipe.HGetAll(ctx, c.itemKey(table, storage.Key{PK: pk, SK: sk}))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, classify(fmt.Errorf("query %s: %w", pk, err))
	}

	items := make([]storage.Item, 0, len(sks))
	for _, cmd := range cmds {
		fields := cmd.Val()
		// Deleted between the range and the read.
		if len(fields) == 0 {
			continue
		}
		item, err := decodeFields(fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// encodeFields flattens item into HSET field/value pairs.
func encodeFields(item storage.Item) ([]string, error) {
	fields := make([]string, 0, 2*len(item))
	for k, v := range item {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		fields = append(fields, k, string(raw))
	}
	return fields, nil
}

func decodeFields(fields map[string]string) (storage.Item, error) {
	item := make(storage.Item, len(fields))
	for k, raw := range fields {
		v, err := storage.DecodeValue([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		item[k] = v
	}
	return item, nil
}

func classify(err error) error {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		for _, prefix := range retryablePrefixes {
			if strings.HasPrefix(rerr.Error(), prefix) {
				return storage.Throttled(err)
			}
		}
	}
	return err
}
