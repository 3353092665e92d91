package redis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

func TestFields(t *testing.T) {
	item := storage.Item{
		"pk":    "D#1",
		"big":   json.Number("12345678901234567890"),
		"tags":  []any{"a=1"},
		"root":  true,
		"empty": nil,
	}
	fields, err := encodeFields(item)
	require.NoError(t, err)
	require.Len(t, fields, 10)

	pairs := map[string]string{}
	for i := 0; i < len(fields); i += 2 {
		pairs[fields[i]] = fields[i+1]
	}
	assert.Equal(t, `"D#1"`, pairs["pk"])
	assert.Equal(t, `12345678901234567890`, pairs["big"])

	decoded, err := decodeFields(pairs)
	require.NoError(t, err)
	assert.Equal(t, item, decoded)
}

func TestKeys(t *testing.T) {
	c, err := New(nil)
	require.Error(t, err)
	require.Nil(t, c)

	c = &Client{prefix: "cpm"}
	assert.Equal(t, "cpm:{cpm-test}:i:PT#1|P#1", c.itemKey("cpm-test", storage.Key{PK: "PT#1", SK: "P#1"}))
	assert.Equal(t, "cpm:{cpm-test}:p:PT#1", c.partitionKey("cpm-test", "PT#1"))
}

type fakeRedisError string

func (e fakeRedisError) Error() string { return string(e) }
func (e fakeRedisError) RedisError()   {}

func TestClassify(t *testing.T) {
	assert.True(t, storage.IsThrottled(classify(fakeRedisError("BUSY Redis is busy running a script"))))
	assert.True(t, storage.IsThrottled(classify(fakeRedisError("LOADING Redis is loading the dataset in memory"))))
	assert.False(t, storage.IsThrottled(classify(fakeRedisError("NOSCRIPT No matching script"))))
	assert.False(t, storage.IsThrottled(classify(errors.New("BUSY but not a redis reply"))))
}
