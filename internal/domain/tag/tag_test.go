package tag

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout(t *testing.T) {
	t.Run("cross product of multi-valued attributes", func(t *testing.T) {
		fields := map[string]any{"a": "x", "b": []string{"1", "2"}, "c": []string{"p", "q"}}
		tags := Fanout(fields, [][]string{{"a", "b", "c"}})

		require.Len(t, tags, 4)
		seen := map[string]struct{}{}
		for _, tg := range tags {
			require.Len(t, tg, 3)
			assert.Equal(t, "x", tg[0].Value)
			seen[tg.String()] = struct{}{}
		}
		assert.Len(t, seen, 4)
		assert.Contains(t, seen, "a=x&b=1&c=p")
		assert.Contains(t, seen, "a=x&b=2&c=q")
	})

	t.Run("single-valued input yields one tag per combination", func(t *testing.T) {
		fields := map[string]any{"a": "x", "b": "y"}
		tags := Fanout(fields, [][]string{{"a"}, {"b"}, {"a", "b"}})
		require.Len(t, tags, 3)
		assert.Equal(t, "a=x&b=y", tags[2].String())
	})

	t.Run("combination with absent attribute is skipped", func(t *testing.T) {
		fields := map[string]any{"a": "x"}
		tags := Fanout(fields, [][]string{{"a", "missing"}, {"a"}})
		require.Len(t, tags, 1)
		assert.Equal(t, "a=x", tags[0].String())
	})

	t.Run("sets and scalars", func(t *testing.T) {
		fields := map[string]any{
			"interaction": map[string]struct{}{"urn:a": {}, "urn:b": {}, "urn:c": {}},
			"port":        443,
		}
		tags := Fanout(fields, [][]string{{"interaction", "port"}})
		require.Len(t, tags, 3)
		assert.Equal(t, "443", tags[0][1].Value)
	})

	t.Run("duplicate members are collapsed", func(t *testing.T) {
		fields := map[string]any{"b": []string{"1", " 1 ", "2", ""}}
		assert.Len(t, Fanout(fields, [][]string{{"b"}}), 2)
	})

	t.Run("members differing only in case are one value", func(t *testing.T) {
		fields := map[string]any{"a": "x", "b": []string{"ABC", "abc"}}
		tags := Fanout(fields, [][]string{{"a", "b"}})
		require.Len(t, tags, 1)
		assert.Equal(t, "a=x&b=abc", tags[0].String())
	})

	t.Run("repeated combinations yield distinct tags", func(t *testing.T) {
		fields := map[string]any{"a": "x", "b": []string{"1", "2"}}
		tags := Fanout(fields, [][]string{{"a", "b"}, {"b", "a"}})
		assert.Len(t, tags, 2)
	})

	t.Run("empty value set yields nothing", func(t *testing.T) {
		fields := map[string]any{"b": []string{}}
		assert.Empty(t, Fanout(fields, [][]string{{"b"}}))
	})
}

func TestTagCanonicalForm(t *testing.T) {
	t.Run("keys sorted and lower-cased", func(t *testing.T) {
		tg := New(Pair{Key: "Party_Key", Value: "ABC-123456"}, Pair{Key: "interaction_id", Value: "urn:nhs:x"})
		assert.Equal(t, "interaction_id=urn%3Anhs%3Ax&party_key=abc-123456", tg.String())
	})

	t.Run("parse round-trips", func(t *testing.T) {
		tg := New(Pair{Key: "b", Value: "two words"}, Pair{Key: "a", Value: "x&y"})
		parsed, err := Parse(tg.String())
		require.NoError(t, err)
		assert.True(t, tg.Equal(parsed))
	})

	t.Run("from query values", func(t *testing.T) {
		tg, err := FromValues(url.Values{"B": {"1"}, "a": {"X"}})
		require.NoError(t, err)
		assert.Equal(t, "a=x&b=1", tg.String())
	})

	t.Run("rejects repeated query values", func(t *testing.T) {
		_, err := FromValues(url.Values{"a": {"1", "2"}})
		require.Error(t, err)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		_, err := FromValues(url.Values{})
		require.Error(t, err)
	})
}
