// Package tag enumerates the attribute combinations that let a search over
// multi-valued device attributes resolve to a direct key lookup.
package tag

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
	cpmstrings "github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/strings"
)

// Pair is one single-valued attribute of a tag.
type Pair struct {
	Key   string
	Value string
}

// Tag is a set of pairs sorted by key. Keys and values are lower case so the
// canonical form is stable regardless of how a caller spelled the query.
type Tag []Pair

// New builds a canonical tag. Duplicate keys keep the last value.
func New(pairs ...Pair) Tag {
	byKey := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k := strings.ToLower(strings.TrimSpace(p.Key))
		if k == "" {
			continue
		}
		byKey[k] = strings.ToLower(strings.TrimSpace(p.Value))
	}
	t := make(Tag, 0, len(byKey))
	for k, v := range byKey {
		t = append(t, Pair{Key: k, Value: v})
	}
	slices.SortFunc(t, func(a, b Pair) int { return strings.Compare(a.Key, b.Key) })
	return t
}

// String renders the tag as a URL query string, e.g. "a=x&b=1".
func (t Tag) String() string {
	values := make([]string, 0, len(t))
	for _, p := range t {
		values = append(values, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(values, "&")
}

func (t Tag) Equal(other Tag) bool {
	return slices.Equal(t, other)
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parse reads the canonical string form back into a tag.
func Parse(s string) (Tag, error) {
	values, err := url.ParseQuery(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid tag")
	}
	return FromValues(values)
}

// FromValues builds a tag from HTTP query parameters. Each parameter must be
// single-valued.
func FromValues(values url.Values) (Tag, error) {
	if len(values) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tag must have at least one attribute")
	}
	pairs := make([]Pair, 0, len(values))
	for k, vs := range values {
		if len(vs) != 1 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("tag attribute %q must have exactly one value", k))
		}
		pairs = append(pairs, Pair{Key: k, Value: vs[0]})
	}
	return New(pairs...), nil
}

// Fanout returns every tag that should resolve to an entity with the given
// fields, one query combination at a time.
//
// Field values may be a string, a []string, a set (map[string]struct{}), or any
// other scalar (formatted with %v). A combination naming an absent field, or a
// field whose value set is empty, produces no tags.
//
//	Fanout(map[string]any{"a": "x", "b": []string{"1", "2"}}, [][]string{{"a", "b"}})
//	// [a=x&b=1 a=x&b=2]
//
// Values are compared in canonical (lower-case) form, so the result never holds
// two tags with the same String.
func Fanout(fields map[string]any, queries [][]string) []Tag {
	var tags []Tag
	seen := make(map[string]struct{})
	for _, query := range queries {
		for _, t := range fanoutQuery(fields, query) {
			if _, ok := seen[t.String()]; ok {
				continue
			}
			seen[t.String()] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

func fanoutQuery(fields map[string]any, query []string) []Tag {
	if len(query) == 0 {
		return nil
	}
	names := slices.Clone(query)
	slices.Sort(names)
	names = slices.Compact(names)

	domains := make([][]string, len(names))
	for i, name := range names {
		v, ok := fields[name]
		if !ok {
			return nil
		}
		domains[i] = valueSet(v)
		if len(domains[i]) == 0 {
			return nil
		}
	}

	// Cross product over the value sets; single-valued attributes have a set of
	// one and so stay fixed.
	var tags []Tag
	idx := make([]int, len(names))
	for {
		pairs := make([]Pair, len(names))
		for i, name := range names {
			pairs[i] = Pair{Key: name, Value: domains[i][idx[i]]}
		}
		tags = append(tags, New(pairs...))

		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(domains[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return tags
		}
	}
}

func valueSet(v any) []string {
	var values []string
	switch t := v.(type) {
	case string:
		values = []string{t}
	case []string:
		values = slices.Clone(t)
	case map[string]struct{}:
		values = cpmstrings.SortedSet(t)
	case []any:
		values = make([]string, 0, len(t))
		for _, e := range t {
			values = append(values, fmt.Sprint(e))
		}
	case nil:
		return nil
	default:
		values = []string{fmt.Sprint(t)}
	}
	for i, value := range values {
		values[i] = strings.ToLower(value)
	}
	return cpmstrings.DedupeAndTrim(values)
}
