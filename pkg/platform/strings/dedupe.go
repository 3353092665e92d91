// Package strings provides string slice helpers shared by the domain packages.
package strings

import (
	"slices"
	"strings"
)

// DedupeAndTrim trims every element and drops empties and repeats.
// First-seen order is preserved.
//
//	DedupeAndTrim([]string{" 111 ", "222", "111", ""})
//	// []string{"111", "222"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortedSet returns the trimmed members of set in lexical order.
func SortedSet(set map[string]struct{}) []string {
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	members = DedupeAndTrim(members)
	slices.Sort(members)
	return members
}
