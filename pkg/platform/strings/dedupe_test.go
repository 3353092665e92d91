package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  urn:nhs:names:services:pds  ", "YES5-123456 "},
			expected: []string{"urn:nhs:names:services:pds", "YES5-123456"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"222", "111", "222", "333", "111"},
			expected: []string{"222", "111", "333"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"111", "", "  ", "222"},
			expected: []string{"111", "222"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSortedSet(t *testing.T) {
	set := map[string]struct{}{"q": {}, "p": {}, " r ": {}, "": {}}
	assert.Equal(t, []string{"p", "q", "r"}, SortedSet(set))
	assert.Empty(t, SortedSet(nil))
}
