//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseProductTeamID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseProductTeamID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("PT#550e8400-e29b-41d4-a716-446655440000")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseProductTeamID(input)
		if err == nil {
			roundTrip, err2 := ParseProductTeamID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseProductID checks accepted product ids never contain key separators.
func FuzzParseProductID(f *testing.F) {
	f.Add("P.ACD-EFG")
	f.Add("P.ACD-EFG#")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseProductID(input)
		if err != nil {
			return
		}
		for _, r := range id.String() {
			if r == '#' {
				t.Errorf("accepted product id %q contains a key separator", id)
			}
		}
	})
}
