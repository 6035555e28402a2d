package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseIDs checks that arbitrary path segments and JSON strings either
// parse into a canonical, non-nil id that survives a second parse, or fail.
func FuzzParseIDs(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"0712345678",
		string([]byte{0xff, 0xfe}),
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		for kind, parse := range parsers {
			canonical, err := parse(input)
			if err != nil {
				continue
			}
			if !utf8.ValidString(input) {
				t.Fatalf("%s accepted non-UTF-8 input %q", kind, input)
			}
			again, err := parse(canonical)
			if err != nil || again != canonical {
				t.Fatalf("%s: %q is not stable (%q, %v)", kind, canonical, again, err)
			}
		}
	})
}
