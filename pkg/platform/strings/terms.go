// Package strings holds small helpers for preparing word lists that end up in
// regular expressions or lookup tables.
package strings

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FoldTerm puts a configured term into the form message text is scanned in:
// NFKC-folded, lower-cased, inner whitespace collapsed to single spaces.
func FoldTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFKC.String(term))), " ")
}

// NormalizeTerms folds every term, drops blanks and duplicates, and orders the
// survivors longest first. Ties keep their input order.
//
// Longest-first matters for regexp alternations: RE2 prefers the leftmost
// alternative, so "t.me" listed before "t.me.example" would shadow it.
//
//	NormalizeTerms([]string{" Call  Me ", "dm me", "call me", ""})
//	// Returns: []string{"call me", "dm me"}
func NormalizeTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		folded := FoldTerm(t)
		if folded == "" {
			continue
		}
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}

	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	return out
}
