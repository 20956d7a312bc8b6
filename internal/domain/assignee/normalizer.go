// Package assignee normalizes raw legal-entity names into canonical grouping
// keys so that citation counts group by ultimate parent company rather than
// by legal-suffix spelling ("X Corp.", "X Corporation", "X, Inc.").
package assignee

import "strings"

// corporateSuffixes is the fixed set of trailing tokens stripped during
// normalization.  Matching is case-insensitive because input is lower-cased
// before the strip passes.
var corporateSuffixes = map[string]struct{}{
	"inc":          {},
	"llc":          {},
	"ltd":          {},
	"corp":         {},
	"corporation":  {},
	"company":      {},
	"co":           {},
	"technologies": {},
	"technology":   {},
	"licensing":    {},
	"holdings":     {},
	"group":        {},
}

// Normalize collapses an assignee name to its canonical grouping key:
// lower-cased, punctuation removed, whitespace collapsed, with trailing
// corporate suffix tokens stripped.  The strip pass runs twice so double
// suffixes like "X Corp. Inc." reduce fully.
//
// Normalize is pure and total: it never fails, and an empty input yields an
// empty output.  It is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ';', '(', ')':
			return ' '
		}
		return r
	}, s)

	tokens := strings.Fields(s)
	for pass := 0; pass < 2; pass++ {
		tokens = stripTrailingSuffix(tokens)
	}
	return strings.Join(tokens, " ")
}

// stripTrailingSuffix removes one trailing corporate-suffix token, if any.
// A single-token name is never stripped to empty: "Samsung" must not vanish
// even though "co" alone would.
func stripTrailingSuffix(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	if _, ok := corporateSuffixes[tokens[len(tokens)-1]]; ok {
		return tokens[:len(tokens)-1]
	}
	return tokens
}
