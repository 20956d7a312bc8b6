package taxonomy

import (
	"regexp"

	"github.com/ipbench/ipsignal/pkg/errors"
)

// Class is the classification of a citing assignee.
type Class string

const (
	// ClassAffiliate marks an assignee inside the portfolio owner's own
	// corporate family; its citations carry no competitive signal.
	ClassAffiliate Class = "affiliate"

	// ClassCompetitor marks an assignee matched against the competitor
	// taxonomy.
	ClassCompetitor Class = "competitor"

	// ClassNeutral marks everything else, including empty assignees.
	ClassNeutral Class = "neutral"
)

// Match is the result of classifying one assignee string.  Company and
// Category are populated only for ClassCompetitor.
type Match struct {
	Class    Class
	Company  string
	Category string
}

type compiledPattern struct {
	re       *regexp.Regexp
	company  string
	category string
}

// Matcher classifies raw assignee strings against a compiled taxonomy.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	excludes    []*regexp.Regexp
	competitors []compiledPattern
}

// NewMatcher compiles all patterns of the enabled categories plus the
// exclude list.  Every pattern is compiled case-insensitive.  Any pattern
// that fails to compile aborts construction: a silently skipped pattern
// would silently drop classification accuracy.
//
// Competitor pattern order is category name order (sorted), then company
// order, then pattern order within the company, and classification is
// first-match-wins, so results are reproducible given the same taxonomy.
func NewMatcher(tax *Taxonomy) (*Matcher, error) {
	m := &Matcher{}

	for _, raw := range tax.ExcludePatterns {
		re, err := compileInsensitive(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTaxonomyPatternInvalid, "exclude pattern does not compile").WithDetail(raw)
		}
		m.excludes = append(m.excludes, re)
	}

	for _, name := range tax.categoryNames() {
		cat := tax.Categories[name]
		if !cat.Enabled {
			continue
		}
		for _, company := range cat.Companies {
			for _, raw := range company.Patterns {
				re, err := compileInsensitive(raw)
				if err != nil {
					return nil, errors.Wrap(err, errors.ErrCodeTaxonomyPatternInvalid, "competitor pattern does not compile").
						WithDetail(name + "/" + company.Name + ": " + raw)
				}
				m.competitors = append(m.competitors, compiledPattern{
					re:       re,
					company:  company.Name,
					category: name,
				})
			}
		}
	}

	return m, nil
}

func compileInsensitive(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Classify returns exactly one of affiliate, competitor, or neutral for the
// given raw assignee string.
//
// The exclude check always runs first: a portfolio-family entity must never
// be counted as a competitor even when it coincidentally matches a
// competitor pattern.
func (m *Matcher) Classify(assignee string) Match {
	if assignee == "" {
		return Match{Class: ClassNeutral}
	}

	for _, re := range m.excludes {
		if re.MatchString(assignee) {
			return Match{Class: ClassAffiliate}
		}
	}

	for _, p := range m.competitors {
		if p.re.MatchString(assignee) {
			return Match{Class: ClassCompetitor, Company: p.company, Category: p.category}
		}
	}

	return Match{Class: ClassNeutral}
}
