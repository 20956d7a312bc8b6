// Package taxonomy loads the competitor taxonomy configuration and builds
// the assignee matcher that classifies citing parties as affiliate,
// competitor, or neutral.
package taxonomy

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/ipbench/ipsignal/pkg/errors"
)

// Company is one competitor entry: a display name plus the patterns that
// identify it in raw assignee strings.
type Company struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

// Category groups companies under a technology or market segment.  Disabled
// categories are loaded but contribute no patterns to the matcher.
type Category struct {
	Enabled   bool      `json:"enabled"`
	Companies []Company `json:"companies"`
}

// Taxonomy is the full competitor taxonomy configuration.  ExcludePatterns
// identify the portfolio owner's own corporate family; an assignee matching
// any of them is an affiliate regardless of competitor patterns.
type Taxonomy struct {
	Categories      map[string]Category `json:"categories"`
	ExcludePatterns []string            `json:"excludePatterns"`
}

// LoadFile reads and parses a taxonomy JSON file.  Pattern compilation is
// deferred to NewMatcher so that callers can inspect or merge taxonomies
// before building the matcher.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigMissing, "taxonomy file unreadable").WithDetail(path)
	}
	var tax Taxonomy
	if err := json.Unmarshal(data, &tax); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTaxonomyInvalid, "taxonomy file is not valid JSON").WithDetail(path)
	}
	if len(tax.Categories) == 0 {
		return nil, errors.New(errors.ErrCodeTaxonomyInvalid, "taxonomy defines no categories").WithDetail(path)
	}
	return &tax, nil
}

// categoryNames returns the category names in sorted order.  Pattern order
// must be reproducible across runs, and Go map iteration is not; sorting
// fixes the scan order the matcher sees.
func (t *Taxonomy) categoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for name := range t.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
