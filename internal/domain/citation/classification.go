// Package citation defines the per-patent citation classification record and
// the wire formats of the citation cache it is derived from.
package citation

import "time"

// CitingPatent is one forward citation as stored in the citations cache:
// the citing patent's ID plus its assignee organizations.
type CitingPatent struct {
	PatentID  string `json:"patent_id"`
	Assignees []struct {
		AssigneeOrganization string `json:"assignee_organization"`
	} `json:"assignees"`
}

// CitationRecord is the cached forward-citation set for one portfolio
// patent.  Absence of the record in the cache is semantically distinct from
// an empty CitingPatents list: the former means "not fetched yet".
type CitationRecord struct {
	PatentID      string         `json:"patent_id"`
	FetchedAt     time.Time      `json:"fetched_at"`
	CitingPatents []CitingPatent `json:"citing_patents"`
}

// Detail is one classified forward citation.  NormalizedAssignee is the
// canonical grouping key of the raw assignee, so downstream analysis can
// group citations by parent company without re-normalizing.
type Detail struct {
	CitingPatentID     string `json:"citing_patent_id"`
	Assignee           string `json:"assignee"`
	NormalizedAssignee string `json:"normalized_assignee,omitempty"`
	Class              string `json:"class"`
	Company            string `json:"company,omitempty"`
	Category           string `json:"category,omitempty"`
}

// Classification is the per-patent classification aggregate.  It is written
// once per patent and reused on later runs unless recomputation is forced.
//
// Invariant: when HasCitationData is true,
// CompetitorCitations + AffiliateCitations + NeutralCitations == TotalForwardCitations.
type Classification struct {
	PatentID              string    `json:"patent_id"`
	HasCitationData       bool      `json:"has_citation_data"`
	TotalForwardCitations int       `json:"total_forward_citations"`
	CompetitorCitations   int       `json:"competitor_citations"`
	AffiliateCitations    int       `json:"affiliate_citations"`
	NeutralCitations      int       `json:"neutral_citations"`
	CompetitorCount       int       `json:"competitor_count"`
	CompetitorNames       []string  `json:"competitor_names,omitempty"`
	Details               []Detail  `json:"details,omitempty"`
	ClassifiedAt          time.Time `json:"classified_at"`
}

// Conserved reports whether the classification counts satisfy the
// conservation invariant.  NoData records are trivially conserved.
func (c *Classification) Conserved() bool {
	if !c.HasCitationData {
		return c.TotalForwardCitations == 0 &&
			c.CompetitorCitations == 0 && c.AffiliateCitations == 0 && c.NeutralCitations == 0
	}
	return c.CompetitorCitations+c.AffiliateCitations+c.NeutralCitations == c.TotalForwardCitations
}

// CompetitorShare pairs a competitor company with its citation count, used
// in the per-run top-competitor breakdown.
type CompetitorShare struct {
	Company   string `json:"company"`
	Citations int    `json:"citations"`
}

// RunSummary is the aggregate record persisted once per classification run.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	DryRun    bool      `json:"dry_run"`
	Start     int       `json:"start"`
	Limit     int       `json:"limit"`

	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	NoData    int `json:"no_data"`

	TotalCitations      int `json:"total_citations"`
	CompetitorCitations int `json:"competitor_citations"`
	AffiliateCitations  int `json:"affiliate_citations"`
	NeutralCitations    int `json:"neutral_citations"`

	PatentsWithCompetitorCitations int               `json:"patents_with_competitor_citations"`
	TopCompetitors                 []CompetitorShare `json:"top_competitors"`
}
