// Package patent defines the portfolio patent entity and the snapshot file
// format that serves as the authoritative patent list for a run.
package patent

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ipbench/ipsignal/pkg/errors"
)

// TermYears is the utility-patent term measured from grant date.
const TermYears = 20.0

// Patent is one portfolio patent as carried through the pipeline.  The ID is
// a jurisdiction-scoped patent number and may include a leading type letter
// for design patents (e.g. "D842867"); it is treated as opaque everywhere.
type Patent struct {
	ID               string    `json:"patent_id"`
	Title            string    `json:"title"`
	GrantDate        time.Time `json:"grant_date"`
	Assignee         string    `json:"assignee"`
	ForwardCitations int       `json:"forward_citations"`
	RemainingYears   float64   `json:"remaining_years"`
	CPCCodes         []string  `json:"cpc_codes"`
	Sector           string    `json:"sector,omitempty"`
	SuperSector      string    `json:"super_sector,omitempty"`
}

// RemainingYearsAt computes the remaining term at the given instant from the
// grant date and the 20-year term, floored at zero.  Snapshot files usually
// carry a precomputed remaining_years; this is the recomputation used by
// ingest when the field is absent.
func (p *Patent) RemainingYearsAt(now time.Time) float64 {
	if p.GrantDate.IsZero() {
		return 0
	}
	expiry := p.GrantDate.AddDate(int(TermYears), 0, 0)
	years := expiry.Sub(now).Hours() / 24 / 365.25
	if years < 0 {
		return 0
	}
	return years
}

// Snapshot is the portfolio snapshot file: the authoritative candidate list
// plus capture metadata.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Candidates  []Patent  `json:"candidates"`
}

// snapshotWire tolerates the grant date being either RFC 3339 or a bare
// YYYY-MM-DD as the upstream exports produce.
type patentWire struct {
	ID               string   `json:"patent_id"`
	Title            string   `json:"title"`
	Date             string   `json:"date"`
	Assignee         string   `json:"assignee"`
	ForwardCitations int      `json:"forward_citations"`
	RemainingYears   float64  `json:"remaining_years"`
	CPCCodes         []string `json:"cpc_codes"`
	Sector           string   `json:"sector"`
	SuperSector      string   `json:"super_sector"`
}

type snapshotWire struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Candidates  []patentWire `json:"candidates"`
}

// LoadSnapshot reads and parses a portfolio snapshot JSON file.  A missing
// or malformed snapshot is a setup error and fatal to the run.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigMissing, "portfolio snapshot unreadable").WithDetail(path)
	}

	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotInvalid, "portfolio snapshot is not valid JSON").WithDetail(path)
	}
	if len(wire.Candidates) == 0 {
		return nil, errors.New(errors.ErrCodeSnapshotInvalid, "portfolio snapshot has no candidates").WithDetail(path)
	}

	snap := &Snapshot{GeneratedAt: wire.GeneratedAt, Candidates: make([]Patent, 0, len(wire.Candidates))}
	for _, w := range wire.Candidates {
		p := Patent{
			ID:               w.ID,
			Title:            w.Title,
			Assignee:         w.Assignee,
			ForwardCitations: w.ForwardCitations,
			RemainingYears:   w.RemainingYears,
			CPCCodes:         w.CPCCodes,
			Sector:           w.Sector,
			SuperSector:      w.SuperSector,
		}
		if w.Date != "" {
			p.GrantDate = parseGrantDate(w.Date)
		}
		snap.Candidates = append(snap.Candidates, p)
	}
	return snap, nil
}

func parseGrantDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
