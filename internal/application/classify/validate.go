package classify

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// maxDiscrepancyExamples caps how many mismatches the report carries in
// full; the counts always cover everything.
const maxDiscrepancyExamples = 20

// Discrepancy is one patent whose competitor count disagrees with the
// ground truth.
type Discrepancy struct {
	PatentID string `json:"patent_id"`
	Got      int    `json:"got"`
	Want     int    `json:"want"`
}

// ValidationReport summarizes a comparison of cached classifications against
// an alternate ground-truth export.
type ValidationReport struct {
	GroundTruthPath string        `json:"ground_truth_path"`
	Compared        int           `json:"compared"`
	Matches         int           `json:"matches"`
	Mismatches      int           `json:"mismatches"`
	MissingRecords  int           `json:"missing_records"`
	Examples        []Discrepancy `json:"examples,omitempty"`
}

// groundTruth is the alternate export format: patent ID to expected
// competitor citation count.
type groundTruth struct {
	Classifications map[string]struct {
		CompetitorCitations int `json:"competitor_citations"`
	} `json:"classifications"`
}

// Validate compares cached classification records against the ground-truth
// file. A missing or empty path is not an error: validation is advisory, and
// the ground truth is often unavailable outside the original analysis
// environment.
func Validate(ctx context.Context, store cache.Store, path string, log logging.Logger) (*ValidationReport, error) {
	report := &ValidationReport{GroundTruthPath: path}

	if path == "" {
		log.Warn("no ground-truth path configured, skipping validation")
		return report, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn("ground-truth file not found, skipping validation", logging.String("path", path))
		return report, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "ground-truth file unreadable").WithDetail(path)
	}

	var truth groundTruth
	if err := json.Unmarshal(data, &truth); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "ground-truth file is not valid JSON").WithDetail(path)
	}

	for patentID, want := range truth.Classifications {
		var got citation.Classification
		err := store.Get(ctx, cache.KindClassifications, patentID, &got)
		if err == cache.ErrNotFound {
			report.MissingRecords++
			continue
		}
		if err != nil {
			return nil, err
		}

		report.Compared++
		if got.CompetitorCitations == want.CompetitorCitations {
			report.Matches++
			continue
		}
		report.Mismatches++
		if len(report.Examples) < maxDiscrepancyExamples {
			report.Examples = append(report.Examples, Discrepancy{
				PatentID: patentID,
				Got:      got.CompetitorCitations,
				Want:     want.CompetitorCitations,
			})
		}
	}

	log.Info("validation finished",
		logging.Int("compared", report.Compared),
		logging.Int("matches", report.Matches),
		logging.Int("mismatches", report.Mismatches),
		logging.Int("missing_records", report.MissingRecords),
	)
	return report, nil
}
