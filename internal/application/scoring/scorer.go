// Package scoring computes per-patent composite scores from the cached
// classification results and enrichment signals. Both the normalization
// policies and the weighting profiles are configuration, not code: the
// scorer only implements the additive weighting scheme itself.
package scoring

import (
	"context"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// ScoredPatent is one patent with its signal values and computed scores.
type ScoredPatent struct {
	PatentID string `json:"patent_id"`
	Title    string `json:"title"`
	Assignee string `json:"assignee"`
	Sector   string `json:"sector,omitempty"`

	// Signals holds the raw values of every signal available for this
	// patent. Absent signals carry no key.
	Signals map[string]float64 `json:"signals"`

	// ProfileScores are the 0-100 scores per weighting profile.
	ProfileScores map[string]float64 `json:"profile_scores"`

	// Unified is the unweighted mean of the profile scores, the ranking key.
	Unified float64 `json:"unified_score"`
}

// Coverage reports how many patents carried each signal source, surfaced in
// run output so thin enrichment data is visible instead of silently scoring
// low.
type Coverage struct {
	Patents         int `json:"patents"`
	Classifications int `json:"classifications"`
	LLMScores       int `json:"llm_scores"`
	IPRScores       int `json:"ipr_scores"`
	Prosecution     int `json:"prosecution_scores"`
}

// Scorer computes composite scores over a portfolio snapshot.
type Scorer struct {
	store  cache.Store
	cfg    config.ScoringConfig
	logger logging.Logger

	profileNames []string
}

// NewScorer validates the profiles against the signal registry and returns
// the scorer. Validation failure is fatal to the run.
func NewScorer(store cache.Store, cfg config.ScoringConfig, log logging.Logger) (*Scorer, error) {
	if err := ValidateProfiles(cfg); err != nil {
		return nil, err
	}
	if len(cfg.Profiles) == 0 {
		return nil, errors.New(errors.ErrCodeProfileInvalid, "no scoring profiles configured")
	}
	return &Scorer{
		store:        store,
		cfg:          cfg,
		logger:       log,
		profileNames: sortedProfileNames(cfg.Profiles),
	}, nil
}

// ProfileNames returns the configured profile names in sorted order.
func (s *Scorer) ProfileNames() []string {
	return s.profileNames
}

// ScoreAll scores every snapshot candidate. A patent with no available
// signals scores 0 across the board; that is a data-coverage fact, not an
// error.
func (s *Scorer) ScoreAll(ctx context.Context, snap *patent.Snapshot) ([]ScoredPatent, *Coverage, error) {
	coverage := &Coverage{Patents: len(snap.Candidates)}
	scored := make([]ScoredPatent, 0, len(snap.Candidates))

	for i := range snap.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeTimeout, "scoring run canceled")
		}
		p := &snap.Candidates[i]
		signals, err := s.loadSignals(ctx, p, coverage)
		if err != nil {
			return nil, nil, err
		}
		scored = append(scored, s.score(p, signals))
	}

	s.logger.Info("scoring finished",
		logging.Int("patents", coverage.Patents),
		logging.Int("with_classification", coverage.Classifications),
		logging.Int("with_llm_scores", coverage.LLMScores),
	)
	return scored, coverage, nil
}

// score computes all profile scores and the unified score for one patent.
func (s *Scorer) score(p *patent.Patent, signals map[string]float64) ScoredPatent {
	result := ScoredPatent{
		PatentID:      p.ID,
		Title:         p.Title,
		Assignee:      p.Assignee,
		Sector:        p.Sector,
		Signals:       signals,
		ProfileScores: make(map[string]float64, len(s.profileNames)),
	}

	years := p.RemainingYears
	if v, ok := signals["years_remaining"]; ok {
		years = v
	}

	var sum float64
	for _, name := range s.profileNames {
		score := s.scoreProfile(s.cfg.Profiles[name], signals, years)
		result.ProfileScores[name] = score
		sum += score
	}
	result.Unified = sum / float64(len(s.profileNames))
	return result
}

// scoreProfile applies one weight table. Missing signals contribute to
// neither the numerator nor the weight denominator, so a patent is scored
// only on the evidence that exists for it.
func (s *Scorer) scoreProfile(profile config.ProfileConfig, signals map[string]float64, years float64) float64 {
	var num, den float64
	for signal, weight := range profile.Weights {
		value, ok := signals[signal]
		if !ok {
			continue
		}
		num += weight * normalize(s.cfg.Normalizers[signal], value)
		den += weight
	}
	if den == 0 {
		return 0
	}

	score := num / den * 100
	if profile.ApplyYearMultiplier {
		score *= yearMultiplier(years)
	}
	return score
}

// loadSignals assembles the signal map for one patent from the snapshot
// fields, the classification record, and the enrichment cache kinds.
func (s *Scorer) loadSignals(ctx context.Context, p *patent.Patent, coverage *Coverage) (map[string]float64, error) {
	signals := map[string]float64{
		"forward_citations": float64(p.ForwardCitations),
		"years_remaining":   p.RemainingYears,
	}

	var cls citation.Classification
	err := s.store.Get(ctx, cache.KindClassifications, p.ID, &cls)
	switch {
	case err == nil:
		if cls.HasCitationData {
			signals["competitor_citations"] = float64(cls.CompetitorCitations)
			signals["competitor_count"] = float64(cls.CompetitorCount)
			coverage.Classifications++
		}
	case err == cache.ErrNotFound:
		// Unclassified patents score on the remaining signals.
	default:
		return nil, err
	}

	kinds := []struct {
		kind  string
		count *int
	}{
		{cache.KindLLMScores, &coverage.LLMScores},
		{cache.KindIPRScores, &coverage.IPRScores},
		{cache.KindProsecutionScores, &coverage.Prosecution},
	}
	for _, k := range kinds {
		found, err := s.mergeEnrichment(ctx, k.kind, p.ID, signals)
		if err != nil {
			return nil, err
		}
		if found {
			*k.count++
		}
	}
	return signals, nil
}

// mergeEnrichment folds one enrichment record into the signal map. Records
// are flat JSON objects; only keys registered as signals are taken, so an
// enrichment file can carry extra metadata without polluting scoring.
func (s *Scorer) mergeEnrichment(ctx context.Context, kind, patentID string, signals map[string]float64) (bool, error) {
	var record map[string]interface{}
	err := s.store.Get(ctx, kind, patentID, &record)
	if err == cache.ErrNotFound {
		return false, nil
	}
	if err != nil {
		s.logger.Warn("enrichment record unreadable, skipping",
			logging.String("kind", kind), logging.String("patent_id", patentID), logging.Err(err))
		return false, nil
	}

	merged := false
	for signal := range s.cfg.Normalizers {
		if raw, ok := record[signal]; ok {
			if v, ok := raw.(float64); ok {
				signals[signal] = v
				merged = true
			}
		}
	}
	return merged, nil
}
