package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	apperrors "github.com/ipbench/ipsignal/pkg/errors"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Normalizers: config.DefaultNormalizers(),
		Profiles:    config.DefaultProfiles(),
	}
}

func newTestScorer(t *testing.T, store cache.Store, cfg config.ScoringConfig) *Scorer {
	t.Helper()
	s, err := NewScorer(store, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return s
}

func TestNewScorerRejectsUnknownSignal(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	cfg := testScoringConfig()
	cfg.Profiles["aggressive"] = config.ProfileConfig{
		Weights: map[string]float64{"made_up_signal": 1.0},
	}
	_, err = NewScorer(store, cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSignalUnknown))
}

func TestScoreProfileRenormalizesByPresentWeights(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	cfg := config.ScoringConfig{
		Normalizers: config.DefaultNormalizers(),
		Profiles: map[string]config.ProfileConfig{
			"test": {Weights: map[string]float64{
				"forward_citations": 0.4,
				"validity_score":    0.6,
			}},
		},
	}
	s := newTestScorer(t, store, cfg)
	profile := cfg.Profiles["test"]

	// Both signals present.
	full := s.scoreProfile(profile, map[string]float64{
		"forward_citations": 100,
		"validity_score":    5,
	}, 10)

	// Only the citation signal: the score must equal the citation term
	// renormalized to its own weight, not be dragged down by the absent
	// signal.
	partial := s.scoreProfile(profile, map[string]float64{
		"forward_citations": 100,
	}, 10)
	citationOnly := normalize(cfg.Normalizers["forward_citations"], 100) * 100
	assert.InDelta(t, citationOnly, partial, 1e-9)
	assert.Greater(t, full, partial) // validity 5/5 normalizes to 1 > citation term

	// No signals at all scores zero, never errors.
	assert.Zero(t, s.scoreProfile(profile, map[string]float64{}, 10))
}

func TestScoreProfileMonotonicity(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	cfg := testScoringConfig()
	s := newTestScorer(t, store, cfg)
	profile := cfg.Profiles["aggressive"]

	base := map[string]float64{
		"competitor_citations": 4,
		"competitor_count":     2,
		"forward_citations":    40,
		"years_remaining":      8,
	}
	prev := s.scoreProfile(profile, base, 8)
	for cc := 5.0; cc <= 45; cc += 5 {
		signals := map[string]float64{
			"competitor_citations": cc,
			"competitor_count":     2,
			"forward_citations":    40,
			"years_remaining":      8,
		}
		got := s.scoreProfile(profile, signals, 8)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestScoreProfileYearMultiplier(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	weights := map[string]float64{"forward_citations": 1.0}
	cfg := config.ScoringConfig{
		Normalizers: config.DefaultNormalizers(),
		Profiles: map[string]config.ProfileConfig{
			"flat":  {Weights: weights},
			"dated": {Weights: weights, ApplyYearMultiplier: true},
		},
	}
	s := newTestScorer(t, store, cfg)

	signals := map[string]float64{"forward_citations": 100}
	flat := s.scoreProfile(cfg.Profiles["flat"], signals, 5)
	dated := s.scoreProfile(cfg.Profiles["dated"], signals, 5)
	assert.InDelta(t, flat*yearMultiplier(5), dated, 1e-9)
}

func TestScoreAll(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, cache.KindClassifications, "A", citation.Classification{
		PatentID:              "A",
		HasCitationData:       true,
		TotalForwardCitations: 10,
		CompetitorCitations:   4,
		NeutralCitations:      6,
		CompetitorCount:       2,
	}))
	require.NoError(t, store.Put(ctx, cache.KindLLMScores, "A", map[string]interface{}{
		"patent_id":           "A",
		"eligibility_score":   5,
		"validity_score":      5,
		"claim_breadth":       4,
		"enforcement_clarity": 4,
		"model":               "ignored-metadata",
	}))
	require.NoError(t, store.Put(ctx, cache.KindIPRScores, "A", map[string]interface{}{
		"ipr_risk_score": 3,
	}))

	snap := &patent.Snapshot{Candidates: []patent.Patent{
		{ID: "A", ForwardCitations: 100, RemainingYears: 10},
		{ID: "B", ForwardCitations: 100, RemainingYears: 10},
	}}

	s := newTestScorer(t, store, testScoringConfig())
	scored, coverage, err := s.ScoreAll(ctx, snap)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	assert.Equal(t, 2, coverage.Patents)
	assert.Equal(t, 1, coverage.Classifications)
	assert.Equal(t, 1, coverage.LLMScores)
	assert.Equal(t, 1, coverage.IPRScores)
	assert.Zero(t, coverage.Prosecution)

	a, b := scored[0], scored[1]
	assert.Equal(t, "A", a.PatentID)

	// The enriched patent carries the extra signals and all profiles score.
	assert.Equal(t, 5.0, a.Signals["eligibility_score"])
	assert.Equal(t, 3.0, a.Signals["ipr_risk_score"])
	assert.NotContains(t, a.Signals, "model")
	assert.Len(t, a.ProfileScores, 3)
	assert.Greater(t, a.Unified, 0.0)

	// The bare patent still scores on citations and term alone.
	assert.NotContains(t, b.Signals, "competitor_citations")
	assert.Greater(t, b.Unified, 0.0)
	assert.Greater(t, a.Unified, b.Unified)
}

func TestScoreAllNoSignalsScoresZero(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	snap := &patent.Snapshot{Candidates: []patent.Patent{{ID: "X"}}}
	s := newTestScorer(t, store, testScoringConfig())

	scored, _, err := s.ScoreAll(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, scored, 1)

	// Zero-valued citation and term signals normalize to 0 under every
	// profile; nothing errors.
	assert.Zero(t, scored[0].Unified)
	for _, v := range scored[0].ProfileScores {
		assert.Zero(t, v)
	}
}
