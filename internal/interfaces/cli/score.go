package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipbench/ipsignal/internal/application/ranking"
	"github.com/ipbench/ipsignal/internal/application/scoring"
	"github.com/ipbench/ipsignal/internal/application/sector"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
)

type scoreOptions struct {
	Profile     string
	Top         int
	TierSize    int
	CompareWith string
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute composite scores and rank the portfolio",
		Long:  "Scores every snapshot patent from the cached classification results and\nenrichment signals, ranks by unified score, and prints the leaders plus\na score distribution summary. With --compare-with, also reports ranking\nstability against a prior JSON export.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "rank by one profile's score instead of the unified score")
	cmd.Flags().IntVar(&opts.Top, "top", 25, "number of leading patents to print (0 = all)")
	cmd.Flags().IntVar(&opts.TierSize, "tier-size", 50, "patents per tier")
	cmd.Flags().StringVar(&opts.CompareWith, "compare-with", "", "prior JSON export to compare rankings against")
	return cmd
}

func runScore(cmd *cobra.Command, opts *scoreOptions) error {
	app := appFrom(cmd)
	ctx := cmd.Context()

	store, err := newStore(ctx, app)
	if err != nil {
		return err
	}
	snap, err := patent.LoadSnapshot(app.cfg.Pipeline.SnapshotPath)
	if err != nil {
		return err
	}
	ranked, _, coverage, err := scoreAndRank(ctx, app, store, snap, opts.Profile, opts.TierSize)
	if err != nil {
		return err
	}

	dist := ranking.Summarize(ranked, opts.Top)

	var comparison *ranking.Comparison
	if opts.CompareWith != "" {
		baseline, err := ranking.LoadReport(opts.CompareWith)
		if err != nil {
			return err
		}
		n := opts.Top
		if n <= 0 {
			n = len(ranked)
		}
		comparison = ranking.Compare(ranked, baseline, n)
	}

	top := ranking.TopN(ranked, opts.Top)
	result := struct {
		Coverage     *scoring.Coverage   `json:"coverage"`
		Distribution ranking.Distribution `json:"distribution"`
		Comparison   *ranking.Comparison `json:"comparison,omitempty"`
		Patents      []ranking.RankedPatent `json:"patents"`
	}{Coverage: coverage, Distribution: dist, Comparison: comparison, Patents: top}

	return printResult(app, result, func() {
		fmt.Printf("scored %d patents (%d classified, %d with LLM scores)\n",
			coverage.Patents, coverage.Classifications, coverage.LLMScores)
		fmt.Printf("top %d: max %.1f, p10 %.1f, p50 %.1f, min %.1f, avg %.1f\n",
			dist.Count, dist.Max, dist.P10, dist.P50, dist.Min, dist.Avg)
		if comparison != nil {
			fmt.Printf("vs baseline: %d common, top-%d overlap %.0f%%, spearman %.3f\n",
				comparison.Common, comparison.TopN, comparison.TopNOverlap*100, comparison.Spearman)
		}
		for _, r := range top {
			fmt.Printf("%4d. %-12s %6.1f  tier %d  %s\n", r.Rank, r.PatentID, r.Unified, r.Tier, r.Sector)
		}
	})
}

// scoreAndRank runs the scorer over the portfolio and ranks the result,
// optionally by a single profile's score.
func scoreAndRank(ctx context.Context, app *appContext, store cache.Store, snap *patent.Snapshot, profile string, tierSize int) ([]ranking.RankedPatent, *scoring.Scorer, *scoring.Coverage, error) {
	applySectors(ctx, store, snap)

	scorer, err := scoring.NewScorer(store, app.cfg.Scoring, app.logger.Named("scoring"))
	if err != nil {
		return nil, nil, nil, err
	}
	if profile != "" {
		if _, ok := app.cfg.Scoring.Profiles[profile]; !ok {
			return nil, nil, nil, fmt.Errorf("unknown profile %q, configured: %v", profile, scorer.ProfileNames())
		}
	}

	scored, coverage, err := scorer.ScoreAll(ctx, snap)
	if err != nil {
		return nil, nil, nil, err
	}

	var ranked []ranking.RankedPatent
	if profile != "" {
		ranked = ranking.RankBy(scored, func(s *scoring.ScoredPatent) float64 {
			return s.ProfileScores[profile]
		})
	} else {
		ranked = ranking.Rank(scored)
	}
	ranking.AssignTiers(ranked, tierSize)
	return ranked, scorer, coverage, nil
}

// applySectors mirrors cached sector assignments onto the snapshot so the
// ranking output carries them. Patents without a record stay unsectored.
func applySectors(ctx context.Context, store cache.Store, snap *patent.Snapshot) {
	for i := range snap.Candidates {
		p := &snap.Candidates[i]
		var a sector.Assignment
		if err := store.Get(ctx, cache.KindSectors, p.ID, &a); err == nil {
			p.Sector = a.Sector
			p.SuperSector = a.SuperSector
		}
	}
}
