package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/prometheus"
	"github.com/ipbench/ipsignal/internal/infrastructure/patentsview"
)

type fetchOptions struct {
	Force bool
	Start int
	Limit int
}

// fetchSummary reports one fetch run.
type fetchSummary struct {
	Fetched int `json:"fetched"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

func newFetchCmd() *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch forward citations into the cache",
		Long:  "Fetches the forward-citation set of every snapshot patent from the\nupstream patent API into the citations cache, rate limited to the API\nquota. Patents already fetched are skipped unless --force is given.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "refetch patents that already have a citation record")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "zero-based portfolio index to start at")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum patents to fetch (0 = all)")
	return cmd
}

func runFetch(cmd *cobra.Command, opts *fetchOptions) error {
	app := appFrom(cmd)
	ctx := cmd.Context()

	snap, err := patent.LoadSnapshot(app.cfg.Pipeline.SnapshotPath)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, app)
	if err != nil {
		return err
	}
	metrics := prometheus.NewPipelineMetrics()
	if app.cfg.Metrics.Enabled {
		go metrics.Serve(ctx, app.cfg.Metrics.Addr, app.logger.Named("metrics"))
	}
	client := patentsview.NewClient(app.cfg.PatentsView, app.logger.Named("patentsview"), patentsview.WithMetrics(metrics))

	candidates := snap.Candidates
	if opts.Start > 0 {
		if opts.Start > len(candidates) {
			return fmt.Errorf("start index %d out of range [0,%d]", opts.Start, len(candidates))
		}
		candidates = candidates[opts.Start:]
	}
	if opts.Limit > 0 && opts.Limit < len(candidates) {
		candidates = candidates[:opts.Limit]
	}

	summary := &fetchSummary{}
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := &candidates[i]
		if err := fetchOne(ctx, store, client, p.ID, opts.Force, summary, app.logger); err != nil {
			return err
		}
	}

	return printResult(app, summary, func() {
		fmt.Printf("fetched %d, skipped %d, errored %d\n", summary.Fetched, summary.Skipped, summary.Errored)
	})
}

// fetchOne fetches and caches one patent's citations. Upstream failures are
// logged and counted; they never abort the batch.
func fetchOne(ctx context.Context, store cache.Store, client patentsview.Client, patentID string, force bool, summary *fetchSummary, log logging.Logger) error {
	if !force {
		exists, err := store.Exists(ctx, cache.KindCitations, patentID)
		if err != nil {
			return err
		}
		if exists {
			summary.Skipped++
			return nil
		}
	}

	citing, err := client.ForwardCitations(ctx, patentID)
	if err != nil {
		summary.Errored++
		log.Warn("citation fetch failed, continuing",
			logging.String("patent_id", patentID), logging.Err(err))
		return nil
	}

	record := citation.CitationRecord{
		PatentID:      patentID,
		FetchedAt:     time.Now().UTC(),
		CitingPatents: citing,
	}
	if err := store.Put(ctx, cache.KindCitations, patentID, record); err != nil {
		return err
	}
	summary.Fetched++
	return nil
}
