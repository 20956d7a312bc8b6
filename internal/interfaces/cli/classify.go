package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipbench/ipsignal/internal/application/classify"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/domain/taxonomy"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/prometheus"
)

type classifyOptions struct {
	DryRun   bool
	Force    bool
	Start    int
	Limit    int
	Validate bool
}

func newClassifyCmd() *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify cached forward citations",
		Long:  "Classifies every cached forward citation as competitor, affiliate, or\nneutral against the competitor taxonomy and persists one record per\npatent. Re-runs skip already-classified patents unless --force is given.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute everything but write nothing")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "recompute patents that already have a classification record")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "zero-based portfolio index to start at")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum patents to process (0 = all)")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "compare results against the ground-truth export after the run")
	return cmd
}

func runClassify(cmd *cobra.Command, opts *classifyOptions) error {
	app := appFrom(cmd)
	ctx := cmd.Context()

	snap, err := patent.LoadSnapshot(app.cfg.Pipeline.SnapshotPath)
	if err != nil {
		return err
	}
	tax, err := taxonomy.LoadFile(app.cfg.Pipeline.TaxonomyPath)
	if err != nil {
		return err
	}
	matcher, err := taxonomy.NewMatcher(tax)
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

	svc := classify.NewService(store, matcher, metrics, app.cfg.Pipeline.TopCompetitors, app.logger.Named("classify"))
	summary, err := svc.Run(ctx, snap, classify.Options{
		DryRun: opts.DryRun,
		Force:  opts.Force,
		Start:  opts.Start,
		Limit:  opts.Limit,
	})
	if err != nil {
		return err
	}

	var report *classify.ValidationReport
	if opts.Validate {
		report, err = classify.Validate(ctx, store, app.cfg.Pipeline.GroundTruthPath, app.logger.Named("validate"))
		if err != nil {
			return err
		}
	}

	result := struct {
		Summary    interface{} `json:"summary"`
		Validation interface{} `json:"validation,omitempty"`
	}{Summary: summary, Validation: report}

	return printResult(app, result, func() {
		fmt.Printf("run %s: processed %d, skipped %d, errored %d, no-data %d\n",
			summary.RunID, summary.Processed, summary.Skipped, summary.Errored, summary.NoData)
		fmt.Printf("citations: %d total, %d competitor, %d affiliate, %d neutral\n",
			summary.TotalCitations, summary.CompetitorCitations, summary.AffiliateCitations, summary.NeutralCitations)
		fmt.Printf("patents with competitor citations: %d\n", summary.PatentsWithCompetitorCitations)
		for _, share := range summary.TopCompetitors {
			fmt.Printf("  %-40s %d\n", share.Company, share.Citations)
		}
		if report != nil {
			fmt.Printf("validation: %d compared, %d matches, %d mismatches, %d missing\n",
				report.Compared, report.Matches, report.Mismatches, report.MissingRecords)
			for _, d := range report.Examples {
				fmt.Printf("  %s: got %d, want %d\n", d.PatentID, d.Got, d.Want)
			}
		}
	})
}
