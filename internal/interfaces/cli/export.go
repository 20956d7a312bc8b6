package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipbench/ipsignal/internal/application/ranking"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/database/postgres"
	"github.com/ipbench/ipsignal/internal/infrastructure/database/postgres/repositories"
	"github.com/ipbench/ipsignal/internal/infrastructure/storage/minio"
)

type exportOptions struct {
	Top      int
	TierSize int
	Format   string
	Upload   bool
	FromDB   bool
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write ranked CSV/JSON reports",
		Long:  "Scores and ranks the portfolio, then writes CSV and/or JSON reports to\nthe export directory. With --upload and object storage configured, the\nreports are also archived under the run ID.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Top, "top", 0, "export only the leading N patents (0 = all)")
	cmd.Flags().IntVar(&opts.TierSize, "tier-size", 50, "patents per tier")
	cmd.Flags().StringVar(&opts.Format, "format", "both", "report format (csv, json, both)")
	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "archive the reports to object storage")
	cmd.Flags().BoolVar(&opts.FromDB, "from-db", false, "load the portfolio from the relational store instead of the snapshot file")
	return cmd
}

func runExport(cmd *cobra.Command, opts *exportOptions) error {
	app := appFrom(cmd)
	ctx := cmd.Context()

	if opts.Format != "csv" && opts.Format != "json" && opts.Format != "both" {
		return fmt.Errorf("invalid --format %q, expected csv|json|both", opts.Format)
	}

	store, err := newStore(ctx, app)
	if err != nil {
		return err
	}
	snap, err := loadPortfolio(ctx, app, opts.FromDB)
	if err != nil {
		return err
	}
	ranked, scorer, coverage, err := scoreAndRank(ctx, app, store, snap, "", opts.TierSize)
	if err != nil {
		return err
	}
	ranked = ranking.TopN(ranked, opts.Top)

	runID := latestRunID(ctx, store)
	signalNames := make([]string, 0, len(app.cfg.Scoring.Normalizers))
	for name := range app.cfg.Scoring.Normalizers {
		signalNames = append(signalNames, name)
	}
	exporter := ranking.NewExporter(app.cfg.Export.Dir, scorer.ProfileNames(), signalNames, app.logger.Named("export"))

	var paths []string
	if opts.Format == "csv" || opts.Format == "both" {
		path, err := exporter.WriteCSV(ranked, "rankings.csv")
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}
	if opts.Format == "json" || opts.Format == "both" {
		report := &ranking.Report{
			RunID:       runID,
			GeneratedAt: time.Now().UTC(),
			Profiles:    scorer.ProfileNames(),
			Coverage:    coverage,
			Patents:     ranked,
		}
		path, err := exporter.WriteJSON(report, "rankings.json")
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}

	var uploaded []string
	if opts.Upload {
		if !app.cfg.MinIO.Enabled {
			return fmt.Errorf("--upload requires object storage to be configured")
		}
		uploader, err := minio.NewUploader(ctx, app.cfg.MinIO, app.logger.Named("minio"))
		if err != nil {
			return err
		}
		for _, path := range paths {
			key, err := uploader.UploadReport(ctx, runID, path)
			if err != nil {
				return err
			}
			uploaded = append(uploaded, key)
		}
	}

	result := struct {
		RunID    string   `json:"run_id"`
		Patents  int      `json:"patents"`
		Files    []string `json:"files"`
		Uploaded []string `json:"uploaded,omitempty"`
	}{RunID: runID, Patents: len(ranked), Files: paths, Uploaded: uploaded}

	return printResult(app, result, func() {
		fmt.Printf("exported %d patents (run %s)\n", len(ranked), runID)
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
		for _, k := range uploaded {
			fmt.Printf("  uploaded: %s\n", k)
		}
	})
}

// loadPortfolio reads the patent list from the snapshot file or, with
// fromDB, from the relational mirror.
func loadPortfolio(ctx context.Context, app *appContext, fromDB bool) (*patent.Snapshot, error) {
	if !fromDB {
		return patent.LoadSnapshot(app.cfg.Pipeline.SnapshotPath)
	}

	conn, err := postgres.NewConnection(ctx, app.cfg.Database, app.logger.Named("postgres"))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	repo := repositories.NewPatentRepository(conn.Pool(), app.logger.Named("postgres"))
	patents, err := repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	snap := &patent.Snapshot{GeneratedAt: time.Now().UTC()}
	for _, p := range patents {
		snap.Candidates = append(snap.Candidates, *p)
	}
	return snap, nil
}

// latestRunID resolves the most recent classification run through the
// manifest; an export before any run falls back to "adhoc".
func latestRunID(ctx context.Context, store cache.Store) string {
	var manifest cache.Manifest
	if err := store.Get(ctx, cache.KindRuns, cache.ManifestKey, &manifest); err == nil && manifest.LatestRunID != "" {
		return manifest.LatestRunID
	}
	return "adhoc"
}
