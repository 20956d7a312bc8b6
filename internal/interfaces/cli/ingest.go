package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipbench/ipsignal/internal/application/sector"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/database/postgres"
	"github.com/ipbench/ipsignal/internal/infrastructure/database/postgres/repositories"
)

type ingestOptions struct {
	WithDerived bool
}

func newIngestCmd() *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Mirror the portfolio snapshot into PostgreSQL",
		Long:  "Loads the portfolio snapshot into the relational store, running schema\nmigrations first. With --with-derived, cached sector assignments and\ncomposite scores are mirrored as well so the table is queryable with\nplain SQL.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.WithDerived, "with-derived", false, "also mirror cached sector assignments and scores")
	return cmd
}

func runIngest(cmd *cobra.Command, opts *ingestOptions) error {
	app := appFrom(cmd)
	ctx := cmd.Context()

	snap, err := patent.LoadSnapshot(app.cfg.Pipeline.SnapshotPath)
	if err != nil {
		return err
	}

	// Recompute missing remaining terms so the mirror never carries zeros
	// for patents the snapshot exporter skipped.
	now := time.Now().UTC()
	for i := range snap.Candidates {
		p := &snap.Candidates[i]
		if p.RemainingYears == 0 && !p.GrantDate.IsZero() {
			p.RemainingYears = p.RemainingYearsAt(now)
		}
	}

	dbURL := postgres.BuildDSN(app.cfg.Database)
	if err := postgres.RunMigrations(dbURL, "file://"+app.cfg.Database.MigrationPath); err != nil {
		return err
	}

	conn, err := postgres.NewConnection(ctx, app.cfg.Database, app.logger.Named("postgres"))
	if err != nil {
		return err
	}
	defer conn.Close()
	repo := repositories.NewPatentRepository(conn.Pool(), app.logger.Named("postgres"))

	patents := make([]*patent.Patent, len(snap.Candidates))
	for i := range snap.Candidates {
		patents[i] = &snap.Candidates[i]
	}
	written, err := repo.UpsertBatch(ctx, patents)
	if err != nil {
		return err
	}

	derived := 0
	if opts.WithDerived {
		derived, err = mirrorDerived(cmd, repo)
		if err != nil {
			return err
		}
	}

	counts, err := repo.CountBySector(ctx)
	if err != nil {
		return err
	}

	result := struct {
		Written int            `json:"written"`
		Derived int            `json:"derived"`
		Sectors map[string]int `json:"sectors"`
	}{Written: written, Derived: derived, Sectors: counts}

	return printResult(app, result, func() {
		fmt.Printf("mirrored %d patents", written)
		if opts.WithDerived {
			fmt.Printf(", %d with derived columns", derived)
		}
		fmt.Println()
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-30s %d\n", name, counts[name])
		}
	})
}

// mirrorDerived copies cached sector assignments and recomputed scores onto
// the mirrored rows.
func mirrorDerived(cmd *cobra.Command, repo repositories.PatentRepository) (int, error) {
	app := appFrom(cmd)
	ctx := cmd.Context()

	store, err := newStore(ctx, app)
	if err != nil {
		return 0, err
	}
	snap, err := patent.LoadSnapshot(app.cfg.Pipeline.SnapshotPath)
	if err != nil {
		return 0, err
	}
	ranked, _, _, err := scoreAndRank(ctx, app, store, snap, "", 0)
	if err != nil {
		return 0, err
	}

	derived := 0
	for i := range ranked {
		r := &ranked[i]

		var a sector.Assignment
		if err := store.Get(ctx, cache.KindSectors, r.PatentID, &a); err == nil {
			if err := repo.UpdateSector(ctx, r.PatentID, a.Sector, a.SuperSector, a.Provenance); err != nil {
				return derived, err
			}
		}
		if err := repo.UpdateScores(ctx, r.PatentID, r.ProfileScores, r.Unified); err != nil {
			return derived, err
		}
		derived++
	}
	return derived, nil
}
