package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ipbench/ipsignal/internal/application/sector"
	"github.com/ipbench/ipsignal/internal/domain/patent"
)

type sectorOptions struct {
	Breakout string
}

func newSectorCmd() *cobra.Command {
	opts := &sectorOptions{}

	cmd := &cobra.Command{
		Use:   "sector",
		Short: "Assign technology sectors",
		Long:  "Assigns every snapshot patent to a technology sector via the priority\nchain (term assignments, CPC prefix rules, CPC class table, general).\nWith --breakout, re-applies the prefix rules inside one parent sector to\nsplit it into sub-sectors.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSector(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Breakout, "breakout", "", "parent sector to split into sub-sectors after assignment")
	return cmd
}

func runSector(cmd *cobra.Command, opts *sectorOptions) error {
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
	assigner, err := sector.NewAssigner(app.cfg.Sector, app.logger.Named("sector"))
	if err != nil {
		return err
	}

	counts, err := assigner.Run(ctx, store, snap)
	if err != nil {
		return err
	}

	reassigned := 0
	if opts.Breakout != "" {
		reassigned, err = assigner.Breakout(ctx, store, snap, opts.Breakout, app.cfg.Sector.Patterns)
		if err != nil {
			return err
		}
	}

	result := struct {
		Counts     map[string]int `json:"counts"`
		Breakout   string         `json:"breakout,omitempty"`
		Reassigned int            `json:"reassigned,omitempty"`
	}{Counts: counts, Breakout: opts.Breakout, Reassigned: reassigned}

	return printResult(app, result, func() {
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-30s %d\n", name, counts[name])
		}
		if opts.Breakout != "" {
			fmt.Printf("breakout of %q reassigned %d patents\n", opts.Breakout, reassigned)
		}
	})
}
