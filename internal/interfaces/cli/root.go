// Package cli wires the workbench batch jobs into the ipsignal command
// tree. Each subcommand builds only the dependencies it needs; nothing is
// shared between runs except the loaded configuration and logger.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type rootOptions struct {
	ConfigPath string
	LogLevel   string
	Output     string
}

// appContext carries the initialized configuration and logger through the
// command tree.
type appContext struct {
	cfg    *config.Config
	logger logging.Logger
	output string
}

type appContextKey struct{}

// Execute runs the ipsignal CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the root command with persistent flags and all
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "ipsignal",
		Short:   "Patent portfolio analytics workbench",
		Long:    "ipsignal runs the portfolio analytics pipeline: fetching forward\ncitations, classifying them against a competitor taxonomy, assigning\ntechnology sectors, and ranking patents by composite score.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initApp(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.Output, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(
		newFetchCmd(),
		newClassifyCmd(),
		newSectorCmd(),
		newScoreCmd(),
		newExportCmd(),
		newIngestCmd(),
	)
	return cmd
}

// initApp loads configuration and builds the logger. Any configuration
// error aborts before a subcommand runs.
func initApp(cmd *cobra.Command, opts *rootOptions) error {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("invalid --output %q, expected text|json", opts.Output)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	app := &appContext{cfg: cfg, logger: logger.Named("ipsignal"), output: opts.Output}
	cmd.SetContext(context.WithValue(cmd.Context(), appContextKey{}, app))
	return nil
}

func appFrom(cmd *cobra.Command) *appContext {
	return cmd.Context().Value(appContextKey{}).(*appContext)
}

// newStore builds the configured cache backend.
func newStore(ctx context.Context, app *appContext) (cache.Store, error) {
	switch app.cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:         app.cfg.Redis.Addr,
			Password:     app.cfg.Redis.Password,
			DB:           app.cfg.Redis.DB,
			KeyPrefix:    app.cfg.Redis.KeyPrefix,
			DialTimeout:  app.cfg.Redis.DialTimeout,
			ReadTimeout:  app.cfg.Redis.ReadTimeout,
			WriteTimeout: app.cfg.Redis.WriteTimeout,
		})
	default:
		return cache.NewFilesystemStore(app.cfg.Cache.Dir)
	}
}

// printResult renders a command result: JSON when requested, otherwise the
// supplied text renderer.
func printResult(app *appContext, v interface{}, text func()) error {
	if app.output == "json" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}
	text()
	return nil
}
