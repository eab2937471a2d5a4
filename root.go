package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"nextcloud-stress/internal/config"
	"nextcloud-stress/internal/history"
	"nextcloud-stress/internal/publish"
	"nextcloud-stress/internal/target"
	"nextcloud-stress/internal/workflow"
)

// version is set at build time via ldflags.
var version = "dev"

// errRunFailures makes the process exit non-zero after a run whose summary
// has already been printed.
var errRunFailures = errors.New("run reported failures")

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagTarget      string
	flagNodes       []string
	flagJSON        bool
	flagVerbose     bool
	flagQuiet       bool
	flagAppPassword bool
)

// resolvedCfg and envOverrides are loaded by PersistentPreRunE.
var (
	resolvedCfg  *config.Resolved
	envOverrides config.EnvOverrides
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "drive-stress",
		Short:         "WebDAV stress harness for Nextcloud Drive nodes",
		Long:          "Uploads and deletes files in bounded concurrent waves against each node of a Drive deployment and reports duration and throughput per phase.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagTarget, "target", "", "environment under test (test or prod)")
	cmd.PersistentFlags().StringSliceVar(&flagNodes, "nodes", nil, "restrict the run to these nodes")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().BoolVar(&flagAppPassword, "app-password", false, "log in with the node's app password")

	cmd.AddCommand(newStressCmd())
	cmd.AddCommand(newSizesCmd())
	cmd.AddCommand(newEmptyTrashCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDiagnoseCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain.
func loadConfig() error {
	envOverrides = config.ReadEnvOverrides()

	resolved, err := config.Resolve(envOverrides, config.CLIOverrides{
		ConfigPath:  flagConfigPath,
		Environment: flagTarget,
		Nodes:       flagNodes,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates the process logger. The config-file level is the
// baseline; --verbose and --quiet override it.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "text"

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		format = resolvedCfg.Logging.Format
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	if flagJSON || format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	// charmbracelet levels share slog's numeric values.
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.Level(level),
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})

	return slog.New(handler)
}

// newDeps wires the catalog, credentials, history and publisher for a run.
// The returned func closes what was opened.
func newDeps(ctx context.Context, logger *slog.Logger) (workflow.Deps, func(), error) {
	cfg := resolvedCfg

	catalog, err := target.LoadCatalog(cfg.Target.Catalog)
	if err != nil {
		return workflow.Deps{}, func() {}, err
	}

	tt, err := target.New(catalog, target.Options{
		Environment: cfg.Target.Environment,
		Nodes:       cfg.Target.Nodes,
		Customers:   envOverrides.Nodes,
		Browsers:    envOverrides.Browsers,
	})
	if err != nil {
		return workflow.Deps{}, func() {}, err
	}
	if len(tt.Ignored) > 0 {
		logger.Warn("ignoring customers that are not catalog nodes", "customers", tt.Ignored)
	}

	return withStores(ctx, workflow.Deps{
		Config:         cfg,
		Target:         tt,
		Creds:          target.DefaultSource(),
		Logger:         logger,
		UseAppPassword: flagAppPassword,
	})
}

// adhocDeps targets a single server outside the catalog.
func adhocDeps(ctx context.Context, logger *slog.Logger, url, user, pass string) (workflow.Deps, func(), error) {
	return withStores(ctx, workflow.Deps{
		Config:  resolvedCfg,
		Target:  &target.Target{Environment: resolvedCfg.Target.Environment},
		Creds:   target.StaticSource{User: user, Password: pass},
		Logger:  logger,
		Nodes:   []string{"adhoc"},
		NodeURL: func(string) string { return url },
	})
}

// withStores opens the history database and the publisher when configured.
func withStores(ctx context.Context, deps workflow.Deps) (workflow.Deps, func(), error) {
	cfg := deps.Config
	logger := deps.Logger

	if cfg.History.Path != "" {
		store, err := history.Open(ctx, cfg.History.Path, logger)
		if err != nil {
			return workflow.Deps{}, func() {}, err
		}
		deps.History = store
	}

	closeDeps := func() {
		if deps.History != nil {
			if err := deps.History.Close(); err != nil {
				logger.Warn("closing history", "error", err)
			}
		}
	}

	if cfg.Publish.Bucket != "" {
		pub, err := publish.New(ctx, publish.Options{
			Bucket:          cfg.Publish.Bucket,
			Prefix:          cfg.Publish.Prefix,
			Region:          cfg.Publish.Region,
			Endpoint:        cfg.Publish.Endpoint,
			AccessKeyID:     cfg.Publish.AccessKeyID,
			SecretAccessKey: cfg.Publish.SecretAccessKey,
		}, logger)
		if err != nil {
			closeDeps()
			return workflow.Deps{}, func() {}, err
		}
		deps.Publisher = pub
	}

	return deps, closeDeps, nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
