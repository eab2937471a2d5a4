package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nextcloud-stress/internal/config"
	"nextcloud-stress/internal/network"
	"nextcloud-stress/internal/report"
	"nextcloud-stress/internal/workflow"
)

// signalContext is cancelled on SIGINT or SIGTERM so waves stop submitting
// and local files are still removed.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newStressCmd() *cobra.Command {
	var (
		files      int
		maxUploads int
		maxDeletes int
		fileSize   string
		folder     string
		timeout    string
		reportPath string
		textPath   string
		diagnose   bool
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Upload and delete files in waves on every node",
		Long: `Generates --files random files per node, uploads them in waves of
--max-uploads concurrent requests, lists the remote folder and deletes its
contents in waves of --max-deletes. One result line is printed per node.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := resolvedCfg
			flags := cmd.Flags()

			if flags.Changed("files") {
				cfg.Stress.Files = files
			}
			if flags.Changed("max-uploads") {
				cfg.Stress.MaxUploads = maxUploads
			}
			if flags.Changed("max-deletes") {
				cfg.Stress.MaxDeletes = maxDeletes
			}
			if flags.Changed("folder") {
				cfg.Stress.Folder = folder
			}
			if flags.Changed("file-size") {
				n, err := config.ParseSize(fileSize)
				if err != nil {
					return fmt.Errorf("--file-size: %w", err)
				}
				cfg.Stress.FileSize = fileSize
				cfg.FileSize = n
			}
			if flags.Changed("wave-timeout") {
				d, err := time.ParseDuration(timeout)
				if err != nil {
					return fmt.Errorf("--wave-timeout: %w", err)
				}
				cfg.Stress.WaveTimeout = timeout
				cfg.WaveTimeout = d
			}
			if err := config.Validate(&cfg.Config); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			logger := buildLogger()
			deps, closeDeps, err := newDeps(ctx, logger)
			if err != nil {
				return err
			}
			defer closeDeps()

			if diagnose {
				opts := network.DefaultDiagnoseOptions()
				deps.Diagnose = &opts
			}

			rpt, runErr := workflow.RunStress(ctx, deps, workflow.LogReporter{Logger: logger, Path: reportPath})

			return finishRun(rpt, runErr, textPath)
		},
	}

	cmd.Flags().IntVar(&files, "files", config.DefaultStressFiles, "files per node")
	cmd.Flags().IntVar(&maxUploads, "max-uploads", config.DefaultMaxUploads, "concurrent uploads per wave")
	cmd.Flags().IntVar(&maxDeletes, "max-deletes", config.DefaultMaxDeletes, "concurrent deletes per wave")
	cmd.Flags().StringVar(&fileSize, "file-size", "100KiB", "size of each generated file")
	cmd.Flags().StringVar(&folder, "folder", config.DefaultStressFolder, "remote folder")
	cmd.Flags().StringVar(&timeout, "wave-timeout", config.DefaultWaveTimeout.String(), "bound on each wave's barrier, 0 waits forever")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the HTML report to this file")
	cmd.Flags().StringVar(&textPath, "results", "", "write the result lines to this file")
	cmd.Flags().BoolVar(&diagnose, "diagnose", false, "measure the network path to the first node before the run")

	return cmd
}

func newSizesCmd() *cobra.Command {
	var (
		files      int
		sizes      []string
		folder     string
		reportPath string
		textPath   string
	)

	cmd := &cobra.Command{
		Use:   "sizes",
		Short: "Time uploads of each configured file size on every node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := resolvedCfg
			flags := cmd.Flags()

			if flags.Changed("files") {
				cfg.Sizes.Files = files
			}
			if flags.Changed("folder") {
				cfg.Sizes.Folder = folder
			}
			if flags.Changed("sizes") {
				cfg.Sizes.FileSizes = sizes
				cfg.FileSizes = nil
				for _, s := range sizes {
					n, err := config.ParseSize(s)
					if err != nil {
						return fmt.Errorf("--sizes: %w", err)
					}
					cfg.FileSizes = append(cfg.FileSizes, n)
				}
			}
			if err := config.Validate(&cfg.Config); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			logger := buildLogger()
			deps, closeDeps, err := newDeps(ctx, logger)
			if err != nil {
				return err
			}
			defer closeDeps()

			rpt, runErr := workflow.RunSizes(ctx, deps, workflow.LogReporter{Logger: logger, Path: reportPath})

			return finishRun(rpt, runErr, textPath)
		},
	}

	cmd.Flags().IntVar(&files, "files", config.DefaultSizesFiles, "files per size")
	cmd.Flags().StringSliceVar(&sizes, "sizes", config.DefaultFileSizes, "file sizes to upload")
	cmd.Flags().StringVar(&folder, "folder", config.DefaultSizesFolder, "remote folder")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the HTML report to this file")
	cmd.Flags().StringVar(&textPath, "results", "", "write the result lines to this file")

	return cmd
}

// finishRun prints the run summary and maps failures to errRunFailures.
func finishRun(rpt report.ReportData, runErr error, textPath string) error {
	if textPath != "" {
		if err := os.WriteFile(textPath, report.GenerateText(rpt), 0o644); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rpt); err != nil {
			return err
		}
	} else {
		printRunSummary(os.Stdout, rpt)
	}

	if runErr != nil || rpt.TotalFailed() > 0 {
		return errRunFailures
	}

	return nil
}
