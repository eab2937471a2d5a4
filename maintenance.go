package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nextcloud-stress/internal/config"
	"nextcloud-stress/internal/workflow"
)

func newEmptyTrashCmd() *cobra.Command {
	var (
		folder     string
		maxDeletes int
	)

	cmd := &cobra.Command{
		Use:   "empty-trash",
		Short: "Delete the trash bin contents on every node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := resolvedCfg
			if cmd.Flags().Changed("folder") {
				cfg.Trash.Folder = folder
			}
			if cmd.Flags().Changed("max-deletes") {
				cfg.Trash.MaxDeletes = maxDeletes
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			deps, closeDeps, err := newDeps(ctx, buildLogger())
			if err != nil {
				return err
			}
			defer closeDeps()

			return printOutcomes(workflow.EmptyTrash(ctx, deps))
		},
	}

	cmd.Flags().StringVar(&folder, "folder", config.DefaultTrashFolder, "trash bin folder to empty")
	cmd.Flags().IntVar(&maxDeletes, "max-deletes", config.DefaultTrashMaxDeletes, "concurrent deletes per wave")

	return cmd
}

func newCleanCmd() *cobra.Command {
	var (
		exclude    []string
		maxDeletes int
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete everything in the test account on every node",
		Long: `Deletes every entry of the account's files root. Excluded folders are
kept but emptied. Requires --yes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("clean deletes the whole account contents; pass --yes to proceed")
			}

			cfg := resolvedCfg
			if cmd.Flags().Changed("exclude") {
				cfg.Clean.Exclude = exclude
			}
			if cmd.Flags().Changed("max-deletes") {
				cfg.Clean.MaxDeletes = maxDeletes
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			deps, closeDeps, err := newDeps(ctx, buildLogger())
			if err != nil {
				return err
			}
			defer closeDeps()

			return printOutcomes(workflow.Clean(ctx, deps))
		},
	}

	cmd.Flags().StringSliceVar(&exclude, "exclude", config.DefaultCleanExcludes, "folders to keep (emptied instead)")
	cmd.Flags().IntVar(&maxDeletes, "max-deletes", config.DefaultCleanMaxDeletes, "concurrent deletes per wave")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}

func printOutcomes(outcomes []workflow.NodeOutcome) error {
	if flagJSON {
		type row struct {
			Node    string  `json:"node"`
			Deleted int     `json:"deleted"`
			Failed  int     `json:"failed"`
			Seconds float64 `json:"seconds"`
			Error   string  `json:"error,omitempty"`
		}
		rows := make([]row, 0, len(outcomes))
		for _, o := range outcomes {
			r := row{Node: o.Node, Deleted: o.Stats.Ops - o.Stats.Failed, Failed: o.Stats.Failed, Seconds: o.Stats.Elapsed.Seconds()}
			if o.Err != nil {
				r.Error = o.Err.Error()
			}
			rows = append(rows, r)
		}
		if err := json.NewEncoder(os.Stdout).Encode(rows); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			printOutcome(os.Stdout, o.Node, o.Stats, o.Err)
		}
	}

	for _, o := range outcomes {
		if o.Err != nil {
			return errRunFailures
		}
	}

	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status.php and the server version of every node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			deps, closeDeps, err := newDeps(ctx, buildLogger())
			if err != nil {
				return err
			}
			defer closeDeps()

			statuses := workflow.Status(ctx, deps)

			if flagJSON {
				if err := json.NewEncoder(os.Stdout).Encode(statuses); err != nil {
					return err
				}
			}

			failed := false
			for _, s := range statuses {
				if s.Err != nil {
					failed = true
				}
				if flagJSON {
					continue
				}

				switch {
				case s.Err != nil:
					fmt.Printf("%-16s%s %v\n", s.Node, color.RedString("DOWN"), s.Err)
				case s.Status.Maintenance:
					fmt.Printf("%-16s%s %s\n", s.Node, color.YellowString("MAINTENANCE"), s.Version)
				default:
					fmt.Printf("%-16s%s %s (%s)\n", s.Node, color.GreenString("UP"), s.Version, s.URL)
				}
			}

			if failed {
				return errRunFailures
			}

			return nil
		},
	}
}
