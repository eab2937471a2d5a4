package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nextcloud-stress/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored runs, or the node results of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolvedCfg.History.Path
			if path == "" {
				return errors.New("no history database configured (history.path)")
			}

			store, err := history.Open(cmd.Context(), path, buildLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return printNodes(cmd, store, args[0])
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tKIND\tTARGET\tJOB\tSTARTED\tNODES\tFAILED")
			for _, r := range runs {
				failed := color.GreenString("%d", r.Failed)
				if r.Failed > 0 {
					failed = color.RedString("%d", r.Failed)
				}
				if !r.Completed {
					failed += color.YellowString(" (incomplete)")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.Kind, r.Environment, r.Job, humanize.Time(r.StartedAt), r.Nodes, failed)
			}

			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")

	return cmd
}

func printNodes(cmd *cobra.Command, store *history.Store, runID string) error {
	nodes, err := store.Nodes(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(nodes)
	}

	if len(nodes) == 0 {
		return fmt.Errorf("run %s has no node results", runID)
	}

	for _, n := range nodes {
		printLine(os.Stdout, n.Line, n.UploadFailed+n.DeleteFailed > 0)
	}

	return nil
}
