package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"nextcloud-stress/internal/report"
	"nextcloud-stress/internal/stress"
)

func printRunSummary(w io.Writer, rpt report.ReportData) {
	header := color.New(color.FgHiBlue, color.Bold)
	header.Fprintf(w, "%s run %s (%s/%s)\n", rpt.Kind, rpt.RunID, rpt.Environment, rpt.JobName)

	for _, n := range rpt.Nodes {
		printLine(w, n.Line, n.Failed())
		for _, e := range n.Errors {
			fmt.Fprintf(w, "  %s %s\n", color.RedString("-"), e)
		}
	}

	if len(rpt.SizeRows) > 0 {
		header.Fprintln(w, stress.SizesHeader(rpt.Settings.Sizes))
		for _, r := range rpt.SizeRows {
			printLine(w, r.Line, len(r.Errors) > 0)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s %s\n", color.RedString("-"), e)
			}
		}
	}

	for _, e := range rpt.Errors {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("warning:"), e)
	}

	if failed := rpt.TotalFailed(); failed > 0 {
		color.New(color.FgRed, color.Bold).Fprintf(w, "%d operation(s) failed\n", failed)
	} else if !rpt.Completed {
		color.New(color.FgYellow, color.Bold).Fprintln(w, "run did not complete")
	} else {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "all operations succeeded")
	}
}

func printLine(w io.Writer, line string, failed bool) {
	if failed {
		fmt.Fprintln(w, color.RedString("%s", line))
		return
	}
	fmt.Fprintln(w, color.GreenString("%s", line))
}

func printOutcome(w io.Writer, node string, stats stress.PhaseStats, err error) {
	if err != nil {
		fmt.Fprintf(w, "%-16s%s %v\n", node, color.RedString("FAILED"), err)
		return
	}
	fmt.Fprintf(w, "%-16s%s %d deleted in %.1fs (%d waves)\n", node, color.GreenString("OK"), stats.Ops, stats.Elapsed.Seconds(), stats.Waves)
}
