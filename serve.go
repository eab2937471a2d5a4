package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"nextcloud-stress/internal/report"
	"nextcloud-stress/internal/ui"
	"nextcloud-stress/internal/workflow"
)

func newServeCmd() *cobra.Command {
	var (
		port      int
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the progress UI and run stress tests from the browser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				resolvedCfg.UI.Port = port
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			logger := buildLogger()
			server := ui.NewServer(resolvedCfg.UI.Port, uiRunner(logger), logger)

			if !noBrowser {
				go func() {
					select {
					case <-server.ReadyChan:
						time.Sleep(500 * time.Millisecond)
						openBrowser(fmt.Sprintf("http://localhost:%d", resolvedCfg.UI.Port), logger)
					case <-ctx.Done():
					}
				}()
			}

			return server.Listen(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not open a browser")

	return cmd
}

// uiRunner runs the workflow a browser asked for. Runs share the resolved
// config; node selection comes from the request.
func uiRunner(logger *slog.Logger) ui.RunFunc {
	return func(ctx context.Context, req ui.RunRequest, r workflow.Reporter) {
		var (
			deps      workflow.Deps
			closeDeps func()
			err       error
		)
		if req.URL != "" {
			deps, closeDeps, err = adhocDeps(ctx, logger, req.URL, req.User, req.Pass)
		} else {
			deps, closeDeps, err = newDeps(ctx, logger)
		}
		if err != nil {
			r.Broadcast("Error: " + err.Error())
			r.SendResult(report.ReportData{Kind: req.Kind, Errors: []string{err.Error()}, Completed: true})
			return
		}
		defer closeDeps()

		if len(req.Nodes) > 0 && req.URL == "" {
			deps.Nodes = req.Nodes
		}

		if req.Kind == report.KindSizes {
			_, err = workflow.RunSizes(ctx, deps, r)
		} else {
			_, err = workflow.RunStress(ctx, deps, r)
		}
		if err != nil {
			r.Broadcast("Run finished with errors: " + err.Error())
			return
		}
		r.Broadcast("Run finished.")
	}
}
