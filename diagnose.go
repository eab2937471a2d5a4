package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nextcloud-stress/internal/config"
	"nextcloud-stress/internal/network"
	"nextcloud-stress/internal/system"
	"nextcloud-stress/internal/target"
)

func newDiagnoseCmd() *cobra.Command {
	var (
		count     int
		hops      int
		speedtest bool
	)

	cmd := &cobra.Command{
		Use:   "diagnose [url]",
		Short: "Measure DNS, TCP, TLS and the route to each node or to url",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			logger := buildLogger()

			if sys, err := system.GetSystemInfo(ctx, config.CPUMonitorInterval); err == nil {
				logger.Info("client", "system", sys.Summary(), "load1", sys.Load1)
			}

			urls := args
			if len(urls) == 0 {
				catalog, err := target.LoadCatalog(resolvedCfg.Target.Catalog)
				if err != nil {
					return err
				}
				tt, err := target.New(catalog, target.Options{Environment: resolvedCfg.Target.Environment, Nodes: resolvedCfg.Target.Nodes})
				if err != nil {
					return err
				}
				for _, n := range tt.FullNodes {
					urls = append(urls, tt.NodeURL(n))
				}
			}

			opts := network.DefaultDiagnoseOptions()
			opts.PingCount = count
			opts.TracerouteHops = hops
			opts.Speedtest = speedtest
			opts.Insecure = resolvedCfg.WebDAV.InsecureSkipVerify
			opts.Progress = func(msg string) { logger.Info(msg) }

			var diags []*network.Diagnosis
			for _, u := range urls {
				d, err := network.Diagnose(ctx, u, opts)
				if err != nil {
					logger.Warn("diagnosis incomplete", "url", u, "error", err)
				}
				if d != nil {
					diags = append(diags, d)
				}
				if ctx.Err() != nil {
					break
				}
			}

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(diags)
			}

			for _, d := range diags {
				printDiagnosis(d)
			}

			return ctx.Err()
		},
	}

	cmd.Flags().IntVar(&count, "count", config.DefaultPingCount, "TCP connect probes")
	cmd.Flags().IntVar(&hops, "hops", config.DefaultTracerouteMaxHops, "traceroute hops, 0 skips the traceroute")
	cmd.Flags().BoolVar(&speedtest, "speedtest", false, "also run a speedtest.net reference measurement")

	return cmd
}

func printDiagnosis(d *network.Diagnosis) {
	color.New(color.FgHiBlue, color.Bold).Printf("%s (%s)\n", d.URL, d.TCPTarget)

	if d.DNS.Error != "" {
		fmt.Printf("  DNS:   %s\n", color.RedString(d.DNS.Error))
	} else {
		fmt.Printf("  DNS:   %.2f ms %v\n", d.DNS.ResolutionTime, d.DNS.ResolvedIPs)
	}

	loss := color.GreenString("%.1f%%", d.Ping.PacketLoss)
	if d.Ping.PacketLoss > 0 {
		loss = color.RedString("%.1f%%", d.Ping.PacketLoss)
	}
	fmt.Printf("  TCP:   avg %.2f ms, min %.2f, max %.2f, jitter %.2f, loss %s\n", d.Ping.AvgMs, d.Ping.MinMs, d.Ping.MaxMs, d.Ping.JitterMs, loss)

	switch {
	case d.TLSError != "":
		fmt.Printf("  TLS:   %s\n", color.RedString(d.TLSError))
	case d.TLSHandshake > 0:
		fmt.Printf("  TLS:   %v\n", d.TLSHandshake)
	}

	fmt.Printf("  Local: %s %s", d.Local.ConnectionType, d.Local.PrimaryIF)
	if d.Extended.VPNDetected {
		fmt.Printf(" via VPN %s", d.Extended.VPNType)
	}
	if d.Extended.ProxyDetected {
		fmt.Printf(" via proxy")
	}
	fmt.Println()

	if d.TracerouteError != "" {
		fmt.Printf("  Route: %s\n", color.YellowString(d.TracerouteError))
	}
	for _, h := range d.Traceroute {
		fmt.Printf("  %s\n", h)
	}

	if s := d.Speedtest; s != nil {
		if s.Error != "" {
			fmt.Printf("  Speedtest: %s\n", color.YellowString(s.Error))
		} else {
			fmt.Printf("  Speedtest: %.2f Mbps down / %.2f Mbps up\n", s.DownloadSpeed, s.UploadSpeed)
		}
	}
}
