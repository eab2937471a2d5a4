// Package network measures the path between the client and a node.
package network

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"nextcloud-stress/internal/config"
)

// DiagnoseOptions selects what Diagnose measures.
type DiagnoseOptions struct {
	PingCount      int
	PingTimeout    time.Duration
	PingInterval   time.Duration
	TracerouteHops int // 0 skips the traceroute
	Speedtest      bool
	Insecure       bool
	Progress       func(string)
}

// DefaultDiagnoseOptions are the checks run before a stress run.
func DefaultDiagnoseOptions() DiagnoseOptions {
	return DiagnoseOptions{
		PingCount:      config.DefaultPingCount,
		PingTimeout:    config.DefaultPingTimeout,
		PingInterval:   config.PingDelayBetweenTests,
		TracerouteHops: config.DefaultTracerouteMaxHops,
	}
}

// Diagnosis is the network picture between this machine and one node.
type Diagnosis struct {
	URL             string
	Host            string
	TCPTarget       string
	DNS             DNSResult
	Ping            DetailedPingStats
	TLSHandshake    time.Duration
	TLSError        string
	Traceroute      []Hop
	TracerouteError string
	Extended        ExtendedNetworkInfo
	Local           LocalNetworkInfo
	Speedtest       *SpeedtestResult
}

// TCPTarget returns host:port for u, defaulting the port from the scheme.
func TCPTarget(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}

	return net.JoinHostPort(u.Hostname(), port)
}

// Diagnose runs the selected measurements against nodeURL. Individual
// measurement failures are recorded in the result; only an unusable URL or
// a cancelled ctx is returned as an error.
func Diagnose(ctx context.Context, nodeURL string, opts DiagnoseOptions) (*Diagnosis, error) {
	u, err := url.Parse(nodeURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid node URL %q", nodeURL)
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}

	d := &Diagnosis{URL: nodeURL, Host: u.Hostname(), TCPTarget: TCPTarget(u)}

	d.Local = GetLocalNetworkInfo()
	d.Extended = GetExtendedNetworkInfo(nodeURL)

	progress("Testing DNS resolution...")
	d.DNS = MeasureDNS(ctx, d.Host)

	progress(fmt.Sprintf("Pinging %s...", d.TCPTarget))
	d.Ping, err = MeasureDetailedTCPPing(ctx, d.TCPTarget, opts.PingCount, opts.PingTimeout, opts.PingInterval)
	if err != nil {
		return d, err
	}

	if u.Scheme == "https" {
		progress("Measuring TLS handshake...")
		d.TLSHandshake, err = MeasureTLSHandshake(ctx, nodeURL, config.DefaultHTTPTimeout, opts.Insecure)
		if err != nil {
			d.TLSError = err.Error()
		} else {
			d.Extended.TLSHandshakeMs = float64(d.TLSHandshake.Microseconds()) / 1000
		}
	}

	if opts.TracerouteHops > 0 {
		progress("Running traceroute (may require admin)...")
		d.Traceroute, err = RunTraceroute(ctx, d.Host, opts.TracerouteHops, time.Second)
		if err != nil {
			d.TracerouteError = err.Error()
		}
	}

	if opts.Speedtest {
		progress("Running reference speedtest (speedtest.net)...")
		d.Speedtest, err = RunSpeedtest(ctx, progress)
		if err != nil {
			d.Speedtest = &SpeedtestResult{Error: err.Error()}
		}
	}

	return d, ctx.Err()
}
