package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/showwin/speedtest-go/speedtest"
)

type SpeedtestResult struct {
	ServerID      string        `json:"server_id"`
	ServerName    string        `json:"server_name"`
	ServerCountry string        `json:"server_country"`
	Latency       time.Duration `json:"latency"`
	DownloadSpeed float64       `json:"download_speed"` // Mbps
	UploadSpeed   float64       `json:"upload_speed"`   // Mbps
	DownloadMBps  float64       `json:"download_mbps"`  // MB/s
	UploadMBps    float64       `json:"upload_mbps"`    // MB/s
	Error         string        `json:"error,omitempty"`
}

// RunSpeedtest measures the client's internet connection against the nearest
// speedtest.net server, as a reference for the WebDAV numbers.
func RunSpeedtest(ctx context.Context, progress func(string)) (*SpeedtestResult, error) {
	if progress == nil {
		progress = func(string) {}
	}

	progress("Updating server list...")
	serverList, err := speedtest.FetchServerListContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch server list: %w", err)
	}
	if len(serverList) == 0 {
		return nil, errors.New("no speedtest servers found")
	}

	targets, err := serverList.FindServer([]int{})
	if err != nil {
		return nil, fmt.Errorf("failed to find best server: %w", err)
	}
	if len(targets) == 0 {
		return nil, errors.New("no target server found")
	}

	target := targets[0]
	progress(fmt.Sprintf("Benchmarking against: %s (%s) - %s", target.Name, target.Country, target.Sponsor))

	if err := target.PingTestContext(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping test failed: %w", err)
	}
	progress(fmt.Sprintf("Ping: %v", target.Latency))

	if err := target.DownloadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("download test failed: %w", err)
	}
	dlMBps := float64(target.DLSpeed) / 1e6
	progress(fmt.Sprintf("Download: %.2f Mbps (%.2f MB/s)", dlMBps*8, dlMBps))

	if err := target.UploadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("upload test failed: %w", err)
	}
	ulMBps := float64(target.ULSpeed) / 1e6
	progress(fmt.Sprintf("Upload: %.2f Mbps (%.2f MB/s)", ulMBps*8, ulMBps))

	return &SpeedtestResult{
		ServerID:      target.ID,
		ServerName:    fmt.Sprintf("%s (%s)", target.Sponsor, target.Name),
		ServerCountry: target.Country,
		Latency:       target.Latency,
		DownloadSpeed: dlMBps * 8,
		UploadSpeed:   ulMBps * 8,
		DownloadMBps:  dlMBps,
		UploadMBps:    ulMBps,
	}, nil
}
