package network

import (
	"context"
	"net"
	"sort"
	"time"
)

type PingResult struct {
	Seq      int
	TimeMs   float64
	Success  bool
	ErrorMsg string
}

type DetailedPingStats struct {
	Host         string
	Count        int
	Results      []PingResult
	MinMs        float64
	MaxMs        float64
	AvgMs        float64
	JitterMs     float64 // mean absolute deviation from AvgMs
	SuccessCount int
	PacketLoss   float64
}

// MeasureDetailedTCPPing performs count TCP connects to host (host:port),
// pausing interval between attempts. It needs no privileges.
func MeasureDetailedTCPPing(ctx context.Context, host string, count int, timeout, interval time.Duration) (DetailedPingStats, error) {
	stats := DetailedPingStats{
		Host:  host,
		Count: count,
	}

	dialer := &net.Dialer{Timeout: timeout}
	var validTimes []float64

	for i := 1; i <= count; i++ {
		if i > 1 && interval > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(interval):
			}
		}

		start := time.Now()
		conn, err := dialer.DialContext(ctx, "tcp", host)
		duration := time.Since(start).Seconds() * 1000 // ms

		res := PingResult{Seq: i}
		if err != nil {
			res.ErrorMsg = err.Error()
		} else {
			conn.Close()
			res.Success = true
			res.TimeMs = duration
			stats.SuccessCount++
			validTimes = append(validTimes, duration)
		}
		stats.Results = append(stats.Results, res)

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	if len(validTimes) > 0 {
		var total float64
		for _, v := range validTimes {
			total += v
		}
		stats.AvgMs = total / float64(len(validTimes))

		var dev float64
		for _, v := range validTimes {
			d := v - stats.AvgMs
			if d < 0 {
				d = -d
			}
			dev += d
		}
		stats.JitterMs = dev / float64(len(validTimes))

		sort.Float64s(validTimes)
		stats.MinMs = validTimes[0]
		stats.MaxMs = validTimes[len(validTimes)-1]
	}

	if count > 0 {
		stats.PacketLoss = (float64(count-stats.SuccessCount) / float64(count)) * 100
	}

	return stats, nil
}

type DNSResult struct {
	Host           string
	ResolutionTime float64 // ms
	ResolvedIPs    []string
	Error          string
}

func MeasureDNS(ctx context.Context, host string) DNSResult {
	start := time.Now()
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	duration := time.Since(start).Seconds() * 1000

	res := DNSResult{
		Host:           host,
		ResolutionTime: duration,
	}

	if err != nil {
		res.Error = err.Error()
	} else {
		for _, a := range addrs {
			res.ResolvedIPs = append(res.ResolvedIPs, a.IP.String())
		}
	}
	return res
}
