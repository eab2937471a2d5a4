package network

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureDNS(t *testing.T) {
	res := MeasureDNS(context.Background(), "localhost")
	if res.Error != "" {
		t.Logf("DNS localhost failed: %s", res.Error)
	} else {
		assert.GreaterOrEqual(t, res.ResolutionTime, 0.0)
		assert.NotEmpty(t, res.ResolvedIPs)
	}

	resInv := MeasureDNS(context.Background(), "invalid.host.local.test.example")
	assert.NotEmpty(t, resInv.Error)
}

func TestTCPTarget(t *testing.T) {
	for raw, want := range map[string]string{
		"https://cloud.example.com:8443/remote.php": "cloud.example.com:8443",
		"https://cloud.example.com":                 "cloud.example.com:443",
		"http://cloud.example.com":                  "cloud.example.com:80",
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, TCPTarget(u), raw)
	}
}

func TestMeasureDetailedTCPPing(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	stats, err := MeasureDetailedTCPPing(context.Background(), ln.Addr().String(), 3, time.Second, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.SuccessCount)
	assert.Zero(t, stats.PacketLoss)
	assert.Len(t, stats.Results, 3)
	assert.LessOrEqual(t, stats.MinMs, stats.AvgMs)
	assert.LessOrEqual(t, stats.AvgMs, stats.MaxMs)
	assert.GreaterOrEqual(t, stats.JitterMs, 0.0)
}

func TestMeasureDetailedTCPPingUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	stats, err := MeasureDetailedTCPPing(context.Background(), addr, 2, 200*time.Millisecond, 0)
	require.NoError(t, err)
	assert.Zero(t, stats.SuccessCount)
	assert.InDelta(t, 100.0, stats.PacketLoss, 1e-9)
}

func TestMeasureTLSHandshake(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	d, err := MeasureTLSHandshake(context.Background(), srv.URL, 5*time.Second, true)
	require.NoError(t, err)
	assert.Positive(t, d)

	_, err = MeasureTLSHandshake(context.Background(), srv.URL, 5*time.Second, false)
	assert.Error(t, err, "self-signed certificate is rejected")

	plain := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer plain.Close()
	_, err = MeasureTLSHandshake(context.Background(), plain.URL, 5*time.Second, false)
	assert.Error(t, err)
}

func TestDiagnoseLocalServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	var steps []string
	d, err := Diagnose(context.Background(), srv.URL, DiagnoseOptions{
		PingCount:   2,
		PingTimeout: time.Second,
		Insecure:    true,
		Progress:    func(s string) { steps = append(steps, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", d.Host)
	assert.Equal(t, 2, d.Ping.SuccessCount)
	assert.Empty(t, d.TLSError)
	assert.Positive(t, d.TLSHandshake)
	assert.Nil(t, d.Traceroute)
	assert.Nil(t, d.Speedtest)
	assert.NotEmpty(t, steps)
}

func TestDiagnoseRejectsBadURL(t *testing.T) {
	_, err := Diagnose(context.Background(), "::not a url", DefaultDiagnoseOptions())
	assert.Error(t, err)
}

func TestHopString(t *testing.T) {
	assert.Equal(t, " 3: *", Hop{TTL: 3, Address: "*"}.String())
	assert.Equal(t, " 1: 10.0.0.1 (1.5ms)", Hop{TTL: 1, Address: "10.0.0.1", RTT: 1500 * time.Microsecond}.String())
}
