package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ErrTracerouteNotPermitted is returned when the raw ICMP socket cannot be
// opened, usually for lack of root.
var ErrTracerouteNotPermitted = errors.New("raw ICMP socket not permitted")

type Hop struct {
	TTL     int
	Address string
	RTT     time.Duration
}

func (h Hop) String() string {
	if h.Address == "*" {
		return fmt.Sprintf("%2d: *", h.TTL)
	}
	return fmt.Sprintf("%2d: %s (%v)", h.TTL, h.Address, h.RTT.Round(time.Microsecond))
}

// RunTraceroute sends ICMP echo requests with increasing TTL towards target
// until it answers or maxHops is reached. Requires root.
func RunTraceroute(ctx context.Context, target string, maxHops int, hopTimeout time.Duration) ([]Hop, error) {
	destAddr, err := net.DefaultResolver.LookupIPAddr(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("resolve failed: %w", err)
	}
	var dest *net.IPAddr
	for _, a := range destAddr {
		if a.IP.To4() != nil {
			dest = &net.IPAddr{IP: a.IP}
			break
		}
	}
	if dest == nil {
		return nil, fmt.Errorf("no IPv4 address for %s", target)
	}

	c, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTracerouteNotPermitted, err)
	}
	defer c.Close()

	p := ipv4.NewPacketConn(c)
	id := os.Getpid() & 0xffff
	rb := make([]byte, 1500)

	var hops []Hop
	for ttl := 1; ttl <= maxHops; ttl++ {
		if err := ctx.Err(); err != nil {
			return hops, err
		}

		if err := p.SetTTL(ttl); err != nil {
			return hops, fmt.Errorf("failed to set TTL: %w", err)
		}

		wm := icmp.Message{
			Type: ipv4.ICMPTypeEcho, Code: 0,
			Body: &icmp.Echo{
				ID: id, Seq: ttl,
				Data: []byte("drive-stress"),
			},
		}
		wb, err := wm.Marshal(nil)
		if err != nil {
			return hops, err
		}

		start := time.Now()
		if _, err := p.WriteTo(wb, nil, dest); err != nil {
			hops = append(hops, Hop{TTL: ttl, Address: "*"})
			continue
		}

		_ = c.SetReadDeadline(time.Now().Add(hopTimeout))
		n, peer, err := c.ReadFrom(rb)
		rtt := time.Since(start)
		if err != nil {
			hops = append(hops, Hop{TTL: ttl, Address: "*"})
			continue
		}

		rm, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), rb[:n])
		if err != nil {
			hops = append(hops, Hop{TTL: ttl, Address: "*"})
			continue
		}

		hopIP := peer.String()
		hops = append(hops, Hop{TTL: ttl, Address: hopIP, RTT: rtt})

		// TimeExceeded is expected for intermediate hops.
		if rm.Type == ipv4.ICMPTypeEchoReply || hopIP == dest.String() {
			break
		}
	}

	return hops, nil
}
