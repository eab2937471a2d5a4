package network

import (
	"net"
	"os"
	"runtime"
	"strings"
)

type InterfaceInfo struct {
	Name      string
	Type      string // "Ethernet", "WiFi", "Unknown"
	IPAddress string
	LinkSpeed string // e.g., "1000 Mbps"
	IsUp      bool
}

type LocalNetworkInfo struct {
	Interfaces     []InterfaceInfo
	PrimaryIF      string
	ConnectionType string // "Ethernet", "WiFi", "Unknown"
}

// GetLocalNetworkInfo lists the up, non-loopback interfaces that carry an
// IPv4 address. The first one is taken as primary.
func GetLocalNetworkInfo() LocalNetworkInfo {
	info := LocalNetworkInfo{}

	ifaces, err := net.Interfaces()
	if err != nil {
		return info
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		var ipAddr string
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				ipAddr = ipnet.IP.String()
				break
			}
		}
		if ipAddr == "" {
			continue
		}

		ifInfo := InterfaceInfo{
			Name:      iface.Name,
			IPAddress: ipAddr,
			IsUp:      true,
			Type:      detectInterfaceType(iface.Name),
			LinkSpeed: linkSpeed(iface.Name),
		}
		info.Interfaces = append(info.Interfaces, ifInfo)

		if info.PrimaryIF == "" {
			info.PrimaryIF = iface.Name
			info.ConnectionType = ifInfo.Type
		}
	}

	return info
}

func detectInterfaceType(name string) string {
	n := strings.ToLower(name)

	switch {
	case strings.HasPrefix(n, "wlan"), strings.HasPrefix(n, "wlp"),
		strings.HasPrefix(n, "wi-fi"), strings.HasPrefix(n, "wifi"),
		strings.Contains(n, "wireless"):
		return "WiFi"
	case strings.HasPrefix(n, "eth"), strings.HasPrefix(n, "enp"),
		strings.HasPrefix(n, "eno"), strings.HasPrefix(n, "ens"):
		return "Ethernet"
	case n == "en0":
		// en0 is usually WiFi on Mac, en1+ are ethernet
		return "WiFi"
	case strings.HasPrefix(n, "en"):
		return "Ethernet"
	}

	return "Unknown"
}

// linkSpeed reads the negotiated speed from sysfs. Other platforms report
// Unknown.
func linkSpeed(ifaceName string) string {
	if runtime.GOOS != "linux" {
		return "Unknown"
	}

	b, err := os.ReadFile("/sys/class/net/" + ifaceName + "/speed")
	if err != nil {
		return "Unknown"
	}

	speed := strings.TrimSpace(string(b))
	if speed == "" || speed == "-1" {
		return "Unknown"
	}

	return speed + " Mbps"
}
