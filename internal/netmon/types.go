package netmon

import "strings"

// NetworkInterface is a point-in-time observation of one OS-level network
// interface. The classification flags are derived from the interface name
// and are informational only; change detection never looks at them.
type NetworkInterface struct {
	Name       string `json:"name"`
	IPAddress  string `json:"ipAddress"`
	IsActive   bool   `json:"isActive"`
	IsEthernet bool   `json:"isEthernet"`
	IsWireless bool   `json:"isWireless"`
	IsModem    bool   `json:"isModem"`
}

// ChangeCallback receives the new snapshot every time the usable address set
// changes.
type ChangeCallback func(interfaces []NetworkInterface)

// Common interface naming conventions. "en" also covers macOS ethernet/wifi
// names, which is close enough for advisory flags.
var (
	ethernetPrefixes = []string{"eth", "eno", "enp", "en"}
	wirelessPrefixes = []string{"wlan", "wifi", "wl"}
	modemPrefixes    = []string{"ppp", "tun", "tap"}
)

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// classify fills in the advisory interface type flags from the name.
func classify(ifc *NetworkInterface) {
	ifc.IsEthernet = hasAnyPrefix(ifc.Name, ethernetPrefixes)
	ifc.IsWireless = hasAnyPrefix(ifc.Name, wirelessPrefixes)
	ifc.IsModem = hasAnyPrefix(ifc.Name, modemPrefixes)
}

// RelevantIPs returns the addresses usable for outbound traffic: addresses of
// active interfaces with a non-empty, non-loopback IPv4 address. Order follows
// the snapshot order.
func RelevantIPs(interfaces []NetworkInterface) []string {
	ips := make([]string, 0, len(interfaces))
	for _, ifc := range interfaces {
		if ifc.Name == "lo" || ifc.IPAddress == "" || ifc.IPAddress == "127.0.0.1" {
			continue
		}
		if !ifc.IsActive {
			continue
		}
		ips = append(ips, ifc.IPAddress)
	}
	return ips
}
