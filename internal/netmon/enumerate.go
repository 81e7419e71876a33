package netmon

import (
	"net"

	log "github.com/sirupsen/logrus"
)

// enumerateFunc produces one pass over the host's network interfaces.
// Swappable so tests can run the monitor against fabricated interface sets.
type enumerateFunc func() ([]NetworkInterface, error)

// enumerateInterfaces lists the host's non-loopback interfaces with their
// first bound IPv4 address, if any.
func enumerateInterfaces() ([]NetworkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			log.WithError(err).WithField("interface", iface.Name).Trace("Failed to list interface addresses")
			addrs = nil
		}

		entry, ok := fromNetInterface(iface.Name, iface.Flags, addrs)
		if !ok {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// fromNetInterface converts one OS interface record. Loopback interfaces are
// dropped here, at detection time, so no consumer ever sees them.
func fromNetInterface(name string, flags net.Flags, addrs []net.Addr) (NetworkInterface, bool) {
	if name == "lo" || flags&net.FlagLoopback != 0 {
		return NetworkInterface{}, false
	}

	entry := NetworkInterface{
		Name:     name,
		IsActive: flags&net.FlagUp != 0 && flags&net.FlagRunning != 0,
	}
	classify(&entry)

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		// To4() is non-nil only for addresses usable as IPv4.
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			entry.IPAddress = ip4.String()
			break
		}
	}
	return entry, true
}
