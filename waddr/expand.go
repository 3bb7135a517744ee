package waddr

import (
	"fmt"
	"net"
	"net/netip"
	"slices"
)

// Expand resolves a wildcard IP into the concrete addresses
// of the machine's network interfaces, preserving the port.
// A concrete IP expands to itself.
//
// The port is carried through unchanged;
// a listener substitutes the concrete bound port
// before expanding the IP.
//
// Matching the address family of the wildcard,
// every up interface contributes its unicast addresses,
// loopback included.
// IPv6 link-local addresses are omitted:
// they need a zone to be dialable
// and the text form carries none.
func (a Addr) Expand() ([]Addr, error) {
	if !a.IP.IsUnspecified() {
		return []Addr{a}, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate network interfaces: %w", err)
	}

	var out []Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf(
				"failed to read addresses of interface %s: %w", iface.Name, err,
			)
		}

		for _, ifaceAddr := range addrs {
			ipNet, ok := ifaceAddr.(*net.IPNet)
			if !ok {
				continue
			}

			ip, ok := netip.AddrFromSlice(ipNet.IP)
			if !ok {
				continue
			}
			ip = ip.Unmap()

			if ip.Is4() != a.IP.Is4() {
				continue
			}
			if ip.IsUnspecified() || ip.IsMulticast() {
				continue
			}
			if ip.Is6() && ip.IsLinkLocalUnicast() {
				continue
			}

			out = append(out, New(ip, a.Port))
		}
	}

	slices.SortFunc(out, func(x, y Addr) int {
		return x.IP.Compare(y.IP)
	})
	return slices.Compact(out), nil
}
