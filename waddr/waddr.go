// Package waddr provides the layered text address format
// for QUIC transport endpoints:
//
//	/ip4/192.0.2.7/udp/9000/quic-v1
//	/ip6/2001:db8::1/udp/9000/quic-v1
//
// An [Addr] is a value type and is comparable with ==.
package waddr

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

const quicMarker = "quic-v1"

// Addr is one QUIC endpoint address.
//
// The zero value is invalid.
// Addresses are kept normalized:
// an IPv4-mapped IPv6 address collapses to plain IPv4,
// and IPv6 zones are dropped.
type Addr struct {
	IP   netip.Addr
	Port uint16
}

var _ net.Addr = Addr{}

// New builds a normalized address from an IP and port.
func New(ip netip.Addr, port uint16) Addr {
	return Addr{IP: ip.Unmap().WithZone(""), Port: port}
}

// FromAddrPort converts a [netip.AddrPort].
func FromAddrPort(ap netip.AddrPort) Addr {
	return New(ap.Addr(), ap.Port())
}

// FromNetAddr converts the address reported by a UDP socket.
// Address types other than [*net.UDPAddr] are rejected.
func FromNetAddr(addr net.Addr) (Addr, error) {
	ua, ok := addr.(*net.UDPAddr)
	if !ok {
		return Addr{}, fmt.Errorf(
			"cannot convert %T address %q to a QUIC endpoint address",
			addr, addr,
		)
	}

	return FromAddrPort(ua.AddrPort()), nil
}

// Parse parses the layered text form.
// It accepts exactly five segments:
// an ip4 or ip6 family tag with a matching literal IP,
// the udp marker with a decimal port,
// and the trailing quic-v1 marker.
// Anything else, including a trailing slash or an IPv6 zone,
// is rejected.
func Parse(s string) (Addr, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 6 || parts[0] != "" {
		return Addr{}, fmt.Errorf(
			"address %q does not match /ip4|ip6/<ip>/udp/<port>/%s",
			s, quicMarker,
		)
	}

	ip, err := netip.ParseAddr(parts[2])
	if err != nil {
		return Addr{}, fmt.Errorf("address %q has invalid IP: %w", s, err)
	}
	if ip.Zone() != "" {
		return Addr{}, fmt.Errorf("address %q carries an IPv6 zone", s)
	}

	switch parts[1] {
	case "ip4":
		if !ip.Is4() {
			return Addr{}, fmt.Errorf(
				"address %q declares ip4 but %q is not IPv4", s, parts[2],
			)
		}
	case "ip6":
		if !ip.Is6() {
			return Addr{}, fmt.Errorf(
				"address %q declares ip6 but %q is not IPv6", s, parts[2],
			)
		}
	default:
		return Addr{}, fmt.Errorf(
			"address %q has unsupported family %q", s, parts[1],
		)
	}

	if parts[3] != "udp" {
		return Addr{}, fmt.Errorf(
			"address %q has unsupported transport %q (QUIC runs over udp)",
			s, parts[3],
		)
	}

	port, err := strconv.ParseUint(parts[4], 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("address %q has invalid port: %w", s, err)
	}

	if parts[5] != quicMarker {
		return Addr{}, fmt.Errorf(
			"address %q does not end in the %s marker", s, quicMarker,
		)
	}

	return New(ip, uint16(port)), nil
}

// MustParse is [Parse] for hardcoded addresses.
// It panics on invalid input.
func MustParse(s string) Addr {
	a, err := Parse(s)
	if err != nil {
		panic(fmt.Errorf("MustParse: %w", err))
	}
	return a
}

// Network returns "udp", satisfying [net.Addr].
func (a Addr) Network() string {
	return "udp"
}

// String returns the layered text form.
func (a Addr) String() string {
	if !a.IP.IsValid() {
		return "invalid address"
	}

	family := "ip6"
	if a.IP.Is4() {
		family = "ip4"
	}
	return fmt.Sprintf("/%s/%s/udp/%d/%s", family, a.IP, a.Port, quicMarker)
}

// Concrete reports whether the address denotes
// one reachable endpoint:
// a specified IP and a nonzero port.
// Wildcard IPs and zero ports are listen-side conveniences
// that no packet can be sent to.
func (a Addr) Concrete() bool {
	return a.IP.IsValid() && !a.IP.IsUnspecified() && a.Port != 0
}

// AddrPort converts to a [netip.AddrPort].
func (a Addr) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(a.IP, a.Port)
}

// UDPAddr converts to the form [net.ListenUDP] and friends take.
func (a Addr) UDPAddr() *net.UDPAddr {
	return net.UDPAddrFromAddrPort(a.AddrPort())
}
