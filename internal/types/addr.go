package types

import (
	"encoding/json"
	"net/netip"
)

/*
 * Socket endpoint addresses.
 *
 * Addr is a tagged union over IPv4 and IPv6 endpoints, mirroring the raw
 * sockaddr_in/sockaddr_in6 records delivered by the kernel probes. Conversion
 * to and from netip.AddrPort is bijective on the representable domain: no
 * address or port bits are dropped in either direction, and an IPv4-mapped
 * IPv6 address stays V6 rather than being silently unmapped.
 *
 * Kernel probes report IPv4 addresses as a 32-bit host-order integer;
 * AddrFromHostV4 converts that to the four network-order octets exposed here.
 */

// Family discriminates the Addr union.
type Family uint8

const (
	FamilyV4 Family = iota
	FamilyV6
)

// Addr is a socket endpoint. Exactly one of V4/V6 is meaningful, selected by
// Family.
type Addr struct {
	Family Family
	V4     AddrV4
	V6     AddrV6
}

// AddrV4 is an IPv4 endpoint with the address in network octet order.
type AddrV4 struct {
	Addr [4]byte
	Port uint16
}

// AddrV6 is an IPv6 endpoint with the native 128-bit address.
type AddrV6 struct {
	Addr [16]byte
	Port uint16
}

// AddrFromHostV4 builds an IPv4 Addr from the kernel's host-order 32-bit
// representation, shifting the bits into network octet order.
func AddrFromHostV4(ip uint32, port uint16) Addr {
	return Addr{
		Family: FamilyV4,
		V4: AddrV4{
			Addr: [4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)},
			Port: port,
		},
	}
}

// AddrFromV6 builds an IPv6 Addr from a raw 16-byte address.
func AddrFromV6(ip [16]byte, port uint16) Addr {
	return Addr{Family: FamilyV6, V6: AddrV6{Addr: ip, Port: port}}
}

// AddrOf converts a generic socket address into the Addr union.
func AddrOf(ap netip.AddrPort) Addr {
	if ap.Addr().Is4() {
		return Addr{
			Family: FamilyV4,
			V4:     AddrV4{Addr: ap.Addr().As4(), Port: ap.Port()},
		}
	}
	return Addr{
		Family: FamilyV6,
		V6:     AddrV6{Addr: ap.Addr().As16(), Port: ap.Port()},
	}
}

// AddrPort converts back to the generic socket address representation.
// AddrOf and AddrPort are inverses for every representable endpoint.
func (a Addr) AddrPort() netip.AddrPort {
	if a.Family == FamilyV4 {
		return netip.AddrPortFrom(netip.AddrFrom4(a.V4.Addr), a.V4.Port)
	}
	return netip.AddrPortFrom(netip.AddrFrom16(a.V6.Addr), a.V6.Port)
}

// IP returns the textual address without the port.
func (a Addr) IP() string {
	return a.AddrPort().Addr().String()
}

// Port returns the endpoint port regardless of family.
func (a Addr) Port() uint16 {
	if a.Family == FamilyV4 {
		return a.V4.Port
	}
	return a.V6.Port
}

// String formats the endpoint as host:port.
func (a Addr) String() string {
	return a.AddrPort().String()
}

// MarshalJSON emits the endpoint in its wire form {"ip": ..., "port": ...}.
func (a Addr) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IP   string `json:"ip"`
		Port uint16 `json:"port"`
	}{IP: a.IP(), Port: a.Port()})
}
