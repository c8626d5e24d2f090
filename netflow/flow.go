// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netflow

import (
	"math/rand/v2"
	"net/netip"
	"strconv"
	"strings"

	"github.com/zeebo/errs"
)

// Error is the class of errors returned for invalid flow settings.
var Error = errs.Class("netflow")

// Protocol is the IP protocol number reported in generated flows.
type Protocol uint8

const (
	ProtocolICMP Protocol = 1
	ProtocolTCP  Protocol = 6
)

// ParseProtocol accepts "TCP" and "ICMP".
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "TCP":
		return ProtocolTCP, nil
	case "ICMP":
		return ProtocolICMP, nil
	}
	return 0, Error.New("unsupported protocol %q", s)
}

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "TCP"
	case ProtocolICMP:
		return "ICMP"
	}
	return strconv.Itoa(int(p))
}

// AddrPool is an IPv4 address, or a subnet whose hosts are picked at random.
type AddrPool struct {
	prefix netip.Prefix
}

// SingleAddr returns a pool that always yields addr.
func SingleAddr(addr netip.Addr) AddrPool {
	return AddrPool{prefix: netip.PrefixFrom(addr, 32)}
}

// ParseAddr parses a single IPv4 address.
func ParseAddr(s string) (AddrPool, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return AddrPool{}, Error.Wrap(err)
	}
	if !addr.Is4() {
		return AddrPool{}, Error.New("%q is not an IPv4 address", s)
	}
	return SingleAddr(addr), nil
}

// ParseSubnet parses an IPv4 subnet in CIDR notation.
func ParseSubnet(s string) (AddrPool, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return AddrPool{}, Error.Wrap(err)
	}
	if !prefix.Addr().Is4() {
		return AddrPool{}, Error.New("%q is not an IPv4 subnet", s)
	}
	return AddrPool{prefix: prefix.Masked()}, nil
}

func (a AddrPool) String() string {
	if a.prefix.Bits() == 32 {
		return a.prefix.Addr().String()
	}
	return a.prefix.String()
}

// Pick returns one host of the pool. For subnets larger than /31 the network
// and broadcast addresses are never returned.
func (a AddrPool) Pick(rng *rand.Rand) netip.Addr {
	hostBits := 32 - a.prefix.Bits()
	base := a.prefix.Addr().As4()
	first := uint32(base[0])<<24 | uint32(base[1])<<16 | uint32(base[2])<<8 | uint32(base[3])

	var offset uint32
	switch hostBits {
	case 0:
	case 1:
		offset = rng.Uint32N(2)
	default:
		offset = 1 + rng.Uint32N(uint32(1<<hostBits-2))
	}

	v := first + offset
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// PortRange is an inclusive range of transport ports.
type PortRange struct {
	First, Last uint16
}

// SinglePort returns the range holding only port.
func SinglePort(port uint16) PortRange {
	return PortRange{First: port, Last: port}
}

// ParsePortRange parses "<start>,<end>".
func ParsePortRange(s string) (PortRange, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return PortRange{}, Error.New("invalid port range %q, should be <start>,<end>", s)
	}
	first, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16)
	if err != nil {
		return PortRange{}, Error.Wrap(err)
	}
	last, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return PortRange{}, Error.Wrap(err)
	}
	if first > last {
		return PortRange{}, Error.New("empty port range %q", s)
	}
	return PortRange{First: uint16(first), Last: uint16(last)}, nil
}

// Pick returns a port of the range.
func (r PortRange) Pick(rng *rand.Rand) uint16 {
	return r.First + uint16(rng.UintN(uint(r.Last-r.First)+1))
}

// MAC is an ethernet hardware address.
type MAC [6]byte

// ParseMAC parses six hex bytes separated by ':' or '-'.
func ParseMAC(s string) (MAC, error) {
	var mac MAC
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != len(mac) || strings.Count(s, ":")+strings.Count(s, "-") != len(mac)-1 {
		return MAC{}, Error.New("invalid MAC address length %q", s)
	}
	for i, part := range parts {
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return MAC{}, Error.New("incorrect value for MAC address %q: %v", s, err)
		}
		mac[i] = byte(b)
	}
	return mac, nil
}

// Flow describes the records a generator produces.
type Flow struct {
	Src, Dst           AddrPool
	SrcPorts, DstPorts PortRange
	Protocol           Protocol
	SrcMAC, DstMAC     MAC
}

// DefaultFlow returns a single TCP flow from 70.1.135.1:42069 to 70.1.135.2:6969.
func DefaultFlow() Flow {
	return Flow{
		Src:      SingleAddr(netip.AddrFrom4([4]byte{70, 1, 135, 1})),
		Dst:      SingleAddr(netip.AddrFrom4([4]byte{70, 1, 135, 2})),
		SrcPorts: SinglePort(42069),
		DstPorts: SinglePort(6969),
		Protocol: ProtocolTCP,
	}
}

func (a AddrPool) valid() bool {
	return a.prefix.IsValid() && a.prefix.Addr().Is4()
}
