// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package listener

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrCaptureUnsupported is returned by NewCaptureSource on platforms without packet capture.
var ErrCaptureUnsupported = errors.New("listener: packet capture is not supported on this platform")

// CaptureSource reads datagrams addressed to the configured host and port
// from an ethernet capture instead of a bound socket.
type CaptureSource struct {
	packets *gopacket.PacketSource
	close   func()
	filter  captureFilter
	closed  atomic.Bool
}

var _ Source = (*CaptureSource)(nil)

// captureFilter selects the frames that would have reached a socket bound to
// the configured address. A nil ip accepts any destination address.
type captureFilter struct {
	ip   net.IP
	port int
}

func newCaptureFilter(cfg Config) (captureFilter, error) {
	filter := captureFilter{port: cfg.Port}
	if cfg.Host == "" {
		return filter, nil
	}
	addr, err := net.ResolveIPAddr("ip", cfg.Host)
	if err != nil {
		return filter, err
	}
	if !addr.IP.IsUnspecified() {
		filter.ip = addr.IP
	}
	return filter, nil
}

// NewCaptureSource opens a capture on iface for UDP traffic to cfg's address.
func NewCaptureSource(iface string, cfg Config) (*CaptureSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, BindError.Wrap(err)
	}
	filter, err := newCaptureFilter(cfg)
	if err != nil {
		return nil, BindError.Wrap(err)
	}

	handle, closeHandle, supported, err := newEthernetHandle(iface)
	if !supported {
		return nil, ErrCaptureUnsupported
	}
	if err != nil {
		return nil, BindError.Wrap(err)
	}

	return newCaptureSource(handle, closeHandle, filter), nil
}

func newCaptureSource(handle gopacket.PacketDataSource, closeHandle func(), filter captureFilter) *CaptureSource {
	return &CaptureSource{
		packets: gopacket.NewPacketSource(handle, layers.LinkTypeEthernet),
		close:   closeHandle,
		filter:  filter,
	}
}

// Next returns the next captured datagram, skipping unrelated frames.
func (c *CaptureSource) Next() (Datagram, error) {
	for {
		packet, err := c.packets.NextPacket()
		if err != nil {
			if c.closed.Load() {
				return Datagram{}, ErrClosed
			}
			return Datagram{}, ReceiveError.Wrap(err)
		}
		if d, ok := c.filter.datagram(packet); ok {
			return d, nil
		}
	}
}

// Close releases the capture handle.
func (c *CaptureSource) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.close()
	}
	return nil
}

func (f captureFilter) datagram(packet gopacket.Packet) (Datagram, bool) {
	udp, _ := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if udp == nil || int(udp.DstPort) != f.port {
		return Datagram{}, false
	}

	source := &net.UDPAddr{Port: int(udp.SrcPort)}
	var destination net.IP
	if ip4, _ := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ip4 != nil {
		source.IP, destination = ip4.SrcIP, ip4.DstIP
	} else if ip6, _ := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6); ip6 != nil {
		source.IP, destination = ip6.SrcIP, ip6.DstIP
	} else {
		return Datagram{}, false
	}
	if f.ip != nil && !f.ip.Equal(destination) {
		return Datagram{}, false
	}

	received := packet.Metadata().Timestamp
	if received.IsZero() {
		received = time.Now()
	}

	return Datagram{
		Payload:    udp.Payload,
		Source:     source,
		ReceivedAt: received,
	}, true
}
