// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package listener

import (
	"context"
	"net"
	"time"
)

// Datagram is a single received UDP packet.
type Datagram struct {
	// Payload is only valid until the next datagram is read from the same source.
	Payload    []byte
	Source     *net.UDPAddr
	ReceivedAt time.Time
}

// Host returns the sender's host without the port.
func (d Datagram) Host() string {
	if d.Source == nil {
		return ""
	}
	return d.Source.IP.String()
}

// Handler is called once for every datagram, before the next one is read.
type Handler func(ctx context.Context, d Datagram) error

// Source produces datagrams one at a time.
type Source interface {
	// Next blocks until the next datagram arrives.
	Next() (Datagram, error)
	Close() error
}
