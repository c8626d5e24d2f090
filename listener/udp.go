// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package listener

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/zeebo/errs"
)

var (
	// BindError is the class of errors returned when the listening socket cannot be set up.
	BindError = errs.Class("bind")
	// ReceiveError is the class of errors returned when reading a datagram fails.
	ReceiveError = errs.Class("receive")

	// ErrClosed is returned by Next once the source has been closed.
	ErrClosed = errors.New("listener: source closed")
)

// UDPSource reads datagrams from a bound UDP socket.
type UDPSource struct {
	conn *net.UDPConn
	buf  []byte

	closeOnce sync.Once
	closeErr  error
}

var _ Source = (*UDPSource)(nil)

// Listen binds a UDP socket to the configured address.
func Listen(cfg Config) (*UDPSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, BindError.Wrap(err)
	}

	laddr, err := net.ResolveUDPAddr("udp", cfg.Address())
	if err != nil {
		return nil, BindError.Wrap(err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, BindError.Wrap(err)
	}

	return &UDPSource{
		conn: conn,
		buf:  make([]byte, cfg.MaxPacketSize),
	}, nil
}

// Next returns the next datagram from the socket. The returned payload shares
// the source's buffer and is overwritten by the following call.
func (u *UDPSource) Next() (Datagram, error) {
	n, source, err := u.conn.ReadFromUDP(u.buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return Datagram{}, ErrClosed
		}
		return Datagram{}, ReceiveError.Wrap(err)
	}

	return Datagram{
		Payload:    u.buf[:n],
		Source:     source,
		ReceivedAt: time.Now(),
	}, nil
}

// LocalAddr returns the address the socket is bound to.
func (u *UDPSource) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// Close releases the socket. It is safe to call more than once.
func (u *UDPSource) Close() error {
	u.closeOnce.Do(func() {
		u.closeErr = u.conn.Close()
	})
	return u.closeErr
}
