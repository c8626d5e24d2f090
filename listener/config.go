// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package listener

import (
	"net"
	"strconv"

	"github.com/zeebo/errs"
)

const (
	// DefaultHost is the loopback name the listener binds to by default.
	DefaultHost = "localhost"
	// DefaultPort is the UDP port the listener binds to by default.
	DefaultPort = 9995
	// DefaultMaxPacketSize is the size of the receive buffer. Longer datagrams are truncated.
	DefaultMaxPacketSize = 8192
)

// Config is the bind address of a listener. It is fixed once the listener is started.
type Config struct {
	Host          string
	Port          int
	MaxPacketSize int
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		MaxPacketSize: DefaultMaxPacketSize,
	}
}

// Address returns the host:port form of the bind address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks that the configuration describes a bindable address.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errs.New("invalid port %d", c.Port)
	}
	if c.MaxPacketSize <= 0 {
		return errs.New("invalid max packet size %d", c.MaxPacketSize)
	}
	return nil
}
