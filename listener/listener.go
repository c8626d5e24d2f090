// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package listener receives UDP datagrams and hands them, one at a time, to a Handler.
package listener

import (
	"context"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var mon = monkit.Package()

// Start binds a socket for cfg and serves it until ctx is cancelled or a
// receive or handler error occurs. Bind failures return before anything is read.
func Start(ctx context.Context, cfg Config, handler Handler) error {
	src, err := Listen(cfg)
	if err != nil {
		return err
	}
	return Serve(ctx, src, handler)
}

// Serve reads datagrams from src and calls handler for each of them in the
// order they are delivered. A datagram is fully handled before the next one
// is read. src is closed when Serve returns.
//
// Cancelling ctx closes src and makes Serve return nil. Any other receive
// error, and any handler error, stops the loop and is returned.
func Serve(ctx context.Context, src Source, handler Handler) (err error) {
	defer func() {
		closeErr := src.Close()
		if ctx.Err() == nil {
			err = errs.Combine(err, closeErr)
		}
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = src.Close()
		case <-stop:
		}
	}()

	for {
		d, err := src.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			mon.Counter("receive_errors").Inc(1)
			return err
		}

		mon.Counter("datagrams_received").Inc(1)
		mon.Meter("datagram_bytes").Mark(len(d.Payload))

		if err := handle(ctx, handler, d); err != nil {
			return err
		}
	}
}

func handle(ctx context.Context, handler Handler, d Datagram) (err error) {
	defer mon.Task()(&ctx)(&err)
	return handler(ctx, d)
}
