// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package listener

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/errs"
)

// asciiSpace is the set of bytes trimmed from both ends of a payload.
const asciiSpace = " \t\n\v\f\r"

// NewPrinter returns a Handler that writes, for every datagram, a line naming
// the sender followed by a line with the trimmed payload.
func NewPrinter(w io.Writer) Handler {
	return func(ctx context.Context, d Datagram) error {
		payload := bytes.Trim(d.Payload, asciiSpace)
		// one write per datagram keeps the two lines together
		_, err := fmt.Fprintf(w, "%s wrote:\n%s\n", d.Host(), payload)
		return errs.Wrap(err)
	}
}

// Print writes datagrams to stdout.
var Print = NewPrinter(os.Stdout)
