// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package netflow generates NetFlow v9 export packets for exercising collectors.
package netflow

import (
	"math/rand/v2"
	"time"
)

// Strategy decides which packets carry the template.
type Strategy int

const (
	// TemplateOnce sends the template in the first packet only.
	TemplateOnce Strategy = iota
	// TemplateInterleaved sends the template together with data in every packet.
	TemplateInterleaved
	// TemplateEvery sends the template in a packet of its own every N packets.
	TemplateEvery
)

func (s Strategy) String() string {
	switch s {
	case TemplateOnce:
		return "once"
	case TemplateInterleaved:
		return "interleave"
	case TemplateEvery:
		return "every"
	}
	return "unknown"
}

// Options configure a Generator.
type Options struct {
	Flow       Flow
	TemplateID uint16
	SourceID   uint32
	Strategy   Strategy
	// Every is the template period for TemplateEvery.
	Every uint32
	// RecordsPerPacket is the number of data records per data set. Defaults to 1.
	RecordsPerPacket int
}

// Generator produces consecutive export packets for one flow description.
type Generator struct {
	opts  Options
	rng   *rand.Rand
	start time.Time
	now   func() time.Time
	seq   uint32
	buf   []byte
}

// NewGenerator validates opts and returns a generator whose first packet has
// sequence number 1.
func NewGenerator(opts Options, rng *rand.Rand) (*Generator, error) {
	if opts.TemplateID < minDataFlowSetID {
		return nil, Error.New("template id %d is reserved, must be at least %d", opts.TemplateID, minDataFlowSetID)
	}
	if !opts.Flow.Src.valid() || !opts.Flow.Dst.valid() {
		return nil, Error.New("source and destination addresses are required")
	}
	if opts.Flow.SrcPorts.First > opts.Flow.SrcPorts.Last || opts.Flow.DstPorts.First > opts.Flow.DstPorts.Last {
		return nil, Error.New("empty port range")
	}
	switch opts.Strategy {
	case TemplateOnce, TemplateInterleaved:
	case TemplateEvery:
		if opts.Every == 0 {
			return nil, Error.New("template period must be positive")
		}
	default:
		return nil, Error.New("unknown template strategy %d", opts.Strategy)
	}
	if opts.RecordsPerPacket <= 0 {
		opts.RecordsPerPacket = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Generator{
		opts:  opts,
		rng:   rng,
		start: time.Now(),
		now:   time.Now,
		seq:   1,
	}, nil
}

// Next encodes the next packet. The returned slice is reused by the following call.
func (g *Generator) Next() []byte {
	seq := g.seq
	g.seq++

	withTemplate, withData := true, true
	switch g.opts.Strategy {
	case TemplateOnce:
		withTemplate, withData = seq == 1, seq != 1
	case TemplateEvery:
		withTemplate = (seq-1)%g.opts.Every == 0
		withData = !withTemplate
	}

	now := g.now()
	header := Header{
		SysUptimeMs:    uint32(now.Sub(g.start).Milliseconds()),
		UnixSecs:       uint32(now.Unix()),
		SequenceNumber: seq,
		SourceID:       g.opts.SourceID,
	}
	if withTemplate {
		header.Count++
	}
	var records []Record
	if withData {
		records = g.records()
		header.Count += uint16(len(records))
	}

	buf := appendHeader(g.buf[:0], header)
	if withTemplate {
		buf = appendTemplateSet(buf, g.opts.TemplateID, TemplateFields)
	}
	if withData {
		buf = appendDataSet(buf, g.opts.TemplateID, records)
	}
	g.buf = buf
	return buf
}

func (g *Generator) records() []Record {
	flow := g.opts.Flow
	records := make([]Record, g.opts.RecordsPerPacket)
	for i := range records {
		records[i] = Record{
			Src:      flow.Src.Pick(g.rng).As4(),
			Dst:      flow.Dst.Pick(g.rng).As4(),
			SrcPort:  flow.SrcPorts.Pick(g.rng),
			DstPort:  flow.DstPorts.Pick(g.rng),
			SrcMAC:   flow.SrcMAC,
			DstMAC:   flow.DstMAC,
			Protocol: flow.Protocol,
		}
	}
	return records
}
