// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netflow

import (
	"encoding/binary"
)

const (
	// Version is the NetFlow export version written in every header.
	Version = 9
	// DefaultTemplateID is the template id records are exported under.
	DefaultTemplateID = 307

	headerLength      = 20
	setHeaderLength   = 4
	templateFlowSetID = 0
	minDataFlowSetID  = 256
)

// Field is a template field specifier.
type Field struct {
	Type   uint16
	Length uint16
}

// Information element ids, as assigned by IANA for IPFIX and used by NetFlow v9.
const (
	FieldProtocolIdentifier       = 4
	FieldSourceTransportPort      = 7
	FieldSourceIPv4Address        = 8
	FieldDestinationTransportPort = 11
	FieldDestinationIPv4Address   = 12
	FieldSourceMacAddress         = 56
	FieldDestinationMacAddress    = 80
)

// TemplateFields is the layout of every generated data record.
var TemplateFields = []Field{
	{FieldSourceIPv4Address, 4},
	{FieldDestinationIPv4Address, 4},
	{FieldSourceTransportPort, 2},
	{FieldDestinationTransportPort, 2},
	{FieldSourceMacAddress, 6},
	{FieldDestinationMacAddress, 6},
	{FieldProtocolIdentifier, 1},
}

// Header is the NetFlow v9 packet header.
type Header struct {
	Count          uint16
	SysUptimeMs    uint32
	UnixSecs       uint32
	SequenceNumber uint32
	SourceID       uint32
}

// Record is one data record laid out as TemplateFields.
type Record struct {
	Src, Dst         [4]byte
	SrcPort, DstPort uint16
	SrcMAC, DstMAC   MAC
	Protocol         Protocol
}

func recordLength(fields []Field) int {
	n := 0
	for _, f := range fields {
		n += int(f.Length)
	}
	return n
}

func appendHeader(buf []byte, h Header) []byte {
	buf = binary.BigEndian.AppendUint16(buf, Version)
	buf = binary.BigEndian.AppendUint16(buf, h.Count)
	buf = binary.BigEndian.AppendUint32(buf, h.SysUptimeMs)
	buf = binary.BigEndian.AppendUint32(buf, h.UnixSecs)
	buf = binary.BigEndian.AppendUint32(buf, h.SequenceNumber)
	return binary.BigEndian.AppendUint32(buf, h.SourceID)
}

func appendTemplateSet(buf []byte, templateID uint16, fields []Field) []byte {
	length := setHeaderLength + 4 + 4*len(fields)
	buf = binary.BigEndian.AppendUint16(buf, templateFlowSetID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(length))
	buf = binary.BigEndian.AppendUint16(buf, templateID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(fields)))
	for _, f := range fields {
		buf = binary.BigEndian.AppendUint16(buf, f.Type)
		buf = binary.BigEndian.AppendUint16(buf, f.Length)
	}
	return buf
}

// appendDataSet writes records and pads the set to a four byte boundary.
func appendDataSet(buf []byte, templateID uint16, records []Record) []byte {
	length := setHeaderLength + len(records)*recordLength(TemplateFields)
	padding := (4 - length%4) % 4

	buf = binary.BigEndian.AppendUint16(buf, templateID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(length+padding))
	for _, r := range records {
		buf = append(buf, r.Src[:]...)
		buf = append(buf, r.Dst[:]...)
		buf = binary.BigEndian.AppendUint16(buf, r.SrcPort)
		buf = binary.BigEndian.AppendUint16(buf, r.DstPort)
		buf = append(buf, r.SrcMAC[:]...)
		buf = append(buf, r.DstMAC[:]...)
		buf = append(buf, byte(r.Protocol))
	}
	return append(buf, make([]byte, padding)...)
}
