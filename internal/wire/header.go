// Package wire implements the on-the-wire encoding of Homa packet
// headers. All multi-byte integers are big-endian ("network byte
// order"), matching §6 of the spec and quic-go's own
// internal/wire encoding conventions (see quic-go's header.go, which
// this package's byte-pushing style is adapted from).
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/homa-go/homa/internal/protocol"
)

// ErrHeaderTooShort is returned when a buffer is too small to hold a
// complete header of the requested kind.
var ErrHeaderTooShort = errors.New("wire: buffer too short for header")

// CommonHeaderLen is the size, in bytes, of the fields present on
// every Homa packet regardless of type.
const CommonHeaderLen = 2 + 2 + 8 + 1

// CommonHeader carries the fields present on every packet: the
// addressing fields (sport/dport/id) plus the packet type.
type CommonHeader struct {
	SPort uint16
	DPort uint16
	ID    uint64
	Type  protocol.PacketType
}

func (h *CommonHeader) marshal(b []byte) []byte {
	binary.BigEndian.PutUint16(b[0:2], h.SPort)
	binary.BigEndian.PutUint16(b[2:4], h.DPort)
	binary.BigEndian.PutUint64(b[4:12], h.ID)
	b[12] = byte(h.Type)
	return b[CommonHeaderLen:]
}

func (h *CommonHeader) unmarshal(b []byte) ([]byte, error) {
	if len(b) < CommonHeaderLen {
		return nil, ErrHeaderTooShort
	}
	h.SPort = binary.BigEndian.Uint16(b[0:2])
	h.DPort = binary.BigEndian.Uint16(b[2:4])
	h.ID = binary.BigEndian.Uint64(b[4:12])
	h.Type = protocol.PacketType(b[12])
	return b[CommonHeaderLen:], nil
}

// Marshal appends the common header's wire representation to b and
// returns the result, for callers (control packet construction) that
// only need the common fields, not a full DataHeader.
func (h *CommonHeader) Marshal(b []byte) []byte {
	start := len(b)
	b = append(b, make([]byte, CommonHeaderLen)...)
	h.marshal(b[start:])
	return b
}

// ParseCommonHeader decodes a CommonHeader from the front of b,
// returning the unconsumed remainder.
func ParseCommonHeader(b []byte) (CommonHeader, []byte, error) {
	var h CommonHeader
	rest, err := h.unmarshal(b)
	if err != nil {
		return CommonHeader{}, nil, err
	}
	return h, rest, nil
}

// DataHeaderLen is the size, in bytes, of a marshaled DataHeader.
const DataHeaderLen = CommonHeaderLen + 4 + 4 + 4 + 2 + 1

// DataHeader is the header of a DATA packet (§6, "Wire format — Data
// packet"). The payload itself is not part of the header and is
// appended separately by the caller.
type DataHeader struct {
	Common CommonHeader

	MessageLength protocol.ByteCount
	Offset        protocol.ByteCount
	Unscheduled   protocol.ByteCount
	CutoffVersion uint16
	Retransmit    bool
}

// Marshal appends the header's wire representation to b and returns
// the result.
func (h *DataHeader) Marshal(b []byte) []byte {
	start := len(b)
	b = append(b, make([]byte, DataHeaderLen)...)
	rest := h.Common.marshal(b[start:])
	binary.BigEndian.PutUint32(rest[0:4], uint32(h.MessageLength))
	binary.BigEndian.PutUint32(rest[4:8], uint32(h.Offset))
	binary.BigEndian.PutUint32(rest[8:12], uint32(h.Unscheduled))
	binary.BigEndian.PutUint16(rest[12:14], h.CutoffVersion)
	if h.Retransmit {
		rest[14] = 1
	} else {
		rest[14] = 0
	}
	return b
}

// ParseDataHeader decodes a DataHeader from the front of b, returning
// the unconsumed remainder (the packet's payload).
func ParseDataHeader(b []byte) (DataHeader, []byte, error) {
	var h DataHeader
	rest, err := h.Common.unmarshal(b)
	if err != nil {
		return DataHeader{}, nil, err
	}
	if len(rest) < DataHeaderLen-CommonHeaderLen {
		return DataHeader{}, nil, ErrHeaderTooShort
	}
	h.MessageLength = protocol.ByteCount(binary.BigEndian.Uint32(rest[0:4]))
	h.Offset = protocol.ByteCount(binary.BigEndian.Uint32(rest[4:8]))
	h.Unscheduled = protocol.ByteCount(binary.BigEndian.Uint32(rest[8:12]))
	h.CutoffVersion = binary.BigEndian.Uint16(rest[12:14])
	h.Retransmit = rest[14] != 0
	return h, rest[DataHeaderLen-CommonHeaderLen:], nil
}

// GrantPayload is the type-specific payload of a GRANT control packet.
type GrantPayload struct {
	Offset   protocol.ByteCount
	Priority protocol.Priority
}

// Marshal appends the payload's wire representation to b.
func (g *GrantPayload) Marshal(b []byte) []byte {
	start := len(b)
	b = append(b, make([]byte, 5)...)
	binary.BigEndian.PutUint32(b[start:start+4], uint32(g.Offset))
	b[start+4] = byte(g.Priority)
	return b
}

// ParseGrantPayload decodes a GrantPayload from the front of b.
func ParseGrantPayload(b []byte) (GrantPayload, error) {
	if len(b) < 5 {
		return GrantPayload{}, ErrHeaderTooShort
	}
	return GrantPayload{
		Offset:   protocol.ByteCount(binary.BigEndian.Uint32(b[0:4])),
		Priority: protocol.Priority(b[4]),
	}, nil
}

// ResendPayload is the type-specific payload of a RESEND control
// packet: the byte range the peer is asking to be retransmitted.
type ResendPayload struct {
	Offset   protocol.ByteCount
	Length   protocol.ByteCount
	Priority protocol.Priority
}

// Marshal appends the payload's wire representation to b.
func (r *ResendPayload) Marshal(b []byte) []byte {
	start := len(b)
	b = append(b, make([]byte, 9)...)
	binary.BigEndian.PutUint32(b[start:start+4], uint32(r.Offset))
	binary.BigEndian.PutUint32(b[start+4:start+8], uint32(r.Length))
	b[start+8] = byte(r.Priority)
	return b
}

// ParseResendPayload decodes a ResendPayload from the front of b.
func ParseResendPayload(b []byte) (ResendPayload, error) {
	if len(b) < 9 {
		return ResendPayload{}, ErrHeaderTooShort
	}
	return ResendPayload{
		Offset:   protocol.ByteCount(binary.BigEndian.Uint32(b[0:4])),
		Length:   protocol.ByteCount(binary.BigEndian.Uint32(b[4:8])),
		Priority: protocol.Priority(b[8]),
	}, nil
}
