package n2k

import "time"

// Reserved source addresses. 0..=251 are assignable to normal nodes;
// 252/253 are reserved by ISO 11783-5 and never claimed by this stack.
const (
	AddressNull   uint8 = 254 // no source address claimed yet
	AddressGlobal uint8 = 255 // broadcast destination
)

// Well-known PGNs the Address Manager and supervisor need by name.
const (
	PGNISORequest        uint32 = 59904
	PGNISOAddressClaim   uint32 = 60928
	PGNProductInfo       uint32 = 126996
	PGNConfigurationInfo uint32 = 126998
	PGNPGNList           uint32 = 126464
)

// Header is the decoded form of a 29-bit extended CAN identifier: Priority
// (3 bits), PGN (the combined PDU-Format/PDU-Specific/Data-Page fields),
// Source and, for PDU1 PGNs, Destination.
type Header struct {
	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
}

// Uint32 packs the header back into a 29-bit CAN identifier (right-aligned
// in the low 29 bits of the returned value; bit 29-31 are always zero).
func (h Header) Uint32() uint32 {
	canID := uint32(h.Source) // bits 0-7

	pf := uint8(h.PGN >> 8)
	if pf < 240 { // PDU1: destination-specific
		canID |= uint32(h.Destination) << 8 // bits 8-15
	}
	canID |= h.PGN << 8                        // bits 8-25 (PS/PF/DP)
	canID |= uint32(h.Priority&0x7) << 26      // bits 26-28
	return canID
}

// ParseCANID decodes the 29-bit identifier of an extended CAN frame into a
// Header. For a PDU2 PGN (PF >= 240) the PS byte is folded into the PGN
// instead of carrying a destination, and Destination reads as the global
// broadcast address.
func ParseCANID(canID uint32) Header {
	h := Header{
		Priority: uint8((canID >> 26) & 0x7),
		Source:   uint8(canID),
	}
	ps := uint8(canID >> 8)
	pf := uint8(canID >> 16)
	dp := uint8(canID>>24) & 0x3
	pgn := uint32(dp)<<16 | uint32(pf)<<8
	if pf < 240 {
		h.Destination = ps
		h.PGN = pgn
	} else {
		h.Destination = AddressGlobal
		h.PGN = pgn + uint32(ps)
	}
	return h
}

// Frame is a single 29-bit-identifier CAN 2.0B frame as read from or
// written to a Driver.
type Frame struct {
	Header Header
	Length uint8
	Data   [8]byte
}

// RawFrame is a Frame stamped with the time it was read from the bus.
type RawFrame struct {
	Time   time.Time
	Header Header
	Length uint8
	Data   [8]byte
}

// RawMessage is a complete PGN payload, assembled from one CAN frame or, for
// Fast Packet PGNs, from several -- Data can hold up to FastPacketMaxPayload
// bytes.
type RawMessage struct {
	Time   time.Time
	Header Header
	Data   []byte
}
