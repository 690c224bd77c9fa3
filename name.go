package n2k

// Name is the 64-bit ISO Name carried in an ISO Address Claim (PGN 60928).
// It identifies a physical/logical device independently of whatever source
// address it currently holds, and its numeric value (as packed by Uint64)
// is the tie-breaker in address arbitration: lower NAME wins.
type Name struct {
	IdentityNumber          uint32 // 21 bits
	ManufacturerCode        uint16 // 11 bits
	ECUInstance             uint8  // 3 bits
	FunctionInstance        uint8  // 5 bits
	DeviceFunction          uint8  // 8 bits
	DeviceClass             uint8  // 7 bits
	SystemInstance          uint8  // 4 bits
	IndustryGroup           uint8  // 3 bits
	ArbitraryAddressCapable bool   // 1 bit
}

// Bytes packs n into the 8-byte little-endian wire layout used by PGN 60928.
func (n Name) Bytes() []byte {
	out := make([]byte, 8)
	c := NewBitCursor(out)
	_ = c.WriteBits(uint64(n.IdentityNumber), 21)
	_ = c.WriteBits(uint64(n.ManufacturerCode), 11)
	_ = c.WriteBits(uint64(n.ECUInstance), 3)
	_ = c.WriteBits(uint64(n.FunctionInstance), 5)
	_ = c.WriteBits(uint64(n.DeviceFunction), 8)
	_ = c.WriteBits(0, 1) // reserved
	_ = c.WriteBits(uint64(n.DeviceClass), 7)
	_ = c.WriteBits(uint64(n.SystemInstance), 4)
	_ = c.WriteBits(uint64(n.IndustryGroup), 3)
	if n.ArbitraryAddressCapable {
		_ = c.WriteBits(1, 1)
	} else {
		_ = c.WriteBits(0, 1)
	}
	return out
}

// Uint64 returns n's wire representation as a little-endian integer, which
// is the value arbitration compares: the device with the numerically lower
// NAME wins a contested source address.
func (n Name) Uint64() uint64 {
	b := n.Bytes()
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// ParseName unpacks the 8-byte NAME field of a PGN 60928 payload.
func ParseName(b []byte) (Name, error) {
	if len(b) != 8 {
		return Name{}, ErrInvalidField
	}
	c := NewBitCursor(b)
	var n Name
	read := func(bits uint) uint64 {
		v, _ := c.ReadBits(bits)
		return v
	}
	n.IdentityNumber = uint32(read(21))
	n.ManufacturerCode = uint16(read(11))
	n.ECUInstance = uint8(read(3))
	n.FunctionInstance = uint8(read(5))
	n.DeviceFunction = uint8(read(8))
	read(1) // reserved
	n.DeviceClass = uint8(read(7))
	n.SystemInstance = uint8(read(4))
	n.IndustryGroup = uint8(read(3))
	n.ArbitraryAddressCapable = read(1) != 0
	return n, nil
}
