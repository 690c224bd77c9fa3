package n2k

import "errors"

// Codec and transport error taxonomy. Each error surfaces to the caller of
// the operation that raised it; none of them poison the stack -- decoding
// failures drop the offending frame/payload and let the caller retry.
var (
	// ErrBufferTooShort is raised by the bit cursor and field codec when a
	// read or write would run past the end of the backing buffer.
	ErrBufferTooShort = errors.New("n2k: buffer too short")
	// ErrTruncated is raised by PGN decode when the payload ends before the
	// descriptor's declared layout is satisfied.
	ErrTruncated = errors.New("n2k: payload truncated")
	// ErrInconsistentCount is raised by PGN decode when the declared repeat
	// count would require more bytes than the payload holds.
	ErrInconsistentCount = errors.New("n2k: inconsistent repeat count")
	// ErrInvalidField is raised by BCD/LAU encode/decode and by bit-cursor
	// misuse (unaligned byte access, out-of-range bit width).
	ErrInvalidField = errors.New("n2k: invalid field")
	// ErrPayloadTooLarge is raised by encode and by the Fast Packet builder
	// when the result would exceed the 223-byte Fast Packet cap.
	ErrPayloadTooLarge = errors.New("n2k: payload too large")
)

// ErrNoData distinguishes a field's "not available" sentinel from a
// genuine zero value. ErrOutOfRange and ErrReserved distinguish the two
// other sentinel encodings NMEA 2000 reserves for number fields of four
// bits or wider.
var (
	ErrNoData     = errors.New("n2k: field has no data")
	ErrOutOfRange = errors.New("n2k: field value out of range")
	ErrReserved   = errors.New("n2k: field value reserved")
)
