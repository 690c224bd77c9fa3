package n2k

import (
	"encoding/binary"
	"math"
	"time"
)

// FieldKind is the semantic type of a single PGN field. It mirrors the
// FieldType entries found in the CANboat PGN database.
type FieldKind uint8

const (
	FieldKindNumber FieldKind = iota
	FieldKindFloat
	FieldKindDecimal
	FieldKindLookup
	FieldKindIndirectLookup
	FieldKindBitLookup
	FieldKindTime
	FieldKindDate
	FieldKindDuration
	FieldKindMMSI
	FieldKindPGN
	FieldKindStringFix
	FieldKindStringLZ
	FieldKindStringLAU
	FieldKindBinary
	FieldKindReserved
	FieldKindSpare
)

// FieldDescriptor describes one field of a PGN layout. Bit offsets for
// fields inside a repeating block are relative to the start of one block
// iteration, not to the whole payload. The codec walk in codec.go does not
// read BitOffset: it consumes fields one after another in declared order.
type FieldDescriptor struct {
	ID   string
	Name string
	Kind FieldKind

	// Order is the field's 1-based position within its PGN as declared by
	// the manifest. It exists so an INDIRECT_LOOKUP field elsewhere in the
	// same PGN can name this field as its indirect key via
	// LookupIndirectFieldOrder.
	Order int8

	BitLength         uint16
	BitOffset         uint16
	BitLengthVariable bool
	Signed            bool

	Resolution float64
	Offset     float64
	Unit       string

	// LookupEnum names the enumeration a LOOKUP field resolves against.
	// LookupValues holds that enumeration's value table, baked in at
	// generation time since the runtime package cannot read the CANboat
	// manifest itself.
	LookupEnum   string
	LookupValues []EnumValue

	// LookupBitEnum/LookupBitValues are the BITLOOKUP equivalent: each set
	// bit of the raw value resolves to a named flag.
	LookupBitEnum   string
	LookupBitValues []BitEnumValue

	// LookupIndirectEnum/LookupIndirectValues are the INDIRECT_LOOKUP
	// equivalent: resolution is keyed by this field's raw value *and* the
	// raw value of the field whose Order equals LookupIndirectFieldOrder.
	LookupIndirectEnum       string
	LookupIndirectValues     []IndirectEnumValue
	LookupIndirectFieldOrder int8
}

// EnumValue is a single named value of a LOOKUP enumeration, or one resolved
// member of a BITLOOKUP/INDIRECT_LOOKUP result.
type EnumValue struct {
	Value uint32
	Name  string
}

// BitEnumValue is a single named flag of a BITLOOKUP enumeration, keyed by
// bit position rather than by value.
type BitEnumValue struct {
	Bit  uint32
	Name string
}

// IndirectEnumValue is a single named value of an INDIRECT_LOOKUP
// enumeration: it only applies when both Value and IndirectValue match.
type IndirectEnumValue struct {
	Value         uint32
	IndirectValue uint32
	Name          string
}

// LookupValue is the tagged union CANboat LOOKUP/INDIRECT_LOOKUP fields
// decode to: a known enum member, or the raw integer when the value is not
// in the table. This lets unknown CANboat values round-trip unchanged
// instead of erroring.
type LookupValue struct {
	Known bool
	Enum  EnumValue
	Raw   uint32
}

// FieldValue holds one decoded field. Value is one of: int64, uint64,
// float64, string, []byte, time.Duration, time.Time, LookupValue, or
// []EnumValue (BITLOOKUP). Repeating block instances are held in
// Message.Groups, not in a FieldValue.
type FieldValue struct {
	ID    string
	Kind  FieldKind
	Value interface{}
}

// FieldValues is an ordered list of decoded fields, in descriptor order.
type FieldValues []FieldValue

// FindByID returns the first field with the given ID.
func (fvs FieldValues) FindByID(id string) (FieldValue, bool) {
	for _, f := range fvs {
		if f.ID == id {
			return f, true
		}
	}
	return FieldValue{}, false
}

// AsFloat64 reports the field's value as a float64 where that is a
// meaningful conversion (int64, uint64, float64), for callers like CSV/JSON
// exporters that flatten mixed-type fields into a single numeric column.
func (fv FieldValue) AsFloat64() (float64, bool) {
	switch v := fv.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

var epoch = time.Unix(0, 0).UTC()

// decodeField reads one field at the cursor's current position and returns
// the value plus the number of bits actually consumed (which can differ
// from BitLength for variable-length string kinds). The cursor is
// positioned by the PGN codec walk, not by the field's own BitOffset --
// that offset only describes the nominal (non-repeating) layout. desc and
// decoded give INDIRECT_LOOKUP fields access to another already-decoded
// field in the same PGN.
func decodeField(c *BitCursor, f FieldDescriptor, desc *PGNDescriptor, decoded FieldValues) (FieldValue, uint, error) {
	switch f.Kind {
	case FieldKindNumber, FieldKindPGN:
		return decodeNumber(c, f)
	case FieldKindLookup:
		return decodeLookup(c, f)
	case FieldKindBitLookup:
		return decodeBitLookup(c, f)
	case FieldKindIndirectLookup:
		return decodeIndirectLookup(c, f, desc, decoded)
	case FieldKindFloat:
		return decodeFloat(c, f)
	case FieldKindDecimal:
		return decodeDecimal(c, f)
	case FieldKindTime, FieldKindDuration:
		return decodeDuration(c, f)
	case FieldKindDate:
		return decodeDate(c, f)
	case FieldKindMMSI:
		return decodeMMSI(c, f)
	case FieldKindStringFix:
		return decodeStringFix(c, f)
	case FieldKindStringLZ:
		return decodeStringLZ(c, f)
	case FieldKindStringLAU:
		return decodeStringLAU(c, f)
	case FieldKindBinary, FieldKindReserved, FieldKindSpare:
		return decodeBinary(c, f)
	}
	return FieldValue{}, 0, ErrInvalidField
}

func encodeField(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	switch f.Kind {
	case FieldKindNumber, FieldKindPGN:
		return encodeNumber(c, f, v)
	case FieldKindLookup, FieldKindIndirectLookup:
		return encodeLookup(c, f, v)
	case FieldKindBitLookup:
		return encodeBitLookup(c, f, v)
	case FieldKindFloat:
		return encodeFloat(c, f, v)
	case FieldKindDecimal:
		return encodeDecimal(c, f, v)
	case FieldKindTime, FieldKindDuration:
		return encodeDuration(c, f, v)
	case FieldKindDate:
		return encodeDate(c, f, v)
	case FieldKindMMSI:
		return encodeMMSI(c, f, v)
	case FieldKindStringFix:
		return encodeStringFix(c, f, v)
	case FieldKindStringLZ:
		return encodeStringLZ(c, f, v)
	case FieldKindStringLAU:
		return encodeStringLAU(c, f, v)
	case FieldKindBinary:
		return encodeBinary(c, f, v)
	case FieldKindReserved, FieldKindSpare:
		return writeReservedOrSpare(c, f)
	}
	return 0, ErrInvalidField
}

// writeReservedOrSpare fills the field with the mandated constant: all-ones
// for RESERVED, all-zero for SPARE.
func writeReservedOrSpare(c *BitCursor, f FieldDescriptor) (uint, error) {
	fill := uint64(0)
	if f.Kind == FieldKindReserved {
		fill = ^uint64(0)
	}
	if err := c.WriteBits(fill, uint(f.BitLength)); err != nil {
		return 0, err
	}
	return uint(f.BitLength), nil
}

// sentinelErr computes the NMEA 2000 "no data"/"out of range"/"reserved"
// special values for an n-bit number, and reports which (if any) raw
// matches. This codec applies these three special encodings only to
// fields of 8 bits or wider.
func sentinelErr(raw uint64, n uint, signed bool) error {
	if n < 8 {
		return nil
	}
	mask := (uint64(1) << n) - 1
	if signed {
		mask >>= 1
	}
	switch raw {
	case mask:
		return ErrNoData
	case mask - 1:
		return ErrOutOfRange
	case mask - 2:
		return ErrReserved
	}
	return nil
}

func decodeNumber(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	n := uint(f.BitLength)
	if f.Signed {
		raw, err := c.ReadSignedBits(n)
		if err != nil {
			return FieldValue{}, 0, err
		}
		if err := sentinelErr(uint64(raw)&((uint64(1)<<n)-1), n, true); err != nil {
			return FieldValue{}, n, err
		}
		return numberFieldValue(f, float64(raw), raw, 0), n, nil
	}
	raw, err := c.ReadBits(n)
	if err != nil {
		return FieldValue{}, 0, err
	}
	if err := sentinelErr(raw, n, false); err != nil {
		return FieldValue{}, n, err
	}
	return numberFieldValue(f, float64(raw), 0, raw), n, nil
}

func numberFieldValue(f FieldDescriptor, rawF float64, signedRaw int64, unsignedRaw uint64) FieldValue {
	if f.Resolution != 0 && f.Resolution != 1 {
		scaled := rawF*f.Resolution + f.Offset
		return FieldValue{ID: f.ID, Kind: f.Kind, Value: scaled}
	}
	if f.Signed {
		return FieldValue{ID: f.ID, Kind: f.Kind, Value: signedRaw + int64(f.Offset)}
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: unsignedRaw + uint64(f.Offset)}
}

func encodeNumber(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	n := uint(f.BitLength)
	if f.Resolution != 0 && f.Resolution != 1 {
		fv, ok := asFloat64(v.Value)
		if !ok {
			return 0, ErrInvalidField
		}
		raw := int64(math.Round((fv - f.Offset) / f.Resolution))
		if f.Signed {
			return n, c.WriteSignedBits(raw, n)
		}
		return n, c.WriteBits(uint64(raw), n)
	}
	if f.Signed {
		raw, ok := asInt64(v.Value)
		if !ok {
			return 0, ErrInvalidField
		}
		return n, c.WriteSignedBits(raw-int64(f.Offset), n)
	}
	raw, ok := asUint64(v.Value)
	if !ok {
		return 0, ErrInvalidField
	}
	return n, c.WriteBits(raw-uint64(f.Offset), n)
}

// decodeLookup resolves a raw NUMBER against f.LookupValues, the enumeration
// table n2kgen baked in from the manifest's LookupEnumeration. A raw value
// absent from the table still decodes -- it just comes back with Known
// false, matching LOOKUP's CANboat semantics of tolerating manufacturer
// extensions to the enum.
func decodeLookup(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	n := uint(f.BitLength)
	raw, err := c.ReadBits(n)
	if err != nil {
		return FieldValue{}, 0, err
	}
	if err := sentinelErr(raw, n, false); err != nil {
		return FieldValue{}, n, err
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: resolveLookup(f.LookupValues, uint32(raw))}, n, nil
}

func resolveLookup(values []EnumValue, raw uint32) LookupValue {
	for _, ev := range values {
		if ev.Value == raw {
			return LookupValue{Known: true, Enum: ev, Raw: raw}
		}
	}
	return LookupValue{Raw: raw}
}

func encodeLookup(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	lv, ok := v.Value.(LookupValue)
	if !ok {
		return 0, ErrInvalidField
	}
	raw := lv.Raw
	if lv.Known {
		raw = lv.Enum.Value
	}
	return uint(f.BitLength), c.WriteBits(uint64(raw), uint(f.BitLength))
}

// decodeBitLookup resolves each set bit of a raw bitmask against
// f.LookupBitValues, returning the list of named flags present. A value of
// zero decodes to a nil (empty) flag set rather than an error.
func decodeBitLookup(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	n := uint(f.BitLength)
	raw, err := c.ReadBits(n)
	if err != nil {
		return FieldValue{}, 0, err
	}
	if err := sentinelErr(raw, n, false); err != nil {
		return FieldValue{}, n, err
	}
	var flags []EnumValue
	for _, bv := range f.LookupBitValues {
		if raw&(uint64(1)<<bv.Bit) != 0 {
			flags = append(flags, EnumValue{Value: bv.Bit, Name: bv.Name})
		}
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: flags}, n, nil
}

func encodeBitLookup(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	flags, _ := v.Value.([]EnumValue)
	var raw uint64
	for _, fl := range flags {
		raw |= uint64(1) << fl.Value
	}
	return uint(f.BitLength), c.WriteBits(raw, uint(f.BitLength))
}

// decodeIndirectLookup resolves a raw NUMBER against f.LookupIndirectValues,
// keyed both by this field's own raw value and by the raw value of the
// field elsewhere in desc whose Order equals f.LookupIndirectFieldOrder. If
// that other field cannot be found or has not been decoded yet, the value
// decodes unresolved (Known false) rather than failing the whole message.
func decodeIndirectLookup(c *BitCursor, f FieldDescriptor, desc *PGNDescriptor, decoded FieldValues) (FieldValue, uint, error) {
	n := uint(f.BitLength)
	raw, err := c.ReadBits(n)
	if err != nil {
		return FieldValue{}, 0, err
	}
	if err := sentinelErr(raw, n, false); err != nil {
		return FieldValue{}, n, err
	}
	lv := LookupValue{Raw: uint32(raw)}
	if indirect, ok := findIndirectValue(desc, decoded, f.LookupIndirectFieldOrder); ok {
		for _, iv := range f.LookupIndirectValues {
			if iv.Value == uint32(raw) && iv.IndirectValue == indirect {
				lv.Known = true
				lv.Enum = EnumValue{Value: iv.Value, Name: iv.Name}
				break
			}
		}
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: lv}, n, nil
}

// findIndirectValue locates the field in desc.Fields whose Order matches
// order and returns its already-decoded raw value.
func findIndirectValue(desc *PGNDescriptor, decoded FieldValues, order int8) (uint32, bool) {
	if desc == nil {
		return 0, false
	}
	for _, other := range desc.Fields {
		if other.Order != order {
			continue
		}
		fv, ok := decoded.FindByID(other.ID)
		if !ok {
			return 0, false
		}
		raw, ok := asUint64(fv.Value)
		if !ok {
			return 0, false
		}
		return uint32(raw), true
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func asInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	}
	return 0, false
}

func asUint64(v interface{}) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int64:
		return uint64(x), true
	case float64:
		return uint64(x), true
	}
	return 0, false
}

func decodeFloat(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	if f.BitLength != 32 {
		return FieldValue{}, 0, ErrInvalidField
	}
	raw, err := c.ReadBits(32)
	if err != nil {
		return FieldValue{}, 0, err
	}
	u32 := uint32(raw)
	switch u32 {
	case math.MaxUint32:
		return FieldValue{}, 32, ErrNoData
	case math.MaxUint32 - 1:
		return FieldValue{}, 32, ErrOutOfRange
	case math.MaxUint32 - 2:
		return FieldValue{}, 32, ErrReserved
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: float64(math.Float32frombits(u32))}, 32, nil
}

func encodeFloat(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	fv, ok := asFloat64(v.Value)
	if !ok {
		return 0, ErrInvalidField
	}
	bits := math.Float32bits(float32(fv))
	return 32, c.WriteBits(uint64(bits), 32)
}

// decodeDecimal decodes a byte-aligned BCD run: each byte holds two decimal
// digits, most significant byte first.
func decodeDecimal(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	n := int(f.BitLength) / 8
	raw, err := c.ReadBytes(n)
	if err != nil {
		return FieldValue{}, 0, err
	}
	var result uint64
	allFF := true
	for _, b := range raw {
		if b != 0xff {
			allFF = false
		}
		hi := b >> 4
		lo := b & 0xf
		if hi > 9 || lo > 9 {
			if b == 0xff {
				continue
			}
			return FieldValue{}, uint(f.BitLength), ErrInvalidField
		}
		result = result*100 + uint64(hi)*10 + uint64(lo)
	}
	if allFF {
		return FieldValue{}, uint(f.BitLength), ErrNoData
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: result}, uint(f.BitLength), nil
}

func encodeDecimal(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	raw, ok := asUint64(v.Value)
	if !ok {
		return 0, ErrInvalidField
	}
	n := int(f.BitLength) / 8
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		digits := raw % 100
		raw /= 100
		out[i] = byte((digits/10)<<4 | (digits % 10))
	}
	if raw != 0 {
		return 0, ErrInvalidField
	}
	return uint(f.BitLength), c.WriteBytes(out)
}

func decodeDuration(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	n := uint(f.BitLength)
	raw, err := c.ReadBits(n)
	if err != nil {
		return FieldValue{}, 0, err
	}
	if err := sentinelErr(raw, n, false); err != nil {
		return FieldValue{}, n, err
	}
	resolution := f.Resolution
	if resolution == 0 {
		resolution = 1
	}
	secs := float64(raw) * resolution
	d := time.Duration(secs * float64(time.Second))
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: d}, n, nil
}

func encodeDuration(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	d, ok := v.Value.(time.Duration)
	if !ok {
		return 0, ErrInvalidField
	}
	resolution := f.Resolution
	if resolution == 0 {
		resolution = 1
	}
	raw := uint64(math.Round(d.Seconds() / resolution))
	return uint(f.BitLength), c.WriteBits(raw, uint(f.BitLength))
}

func decodeDate(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	if f.BitLength != 16 {
		return FieldValue{}, 0, ErrInvalidField
	}
	raw, err := c.ReadBits(16)
	if err != nil {
		return FieldValue{}, 0, err
	}
	switch raw {
	case math.MaxUint16:
		return FieldValue{}, 16, ErrNoData
	case math.MaxUint16 - 1:
		return FieldValue{}, 16, ErrOutOfRange
	case math.MaxUint16 - 2:
		return FieldValue{}, 16, ErrReserved
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: epoch.AddDate(0, 0, int(raw))}, 16, nil
}

func encodeDate(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	t, ok := v.Value.(time.Time)
	if !ok {
		return 0, ErrInvalidField
	}
	days := uint64(t.UTC().Sub(epoch).Hours() / 24)
	return 16, c.WriteBits(days, 16)
}

func decodeMMSI(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	raw, err := c.ReadBits(32)
	if err != nil {
		return FieldValue{}, 0, err
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: raw}, 32, nil
}

func encodeMMSI(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	raw, ok := asUint64(v.Value)
	if !ok {
		return 0, ErrInvalidField
	}
	return 32, c.WriteBits(raw, 32)
}

func decodeStringFix(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	n := int(f.BitLength) / 8
	raw, err := c.ReadBytes(n)
	if err != nil {
		return FieldValue{}, 0, err
	}
	length := 0
	for length < len(raw) {
		b := raw[length]
		if b == 0xff || b == 0x0 || b == '@' {
			break
		}
		length++
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: string(raw[:length])}, uint(f.BitLength), nil
}

func encodeStringFix(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	s, _ := v.Value.(string)
	n := int(f.BitLength) / 8
	out := make([]byte, n)
	for i := range out {
		out[i] = 0xff
	}
	copy(out, s)
	return uint(f.BitLength), c.WriteBytes(out)
}

// decodeStringLZ reads one length byte L then L bytes of content.
func decodeStringLZ(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	lenByte, err := c.ReadBits(8)
	if err != nil {
		return FieldValue{}, 0, err
	}
	if lenByte == 0 {
		return FieldValue{ID: f.ID, Kind: f.Kind, Value: ""}, 8, nil
	}
	capacity := (int(f.BitLength) + 7) / 8
	if capacity > 0 && int(lenByte) > capacity {
		lenByte = uint64(capacity)
	}
	content, err := c.ReadBytes(int(lenByte))
	if err != nil {
		return FieldValue{}, 8, err
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: string(content)}, 8 + uint(lenByte)*8, nil
}

// encodeStringLZ writes L clamped to the string's own length -- the field
// is variable-length on the wire, so no declared capacity applies here.
func encodeStringLZ(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	s, _ := v.Value.(string)
	l := len(s)
	if l > 255 {
		l = 255
		s = s[:255]
	}
	if err := c.WriteBits(uint64(l), 8); err != nil {
		return 0, err
	}
	if l == 0 {
		return 8, nil
	}
	if err := c.WriteBytes([]byte(s)); err != nil {
		return 0, err
	}
	return 8 + uint(l)*8, nil
}

// decodeStringLAU reads one length byte L, one encoding byte E, then L-2
// bytes of content (0 = UTF-16, 1 = ASCII/UTF-8).
func decodeStringLAU(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	header, err := c.ReadBytes(2)
	if err != nil {
		return FieldValue{}, 0, err
	}
	length := int(header[0])
	encoding := header[1]
	if length < 2 {
		return FieldValue{}, 16, ErrInvalidField
	}
	contentLen := length - 2
	content, err := c.ReadBytes(contentLen)
	if err != nil {
		return FieldValue{}, 16, err
	}
	readBits := uint(16 + contentLen*8)
	switch encoding {
	case 0:
		s, err := decodeUTF16(content)
		if err != nil {
			return FieldValue{}, readBits, err
		}
		return FieldValue{ID: f.ID, Kind: f.Kind, Value: s}, readBits, nil
	case 1:
		usable := 0
		for _, b := range content {
			if b == 0 || b == 0xff {
				break
			}
			usable++
		}
		return FieldValue{ID: f.ID, Kind: f.Kind, Value: string(content[:usable])}, readBits, nil
	default:
		return FieldValue{}, readBits, ErrInvalidField
	}
}

func decodeUTF16(b []byte) (string, error) {
	if len(b) < 2 {
		return string(b), nil
	}
	order := binary.ByteOrder(binary.LittleEndian)
	start := 0
	switch {
	case b[0] == 0xff && b[1] == 0xfe:
		start = 2
	case b[0] == 0xfe && b[1] == 0xff:
		order = binary.BigEndian
		start = 2
	}
	b = b[start:]
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = order.Uint16(b[i*2:])
	}
	runes := make([]rune, 0, len(units))
	for _, u := range units {
		runes = append(runes, rune(u))
	}
	return string(runes), nil
}

// encodeStringLAU always writes ASCII (encoding byte 1); the codec never
// produces UTF-16 output.
func encodeStringLAU(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	s, _ := v.Value.(string)
	l := len(s) + 2
	if l > 255 {
		l = 255
		s = s[:253]
	}
	if err := c.WriteBytes([]byte{byte(l), 1}); err != nil {
		return 0, err
	}
	if err := c.WriteBytes([]byte(s)); err != nil {
		return 0, err
	}
	return uint(l) * 8, nil
}

func decodeBinary(c *BitCursor, f FieldDescriptor) (FieldValue, uint, error) {
	n := int(f.BitLength)
	remaining := c.RemainingBits()
	if f.BitLengthVariable && n > remaining {
		n = remaining
	}
	nBytes := (n + 7) / 8
	raw, err := c.ReadBytes(nBytes)
	if err != nil {
		return FieldValue{}, 0, err
	}
	return FieldValue{ID: f.ID, Kind: f.Kind, Value: raw}, uint(n), nil
}

func encodeBinary(c *BitCursor, f FieldDescriptor, v FieldValue) (uint, error) {
	raw, _ := v.Value.([]byte)
	if err := c.WriteBytes(raw); err != nil {
		return 0, err
	}
	return uint(len(raw)) * 8, nil
}
