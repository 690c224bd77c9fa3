package n2k

// PGNCategory distinguishes Single-frame PGNs (payload fits one 8-byte CAN
// frame) from Fast Packet PGNs (payload can span up to 223 bytes).
type PGNCategory uint8

const (
	CategorySingleFrame PGNCategory = iota
	CategoryFastPacket
)

// FastPacketMaxPayload is the largest payload a Fast Packet sequence can
// carry: frame 0 holds the sequence/index byte, the total-length byte and 6
// data bytes, and a 5-bit frame index allows up to 31 continuation frames of
// 7 data bytes each (6 + 31*7 = 223).
const FastPacketMaxPayload = 223

// NoCountField marks a RepeatingFieldSet whose repetitions are not bounded
// by a count field -- the block repeats until the payload is exhausted
// (e.g. PGN 126464, PGN List).
const NoCountField = -1

// RepeatingFieldSet describes one repeating block of fields within a PGN,
// per spec the descriptor's repeating-block is a triple
// (count_field_index, start_field_index, block_size_in_fields); a PGN may
// declare up to two independent such sets.
type RepeatingFieldSet struct {
	// CountFieldIndex is the 0-based index into Descriptor.Fields of the
	// field carrying the repetition count, or NoCountField.
	CountFieldIndex int
	// StartFieldIndex is the 0-based index of the first field in the block.
	StartFieldIndex int
	// BlockSize is the number of fields per repeat iteration.
	BlockSize int
	// MaxRepetitions bounds the typed layer's fixed-capacity array for
	// this block, chosen at generation time to fit the 223-byte cap.
	MaxRepetitions int
}

// PGNDescriptor is the compile-time-constant record describing one message
// type. Instances live in static tables built by the code generator (see
// cmd/n2kgen); nothing about this type is populated from runtime JSON.
type PGNDescriptor struct {
	PGN         uint32
	Name        string
	Description string

	Category PGNCategory
	Priority uint8

	// MinLength is the payload length when there are no repeats (or the
	// fixed length, when Length != 0).
	MinLength uint16
	// Length is the exact payload length for fixed-size PGNs, or 0 when
	// the length depends on a repeating block.
	Length uint16

	Fields  []FieldDescriptor
	Repeats []RepeatingFieldSet
}

// EffectiveLength returns the expected payload length in bytes given the
// repeat counts that will be (or were) used for each RepeatingFieldSet, in
// the same order as d.Repeats.
func (d *PGNDescriptor) EffectiveLength(counts []int) int {
	if d.Length != 0 {
		return int(d.Length)
	}
	total := int(d.MinLength)
	for i, rs := range d.Repeats {
		if i >= len(counts) {
			break
		}
		total += bitsToBytes(counts[i] * blockBitSize(d, rs))
	}
	return total
}

func blockBitSize(d *PGNDescriptor, rs RepeatingFieldSet) int {
	bits := 0
	for i := rs.StartFieldIndex; i < rs.StartFieldIndex+rs.BlockSize && i < len(d.Fields); i++ {
		bits += int(d.Fields[i].BitLength)
	}
	return bits
}

func bitsToBytes(bits int) int {
	return (bits + 7) / 8
}

// Message is a generic decoded PGN value: the non-repeating fields in
// declared order, plus one slice of FieldValues per RepeatingFieldSet.
type Message struct {
	Fields FieldValues
	Groups [][]FieldValues
}
