package n2k

import (
	"errors"
	"fmt"
)

// Decode walks desc in declared order and parses raw into a Message. Header
// fields are decoded first; when desc declares a repeating block, the count
// field's value determines how many times the block body is decoded (or,
// for a count-less block, the block repeats until raw is exhausted).
//
// Decoding mirrors encoding: if raw ends before the declared layout is
// satisfied, Decode fails with ErrTruncated; if a declared count would
// require more bytes than raw holds, it fails with ErrInconsistentCount.
func Decode(desc *PGNDescriptor, raw []byte) (Message, error) {
	c := NewBitCursor(raw)
	msg := Message{
		Fields: make(FieldValues, 0, len(desc.Fields)),
		Groups: make([][]FieldValues, len(desc.Repeats)),
	}

	setIdx := 0
	idx := 0
	for idx < len(desc.Fields) {
		if setIdx < len(desc.Repeats) && idx == desc.Repeats[setIdx].StartFieldIndex {
			rs := desc.Repeats[setIdx]
			count, err := repeatCount(&msg, rs)
			if err != nil {
				return Message{}, err
			}
			groups, err := decodeRepeatBody(c, desc, rs, count, msg.Fields)
			if err != nil {
				return Message{}, err
			}
			msg.Groups[setIdx] = groups
			idx = rs.StartFieldIndex + rs.BlockSize
			setIdx++
			continue
		}

		f := desc.Fields[idx]
		idx++
		fv, _, err := decodeField(c, f, desc, msg.Fields)
		if err := classifyFieldErr(err); err != nil {
			if err == errFieldSkip {
				continue
			}
			return Message{}, err
		}
		if f.Kind == FieldKindReserved || f.Kind == FieldKindSpare {
			continue
		}
		msg.Fields = append(msg.Fields, fv)
	}
	return msg, nil
}

var errFieldSkip = errors.New("n2k: field skipped")

// classifyFieldErr turns a field-level decode error into either nil (value
// usable), errFieldSkip (sentinel value, field omitted but decode
// continues), or a wrapped ErrTruncated/other error that aborts decode.
func classifyFieldErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoData), errors.Is(err, ErrOutOfRange), errors.Is(err, ErrReserved):
		return errFieldSkip
	case errors.Is(err, ErrBufferTooShort):
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	default:
		return err
	}
}

// repeatCount resolves how many times a repeating block should iterate: the
// already-decoded count field's value, or -1 for a count-less block that
// repeats until the payload is exhausted.
func repeatCount(msg *Message, rs RepeatingFieldSet) (int, error) {
	if rs.CountFieldIndex == NoCountField {
		return -1, nil
	}
	// The count field was appended to msg.Fields in declared order; it is
	// always the field immediately preceding the block for a well-formed
	// descriptor, so the last header field is the count.
	if len(msg.Fields) == 0 {
		return 0, ErrInconsistentCount
	}
	last := msg.Fields[len(msg.Fields)-1]
	n, ok := asUint64(last.Value)
	if !ok {
		return 0, ErrInconsistentCount
	}
	if n > uint64(rs.MaxRepetitions) {
		return 0, ErrInconsistentCount
	}
	return int(n), nil
}

func decodeRepeatBody(c *BitCursor, desc *PGNDescriptor, rs RepeatingFieldSet, count int, headerFields FieldValues) ([]FieldValues, error) {
	blockFields := desc.Fields[rs.StartFieldIndex : rs.StartFieldIndex+rs.BlockSize]
	groups := make([]FieldValues, 0, maxInt(count, 4))
	if count > 0 && count*blockBitSize(desc, rs) > c.RemainingBits() {
		return nil, fmt.Errorf("%w: %d repeats need more than %d remaining bits", ErrInconsistentCount, count, c.RemainingBits())
	}
	for iter := 0; count < 0 || iter < count; iter++ {
		if c.RemainingBits() <= 0 {
			if count < 0 {
				break // count-less block: end of payload ends the block cleanly
			}
			return nil, fmt.Errorf("%w: repeat %d/%d", ErrInconsistentCount, iter, count)
		}
		group := make(FieldValues, 0, rs.BlockSize)
		// decoded accumulates header fields plus this iteration's own
		// fields so far, letting an INDIRECT_LOOKUP field inside the block
		// resolve against either.
		decoded := append(FieldValues{}, headerFields...)
		for _, f := range blockFields {
			fv, _, err := decodeField(c, f, desc, decoded)
			if err := classifyFieldErr(err); err != nil {
				if err == errFieldSkip {
					continue
				}
				return nil, err
			}
			group = append(group, fv)
			decoded = append(decoded, fv)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Encode walks desc in declared order and serializes msg into out, returning
// the number of bytes written. It fails with ErrPayloadTooLarge if the
// result would exceed the 223-byte Fast Packet cap.
func Encode(desc *PGNDescriptor, msg Message, out []byte) (int, error) {
	counts := make([]int, len(desc.Repeats))
	for i, g := range msg.Groups {
		counts[i] = len(g)
	}
	total := desc.EffectiveLength(counts)
	if total > FastPacketMaxPayload {
		return 0, ErrPayloadTooLarge
	}
	if len(out) < total {
		return 0, ErrBufferTooShort
	}

	c := NewBitCursor(out)
	setIdx := 0
	idx := 0
	fieldIdx := 0 // index into msg.Fields for header/trailing fields
	for idx < len(desc.Fields) {
		if setIdx < len(desc.Repeats) && idx == desc.Repeats[setIdx].StartFieldIndex {
			rs := desc.Repeats[setIdx]
			if err := encodeRepeatBody(c, desc, rs, msg.Groups[setIdx]); err != nil {
				return 0, err
			}
			idx = rs.StartFieldIndex + rs.BlockSize
			setIdx++
			continue
		}

		f := desc.Fields[idx]
		idx++

		var fv FieldValue
		if f.Kind == FieldKindReserved || f.Kind == FieldKindSpare {
			fv = FieldValue{Kind: f.Kind}
		} else if isCountField(desc, f.ID) {
			fv = FieldValue{ID: f.ID, Kind: f.Kind, Value: countFieldValue(desc, f.ID, msg.Groups)}
		} else {
			if fieldIdx >= len(msg.Fields) {
				return 0, fmt.Errorf("%w: missing field %q", ErrInvalidField, f.ID)
			}
			fv = msg.Fields[fieldIdx]
			fieldIdx++
		}
		if _, err := encodeField(c, f, fv); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func isCountField(desc *PGNDescriptor, id string) bool {
	for _, rs := range desc.Repeats {
		if rs.CountFieldIndex != NoCountField && desc.Fields[rs.CountFieldIndex].ID == id {
			return true
		}
	}
	return false
}

func countFieldValue(desc *PGNDescriptor, id string, groups [][]FieldValues) uint64 {
	for i, rs := range desc.Repeats {
		if rs.CountFieldIndex != NoCountField && desc.Fields[rs.CountFieldIndex].ID == id {
			return uint64(len(groups[i]))
		}
	}
	return 0
}

func encodeRepeatBody(c *BitCursor, desc *PGNDescriptor, rs RepeatingFieldSet, groups []FieldValues) error {
	if len(groups) > rs.MaxRepetitions {
		return ErrInconsistentCount
	}
	blockFields := desc.Fields[rs.StartFieldIndex : rs.StartFieldIndex+rs.BlockSize]
	for _, group := range groups {
		for i, f := range blockFields {
			if i >= len(group) {
				return fmt.Errorf("%w: missing repeat field %q", ErrInvalidField, f.ID)
			}
			if _, err := encodeField(c, f, group[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
