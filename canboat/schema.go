// Package canboat parses the CANboat PGN manifest format. It is consumed
// only by cmd/n2kgen at build time to produce the static descriptor tables
// held in pgns.Descriptors at runtime -- nothing in this package runs in a deployed
// binary.
package canboat

import (
	"encoding/json"
	"fmt"
	"io/fs"
)

// FieldType is a CANboat field encoding kind.
type FieldType string

const (
	// FieldTypeNumber - Binary numbers are little endian. Number fields that use two or three bits use one special
	// encoding, for the maximum value.  When present, this means that the field is not present. Number fields that
	// use four bits or more use two special encodings. The maximum positive value means that the field is not present.
	// The maximum positive value minus 1 means that the field has an error. For instance, a broken sensor.
	// For signed numbers the maximum values are the maximum positive value and that minus 1, not the all-ones bit
	// encoding which is the maximum negative value.
	FieldTypeNumber FieldType = "NUMBER"
	// FieldTypeFloat - 32 bit IEEE-754 floating point number.
	FieldTypeFloat FieldType = "FLOAT"
	// FieldTypeDecimal - An unsigned numeric value represented with 2 decimal digits per byte (BCD).
	FieldTypeDecimal FieldType = "DECIMAL"
	// FieldTypeLookup - Number value where each value encodes for a distinct meaning.
	FieldTypeLookup FieldType = "LOOKUP"
	// FieldTypeIndirectLookup - Number value whose meaning also depends on the value in another field.
	FieldTypeIndirectLookup FieldType = "INDIRECT_LOOKUP"
	// FieldTypeBitLookup - Number value where each bit encodes for a distinct meaning.
	FieldTypeBitLookup FieldType = "BITLOOKUP"
	// FieldTypeTime - time of day.
	FieldTypeTime FieldType = "TIME"
	// FieldTypeDate - days since 1 January 1970.
	FieldTypeDate FieldType = "DATE"
	// FieldTypeStringFix - fixed length single byte codepoint string.
	FieldTypeStringFix FieldType = "STRING_FIX"
	// FieldTypeStringVar - varying length single byte codepoint string with start/stop markers.
	FieldTypeStringVar FieldType = "STRING_VAR"
	// FieldTypeStringLz - length-prefixed, zero-terminated string.
	FieldTypeStringLz FieldType = "STRING_LZ"
	// FieldTypeStringLAU - length-prefixed string with a UNICODE/ASCII control byte.
	FieldTypeStringLAU FieldType = "STRING_LAU"
	// FieldTypeBinary - unspecified content of any number of bits.
	FieldTypeBinary FieldType = "BINARY"
	// FieldTypeReserved - reserved field, bits shall be 1.
	FieldTypeReserved FieldType = "RESERVED"
	// FieldTypeSpare - spare field, bits shall be 0.
	FieldTypeSpare FieldType = "SPARE"
	// FieldTypeMMSI - a 32 bit Maritime Mobile Service Identity.
	FieldTypeMMSI FieldType = "MMSI"
	// FieldTypeVariable - definition comes from a referenced PGN and field.
	FieldTypeVariable FieldType = "VARIABLE"
)

// UnmarshalJSON rejects any FieldType value n2kgen does not know how to map
// onto an n2k.FieldKind.
func (bv *FieldType) UnmarshalJSON(b []byte) error {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}
	t := string(b)

	switch FieldType(t) {
	case FieldTypeNumber, FieldTypeFloat, FieldTypeDecimal, FieldTypeLookup, FieldTypeIndirectLookup,
		FieldTypeBitLookup, FieldTypeTime, FieldTypeDate, FieldTypeStringFix, FieldTypeStringVar,
		FieldTypeStringLz, FieldTypeStringLAU, FieldTypeBinary, FieldTypeReserved, FieldTypeSpare,
		FieldTypeMMSI, FieldTypeVariable:
		*bv = FieldType(t)
		return nil
	default:
		return fmt.Errorf("unknown FieldType value: %q", t)
	}
}

// PacketType says whether a PGN fits a single frame, needs Fast Packet
// segmentation, or uses the ISO 11783-3 Transport Protocol.
type PacketType string

const (
	PacketTypeISO    PacketType = "ISO"
	PacketTypeFast   PacketType = "Fast"
	PacketTypeSingle PacketType = "Single"
)

// UnmarshalJSON rejects PacketType values n2kgen has no transport mapping for.
func (pt *PacketType) UnmarshalJSON(b []byte) error {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}
	t := string(b)

	switch PacketType(t) {
	case PacketTypeISO, PacketTypeFast, PacketTypeSingle:
		*pt = PacketType(t)
		return nil
	default:
		return fmt.Errorf("unknown PacketType value: %q", t)
	}
}

// Schema is the root element of a CANboat PGN JSON manifest.
type Schema struct {
	Comment       string                     `json:"Comment"`
	CreatorCode   string                     `json:"CreatorCode"`
	License       string                     `json:"License"`
	Version       string                     `json:"Version"`
	PGNs          PGNs                       `json:"PGNs"`
	Enums         LookupEnumerations         `json:"LookupEnumerations"`
	IndirectEnums LookupIndirectEnumerations `json:"LookupIndirectEnumerations"`
	BitEnums      LookupBitEnumerations      `json:"LookupBitEnumerations"`
}

// LoadSchema reads and parses a CANboat PGN manifest from filesystem.
func LoadSchema(filesystem fs.FS, path string) (Schema, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return Schema{}, err
	}
	defer f.Close()

	schema := Schema{}
	if err := json.NewDecoder(f).Decode(&schema); err != nil {
		return Schema{}, fmt.Errorf("canboat: decode manifest: %w", err)
	}
	return schema, nil
}

// PGNs is a list of PGN manifest entries.
type PGNs []PGN

// PGN is one Parameter Group Number manifest entry. PGN is not unique by
// itself -- some PGNs have multiple field-set variants distinguished by a
// match field -- so n2kgen keys generated descriptors by PGN+ID.
type PGN struct {
	PGN              uint32     `json:"PGN"`
	ID               string     `json:"Id"`
	Description      string     `json:"Description"`
	Explanation      string     `json:"Explanation"`
	URL              string     `json:"URL"`
	Type             PacketType `json:"Type"`
	Complete         bool       `json:"Complete"`
	FieldCount       int16      `json:"FieldCount"`
	MinLength        int16      `json:"MinLength"`
	Length           int16      `json:"Length"`
	MissingAttribute []string   `json:"Missing"`

	RepeatingFieldSet1Size       int8 `json:"RepeatingFieldSet1Size"`
	RepeatingFieldSet1StartField int8 `json:"RepeatingFieldSet1StartField"`
	RepeatingFieldSet1CountField int8 `json:"RepeatingFieldSet1CountField"`

	RepeatingFieldSet2Size       int8 `json:"RepeatingFieldSet2Size"`
	RepeatingFieldSet2StartField int8 `json:"RepeatingFieldSet2StartField"`
	RepeatingFieldSet2CountField int8 `json:"RepeatingFieldSet2CountField"`

	TransmissionInterval  int16 `json:"TransmissionInterval"`
	TransmissionIrregular bool  `json:"TransmissionIrregular"`

	Fields []Field `json:"Fields"`

	// IsMatchable is set by UnmarshalJSON when any field carries a Match
	// value, i.e. this PGN number has more than one field-set variant.
	IsMatchable bool
}

// UnmarshalJSON also derives IsMatchable from the parsed Fields.
func (p *PGN) UnmarshalJSON(b []byte) error {
	type tmpPGN PGN
	if err := json.Unmarshal(b, (*tmpPGN)(p)); err != nil {
		return err
	}
	for _, f := range p.Fields {
		if f.Match != 0 {
			p.IsMatchable = true
			break
		}
	}
	return nil
}

// Field is one manifest field definition within a PGN.
type Field struct {
	ID          string `json:"Id"`
	Order       int8   `json:"Order"`
	Name        string `json:"Name"`
	Description string `json:"Description"`

	Condition        string `json:"Condition"`
	Match            int32  `json:"Match"`
	Unit             string `json:"Unit"`
	Format           string `json:"Format"`
	PhysicalQuantity string `json:"PhysicalQuantity"`

	BitLength         uint16  `json:"BitLength"`
	BitOffset         uint16  `json:"BitOffset"`
	BitLengthVariable bool    `json:"BitLengthVariable"`
	Signed            bool    `json:"Signed"`
	Offset            int32   `json:"Offset"`
	Resolution        float64 `json:"Resolution"` // result = Offset + (parsedValue * Resolution)
	RangeMin          float64 `json:"RangeMin"`
	RangeMax          float64 `json:"RangeMax"`

	FieldType                           FieldType `json:"FieldType"`
	LookupEnumeration                   string    `json:"LookupEnumeration"`
	LookupBitEnumeration                string    `json:"LookupBitEnumeration"`
	LookupIndirectEnumeration           string    `json:"LookupIndirectEnumeration"`
	LookupIndirectEnumerationFieldOrder int8      `json:"LookupIndirectEnumerationFieldOrder"`
}

// Validate checks manifest invariants n2kgen relies on before it will
// attempt to map a field onto an n2k.FieldKind.
func (f *Field) Validate() error {
	switch f.FieldType {
	case FieldTypeStringLAU:
		if !f.BitLengthVariable {
			return fmt.Errorf("field id: %v of type STRING_LAU is not BitLengthVariable", f.ID)
		}
		if f.BitLength != 0 || f.BitOffset != 0 {
			return fmt.Errorf("field id: %v should have BitLength=0 and BitOffset=0", f.ID)
		}
	case FieldTypeMMSI:
		if f.BitLength != 32 {
			return fmt.Errorf("field id: %v of type MMSI bit length is not 32 is %v", f.ID, f.BitLength)
		}
	case FieldTypeDate:
		if f.BitLength != 16 {
			return fmt.Errorf("field id: %v of type DATE bit length is not 16 is %v", f.ID, f.BitLength)
		}
	case FieldTypeLookup:
		if f.LookupEnumeration == "" {
			return fmt.Errorf("field id: %v of type %v has empty LookupEnumeration field", f.ID, FieldTypeLookup)
		}
	case FieldTypeIndirectLookup:
		if f.LookupIndirectEnumeration == "" {
			return fmt.Errorf("field id: %v of type %v has empty LookupIndirectEnumeration field", f.ID, FieldTypeIndirectLookup)
		}
	case FieldTypeBitLookup:
		if f.LookupBitEnumeration == "" {
			return fmt.Errorf("field id: %v of type %v has empty LookupBitEnumeration field", f.ID, FieldTypeBitLookup)
		}
	}
	return nil
}
