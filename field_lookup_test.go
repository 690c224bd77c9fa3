package n2k

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupDescriptor() *PGNDescriptor {
	return &PGNDescriptor{
		PGN:    0,
		Name:   "test lookup PGN",
		Length: 2,
		Fields: []FieldDescriptor{
			{
				ID: "state", Kind: FieldKindLookup, BitLength: 8,
				LookupEnum: "STATE",
				LookupValues: []EnumValue{
					{Value: 0, Name: "Off"},
					{Value: 1, Name: "On"},
				},
			},
			{
				ID: "flags", Kind: FieldKindBitLookup, BitLength: 8,
				LookupBitEnum: "FLAGS",
				LookupBitValues: []BitEnumValue{
					{Bit: 0, Name: "Alarm"},
					{Bit: 2, Name: "Fault"},
				},
			},
		},
	}
}

func TestDecodeLookup_KnownValue(t *testing.T) {
	desc := lookupDescriptor()
	msg, err := Decode(desc, []byte{0x01, 0x00})
	require.NoError(t, err)

	fv, ok := msg.Fields.FindByID("state")
	require.True(t, ok)
	got, ok := fv.Value.(LookupValue)
	require.True(t, ok)
	assert.True(t, got.Known)
	assert.Equal(t, "On", got.Enum.Name)
}

func TestDecodeLookup_UnknownValueRoundTrips(t *testing.T) {
	desc := lookupDescriptor()
	msg, err := Decode(desc, []byte{0x05, 0x00})
	require.NoError(t, err)

	fv, _ := msg.Fields.FindByID("state")
	got := fv.Value.(LookupValue)
	assert.False(t, got.Known)
	assert.Equal(t, uint32(5), got.Raw)

	out := make([]byte, 2)
	n, err := Encode(desc, msg, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, byte(5), out[0])
}

func TestDecodeBitLookup_ResolvesSetBits(t *testing.T) {
	desc := lookupDescriptor()
	msg, err := Decode(desc, []byte{0x00, 0x05}) // bits 0 and 2 set
	require.NoError(t, err)

	fv, ok := msg.Fields.FindByID("flags")
	require.True(t, ok)
	flags, ok := fv.Value.([]EnumValue)
	require.True(t, ok)
	require.Len(t, flags, 2)
	assert.Equal(t, "Alarm", flags[0].Name)
	assert.Equal(t, "Fault", flags[1].Name)
}

func TestDecodeBitLookup_NoFlagsSet(t *testing.T) {
	desc := lookupDescriptor()
	msg, err := Decode(desc, []byte{0x00, 0x00})
	require.NoError(t, err)

	fv, ok := msg.Fields.FindByID("flags")
	require.True(t, ok)
	assert.Nil(t, fv.Value)
}

func TestEncodeBitLookup_SetsFlagBits(t *testing.T) {
	desc := lookupDescriptor()
	msg := Message{Fields: FieldValues{
		{ID: "state", Kind: FieldKindLookup, Value: LookupValue{Known: true, Enum: EnumValue{Value: 1, Name: "On"}}},
		{ID: "flags", Kind: FieldKindBitLookup, Value: []EnumValue{{Value: 2, Name: "Fault"}}},
	}}
	out := make([]byte, 2)
	n, err := Encode(desc, msg, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, byte(1), out[0])
	assert.Equal(t, byte(0x04), out[1])
}

func indirectLookupDescriptor() *PGNDescriptor {
	return &PGNDescriptor{
		PGN:    0,
		Name:   "test indirect lookup PGN",
		Length: 2,
		Fields: []FieldDescriptor{
			{ID: "type", Kind: FieldKindNumber, BitLength: 8, Order: 1},
			{
				ID: "subType", Kind: FieldKindIndirectLookup, BitLength: 8, Order: 2,
				LookupIndirectEnum:       "SUBTYPE",
				LookupIndirectFieldOrder: 1,
				LookupIndirectValues: []IndirectEnumValue{
					{Value: 0, IndirectValue: 1, Name: "TypeOneZero"},
					{Value: 0, IndirectValue: 2, Name: "TypeTwoZero"},
				},
			},
		},
	}
}

func TestDecodeIndirectLookup_ResolvesAgainstOtherField(t *testing.T) {
	desc := indirectLookupDescriptor()
	msg, err := Decode(desc, []byte{0x02, 0x00})
	require.NoError(t, err)

	fv, ok := msg.Fields.FindByID("subType")
	require.True(t, ok)
	got := fv.Value.(LookupValue)
	assert.True(t, got.Known)
	assert.Equal(t, "TypeTwoZero", got.Enum.Name)
}

func TestDecodeIndirectLookup_DifferentKeyResolvesDifferently(t *testing.T) {
	desc := indirectLookupDescriptor()
	msg, err := Decode(desc, []byte{0x01, 0x00})
	require.NoError(t, err)

	fv, _ := msg.Fields.FindByID("subType")
	got := fv.Value.(LookupValue)
	assert.True(t, got.Known)
	assert.Equal(t, "TypeOneZero", got.Enum.Name)
}

func TestDecodeIndirectLookup_UnresolvedKeyLeavesRawValue(t *testing.T) {
	desc := indirectLookupDescriptor()
	msg, err := Decode(desc, []byte{0x09, 0x00})
	require.NoError(t, err)

	fv, _ := msg.Fields.FindByID("subType")
	got := fv.Value.(LookupValue)
	assert.False(t, got.Known)
	assert.Equal(t, uint32(0), got.Raw)
}
