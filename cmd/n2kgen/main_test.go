package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halyard-n2k/n2k/canboat"
)

func TestBuildDescriptors_LookupFieldCarriesEnumTable(t *testing.T) {
	entries := canboat.PGNs{
		{
			PGN: 1, ID: "testLookup", Type: canboat.PacketTypeSingle, Complete: true,
			Fields: []canboat.Field{
				{ID: "state", Order: 1, BitLength: 8, FieldType: canboat.FieldTypeLookup, LookupEnumeration: "STATE"},
			},
		},
	}
	enums := canboat.LookupEnumerations{
		{Name: "STATE", Values: []canboat.EnumValue{{Value: 0, Name: "Off"}, {Value: 1, Name: "On"}}},
	}

	descriptors, skipped := buildDescriptors(entries, enums, nil, nil)
	require.Empty(t, skipped)
	require.Len(t, descriptors, 1)
	require.Len(t, descriptors[0].Fields, 1)

	f := descriptors[0].Fields[0]
	assert.Equal(t, "STATE", f.LookupEnum)
	assert.Equal(t, []genEnumValue{{Value: 0, Name: "Off"}, {Value: 1, Name: "On"}}, f.LookupValues)
}

func TestBuildDescriptors_UnknownLookupEnumerationIsSkipped(t *testing.T) {
	entries := canboat.PGNs{
		{
			PGN: 1, ID: "testLookup", Type: canboat.PacketTypeSingle, Complete: true,
			Fields: []canboat.Field{
				{ID: "state", Order: 1, BitLength: 8, FieldType: canboat.FieldTypeLookup, LookupEnumeration: "MISSING"},
			},
		},
	}

	descriptors, skipped := buildDescriptors(entries, nil, nil, nil)
	assert.Empty(t, descriptors)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].reason, "MISSING")
}

func TestBuildDescriptors_IndirectLookupCarriesFieldOrderAndTable(t *testing.T) {
	entries := canboat.PGNs{
		{
			PGN: 1, ID: "testIndirect", Type: canboat.PacketTypeSingle, Complete: true,
			Fields: []canboat.Field{
				{ID: "typ", Order: 1, BitLength: 8, FieldType: canboat.FieldTypeNumber},
				{
					ID: "subType", Order: 2, BitLength: 8, FieldType: canboat.FieldTypeIndirectLookup,
					LookupIndirectEnumeration: "SUBTYPE", LookupIndirectEnumerationFieldOrder: 1,
				},
			},
		},
	}
	indirectEnums := canboat.LookupIndirectEnumerations{
		{Name: "SUBTYPE", Values: []canboat.IndirectEnumValue{{Value: 0, IndirectValue: 1, Name: "TypeOneZero"}}},
	}

	descriptors, skipped := buildDescriptors(entries, nil, nil, indirectEnums)
	require.Empty(t, skipped)
	require.Len(t, descriptors, 1)
	require.Len(t, descriptors[0].Fields, 2)

	f := descriptors[0].Fields[1]
	assert.Equal(t, int8(1), f.LookupIndirectFieldOrder)
	assert.Equal(t, []genIndirectEnumValue{{Value: 0, IndirectValue: 1, Name: "TypeOneZero"}}, f.LookupIndirectValues)
}
