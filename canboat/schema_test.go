package canboat

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

const sampleManifest = `{
	"Comment": "sample",
	"PGNs": [
		{
			"PGN": 128267,
			"Id": "waterDepth",
			"Type": "Single",
			"Length": 9,
			"Fields": [
				{"Id": "sid", "Order": 1, "BitLength": 8, "FieldType": "NUMBER"},
				{"Id": "depth", "Order": 2, "BitLength": 32, "Resolution": 0.01, "FieldType": "NUMBER"}
			]
		}
	],
	"LookupEnumerations": [
		{"Name": "YES_NO", "EnumValues": [{"Name": "No", "Value": 0}, {"Name": "Yes", "Value": 1}]}
	]
}`

func TestLoadSchema(t *testing.T) {
	fsys := fstest.MapFS{"pgns.json": {Data: []byte(sampleManifest)}}

	schema, err := LoadSchema(fsys, "pgns.json")
	assert.NoError(t, err)
	assert.Len(t, schema.PGNs, 1)
	assert.Equal(t, uint32(128267), schema.PGNs[0].PGN)
	assert.Equal(t, PacketTypeSingle, schema.PGNs[0].Type)
	assert.Equal(t, FieldTypeNumber, schema.PGNs[0].Fields[0].FieldType)
	assert.True(t, schema.Enums.Exists("YES_NO"))
}

func TestLoadSchema_MissingFile(t *testing.T) {
	fsys := fstest.MapFS{}
	_, err := LoadSchema(fsys, "missing.json")
	assert.Error(t, err)
}

func TestFieldType_UnmarshalJSON_Unknown(t *testing.T) {
	var ft FieldType
	err := ft.UnmarshalJSON([]byte(`"NOT_A_TYPE"`))
	assert.Error(t, err)
}

func TestField_Validate_LookupRequiresEnumeration(t *testing.T) {
	f := Field{ID: "x", FieldType: FieldTypeLookup}
	assert.Error(t, f.Validate())

	f.LookupEnumeration = "YES_NO"
	assert.NoError(t, f.Validate())
}

func TestField_Validate_DateRequires16Bits(t *testing.T) {
	f := Field{ID: "d", FieldType: FieldTypeDate, BitLength: 8}
	assert.Error(t, f.Validate())

	f.BitLength = 16
	assert.NoError(t, f.Validate())
}
