package canboat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupEnumerations_Find(t *testing.T) {
	enums := LookupEnumerations{
		{Name: "YES_NO", Values: []EnumValue{{Value: 0, Name: "No"}, {Value: 1, Name: "Yes"}}},
	}

	got, ok := enums.Find("YES_NO")
	assert.True(t, ok)
	assert.Equal(t, []EnumValue{{Value: 0, Name: "No"}, {Value: 1, Name: "Yes"}}, got.Values)

	_, ok = enums.Find("MISSING")
	assert.False(t, ok)
}

func TestLookupBitEnumerations_Find(t *testing.T) {
	enums := LookupBitEnumerations{
		{Name: "ALARM_FLAGS", Values: []BitEnumValue{{Bit: 0, Name: "Alarm"}, {Bit: 2, Name: "Fault"}}},
	}

	got, ok := enums.Find("ALARM_FLAGS")
	assert.True(t, ok)
	assert.Len(t, got.Values, 2)
	assert.True(t, enums.Exists("ALARM_FLAGS"))
	assert.False(t, enums.Exists("MISSING"))
}

func TestLookupIndirectEnumerations_Find(t *testing.T) {
	enums := LookupIndirectEnumerations{
		{Name: "SUBTYPE", Values: []IndirectEnumValue{{Value: 0, IndirectValue: 1, Name: "TypeOneZero"}}},
	}

	got, ok := enums.Find("SUBTYPE")
	assert.True(t, ok)
	assert.Equal(t, uint32(1), got.Values[0].IndirectValue)
}
