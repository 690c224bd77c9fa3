package test_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halyard-n2k/n2k"
)

// AssertRawMessage compares two decoded messages field by field, tolerating
// floating point rounding in numeric fields up to delta. Repeating field
// groups, if any, are compared for exact equality, without the delta.
func AssertRawMessage(t *testing.T, expect n2k.Message, actual n2k.Message, delta float64) {
	AssertFieldValues(t, expect.Fields, actual.Fields, delta)
	assert.Equal(t, expect.Groups, actual.Groups)
}

// AssertFieldValues compares two field-value sets by ID, ignoring order.
func AssertFieldValues(t *testing.T, expect n2k.FieldValues, actual n2k.FieldValues, delta float64) {
	assert.Len(t, actual, len(expect))

	for _, actualFieldValue := range actual {
		expectedFieldValue, ok := expect.FindByID(actualFieldValue.ID)
		if !ok {
			t.Errorf("actual fields contains field with ID `%v` that is not in expected fields", actualFieldValue.ID)
			continue
		}
		AssertFieldValue(t, expectedFieldValue, actualFieldValue, delta)
	}
}

// AssertFieldValue compares a single field value, using InDelta for floats
// so resolution rounding doesn't cause spurious test failures.
func AssertFieldValue(t *testing.T, expect n2k.FieldValue, actual n2k.FieldValue, delta float64) {
	switch actual.Value.(type) {
	case float64:
		assert.InDelta(
			t,
			expect.Value,
			actual.Value,
			delta,
			"Field ID: `%v` value %v is different from expected %v",
			expect.ID,
			actual.Value,
			expect.Value,
		)
		expect.Value = nil
		actual.Value = nil
	}
	assert.Equal(t, expect, actual)
}
