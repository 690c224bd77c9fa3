package n2k

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName_RoundTrip(t *testing.T) {
	n := Name{
		IdentityNumber:          0x1A2B3,
		ManufacturerCode:        0x3FF,
		ECUInstance:             5,
		FunctionInstance:        17,
		DeviceFunction:          130,
		DeviceClass:             60,
		SystemInstance:          9,
		IndustryGroup:           4,
		ArbitraryAddressCapable: true,
	}

	got, err := ParseName(n.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestName_Uint64ArbitrationOrder(t *testing.T) {
	lower := Name{IdentityNumber: 0x1111}
	higher := Name{IdentityNumber: 0x2222}

	assert.Less(t, lower.Uint64(), higher.Uint64())
}

func TestParseName_WrongLength(t *testing.T) {
	_, err := ParseName([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidField)
}
