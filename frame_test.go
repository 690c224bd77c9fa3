package n2k

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCANID(t *testing.T) {
	var testCases = []struct {
		name   string
		canID  uint32
		expect Header
	}{
		{
			name:  "ok, 0F001DA1",
			canID: 251665825,
			expect: Header{
				Priority:    3,
				PGN:         196608,
				Destination: 29,
				Source:      161,
			},
		},
		{
			name:  "ok, 0F101DB5",
			canID: 252714421,
			expect: Header{
				Priority:    3,
				PGN:         0x31000,
				Destination: 29,
				Source:      181,
			},
		},
		{
			name:  "ok, 0F0007B8",
			canID: 251660216,
			expect: Header{
				Priority:    3,
				PGN:         196608,
				Destination: 7,
				Source:      184,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := ParseCANID(tc.canID)
			assert.Equal(t, tc.expect, h)
		})
	}
}

func TestHeader_Uint32(t *testing.T) {
	var testCases = []struct {
		name   string
		when   Header
		expect uint32
	}{
		{
			name: "ok, 59904 ISO Request broadcast from null address",
			when: Header{
				PGN:         PGNISORequest,
				Priority:    6,
				Source:      AddressNull,
				Destination: AddressGlobal,
			},
			expect: 0x18eafffe,
		},
		{
			name: "ok, 130311 PDU2 destination folds into PGN",
			when: Header{
				PGN:         130311,
				Priority:    5,
				Source:      23,
				Destination: 255,
			},
			expect: 0x15fd0717,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.when.Uint32())
		})
	}
}

func TestParseCANID_Uint32_RoundTrip(t *testing.T) {
	h := Header{PGN: 60928, Priority: 6, Source: 35, Destination: AddressGlobal}
	got := ParseCANID(h.Uint32())
	assert.Equal(t, h, got)
}
