package pgns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionRapidUpdate_Encode(t *testing.T) {
	p := PositionRapidUpdate{Latitude: 47.7223, Longitude: -4.0022}
	got := p.Encode()
	assert.Equal(t, [8]byte{0x58, 0xD8, 0x71, 0x1C, 0x10, 0x50, 0x9D, 0xFD}, got)
}

func TestPositionRapidUpdate_DecodeRoundTrip(t *testing.T) {
	p := PositionRapidUpdate{Latitude: 47.7223, Longitude: -4.0022}
	raw := p.Encode()
	got, err := DecodePositionRapidUpdate(raw[:])
	assert.NoError(t, err)
	assert.InDelta(t, 47.7223, got.Latitude, 1e-7)
	assert.InDelta(t, -4.0022, got.Longitude, 1e-7)
}

func TestWaterDepth_Decode(t *testing.T) {
	raw := []byte{0x01, 0x48, 0x14, 0x00, 0x00, 0xF4, 0x01, 0x00, 0x00}
	got, err := DecodeWaterDepth(raw)
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), got.SID)
	assert.InDelta(t, 51.92, got.Depth, 0.001)
	assert.InDelta(t, 0.5, got.Offset, 0.001)
	assert.Equal(t, uint8(0), got.Range)
}

func TestISORequest_RoundTrip(t *testing.T) {
	r := ISORequest{RequestedPGN: 60928}
	encoded := r.Encode()
	got, err := DecodeISORequest(encoded[:])
	assert.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecodeWaterDepth_Truncated(t *testing.T) {
	_, err := DecodeWaterDepth([]byte{0x01, 0x02})
	assert.Error(t, err)
}
