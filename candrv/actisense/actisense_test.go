package actisense

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/halyard-n2k/n2k"
)

// loopDevice is an io.ReadWriter whose Read drains from in and whose Write
// appends to out, standing in for a serial port in tests.
type loopDevice struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (d *loopDevice) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *loopDevice) Write(p []byte) (int, error) { return d.out.Write(p) }

func encodeNGTFrame(priority uint8, pgn uint32, dst, src uint8, data []byte) []byte {
	inner := []byte{
		priority,
		byte(pgn), byte(pgn >> 8), byte(pgn >> 16),
		dst, src,
		0, 0, 0, 0, // timestamp, unused by the decoder
		byte(len(data)),
	}
	inner = append(inner, data...)

	body := append([]byte{cmdNGTReceived, byte(len(inner) + 2)}, inner...)
	crcByte := byte(0) - crc(body)

	packet := []byte{dle, stx}
	packet = append(packet, body...)
	packet = append(packet, crcByte, dle, etx)
	return packet
}

func TestConnection_ReadFrame_NGTBinary(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	raw := encodeNGTFrame(6, 130311, 255, 35, data)

	c := New(&loopDevice{in: bytes.NewReader(raw)})
	c.config.ReceiveDataTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	frame, err := c.ReadFrame(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint32(130311), frame.Header.PGN)
	assert.Equal(t, uint8(6), frame.Header.Priority)
	assert.Equal(t, uint8(35), frame.Header.Source)
	assert.Equal(t, uint8(255), frame.Header.Destination)
	assert.Equal(t, uint8(4), frame.Length)
	assert.Equal(t, data, frame.Data[:4])
}

func TestConnection_ReadFrame_ContextCancelled(t *testing.T) {
	c := New(&loopDevice{in: bytes.NewReader(nil)})
	c.config.ReceiveDataTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ReadFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnection_WriteFrame(t *testing.T) {
	dev := &loopDevice{in: bytes.NewReader(nil)}
	c := New(dev)

	frame := n2k.Frame{
		Header: n2k.Header{Priority: 3, PGN: 126996, Destination: n2k.AddressGlobal},
		Length: 3,
	}
	copy(frame.Data[:], []byte{0xAA, 0xBB, 0xCC})

	assert.NoError(t, c.WriteFrame(frame))
	written := dev.out.Bytes()
	assert.True(t, len(written) > 0)
	assert.Equal(t, byte(dle), written[0])
	assert.Equal(t, byte(stx), written[1])
	assert.Equal(t, byte(cmdNGTSend), written[2])
}

func TestConnection_Initialize(t *testing.T) {
	dev := &loopDevice{in: bytes.NewReader(nil)}
	c := New(dev)
	assert.NoError(t, c.Initialize())
	assert.True(t, dev.out.Len() > 0)
}
