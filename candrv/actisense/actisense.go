// Package actisense drives an Actisense NGT-1/W2K-1 USB-to-CAN gateway
// using its DLE/STX/ETX-framed binary protocol. It implements n2k.Driver on
// top of an io.ReadWriter (typically a serial port), so the rest of the
// stack never distinguishes it from a raw SocketCAN connection.
package actisense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/halyard-n2k/n2k"
)

const (
	stx = 0x02
	etx = 0x03
	dle = 0x10

	cmdNGTReceived = 0x93
	cmdNGTSend     = 0x94
	cmdRawReceived = 0x95
	cmdRawSend     = 0x96
	cmdDeviceSend  = 0xA1
)

// Config tunes read timeouts and debug logging for a Connection.
type Config struct {
	// ReceiveDataTimeout bounds how long ReadFrame may see no data at all
	// before giving up (as opposed to a deadline on a single device Read).
	ReceiveDataTimeout time.Duration
}

// Connection drives an Actisense gateway over a serial-like stream.
type Connection struct {
	device io.ReadWriter
	config Config

	sleepFunc func(time.Duration)
	timeNow   func() time.Time
}

// New wraps device (typically an open serial port) as an n2k.Driver.
func New(device io.ReadWriter) *Connection {
	return NewWithConfig(device, Config{ReceiveDataTimeout: 5 * time.Second})
}

// NewWithConfig is New with an explicit Config.
func NewWithConfig(device io.ReadWriter, config Config) *Connection {
	if config.ReceiveDataTimeout <= 0 {
		config.ReceiveDataTimeout = 5 * time.Second
	}
	return &Connection{
		device:    device,
		config:    config,
		sleepFunc: time.Sleep,
		timeNow:   time.Now,
	}
}

// Initialize clears the gateway's PGN transmit filter so it forwards every
// PGN it sees on the bus, reverse engineered from Actisense's own NMEAreader
// tool.
func (c *Connection) Initialize() error {
	clearPGNFilter := []byte{
		cmdDeviceSend,
		3,
		0x11, // operating mode
		0x02, // receive all
		0x00,
	}
	return c.writeFramed(clearPGNFilter)
}

type parseState uint8

const (
	waitingStart parseState = iota
	readingBody
	escaping
)

// ReadFrame blocks until one CAN frame has been decoded from the gateway,
// the context is cancelled, or the connection has been silent past
// ReceiveDataTimeout.
func (c *Connection) ReadFrame(ctx context.Context) (n2k.RawFrame, error) {
	message := make([]byte, 64)
	idx := 0

	buf := make([]byte, 1)
	lastData := c.timeNow()
	var prev, cur byte

	state := waitingStart
	for {
		if err := ctx.Err(); err != nil {
			return n2k.RawFrame{}, err
		}

		n, err := c.device.Read(buf)
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			return n2k.RawFrame{}, err
		}

		now := c.timeNow()
		if n == 0 {
			if now.Sub(lastData) > c.config.ReceiveDataTimeout {
				return n2k.RawFrame{}, fmt.Errorf("actisense: no data for %s", c.config.ReceiveDataTimeout)
			}
			continue
		}
		lastData = now
		prev, cur = cur, buf[0]

		switch state {
		case waitingStart:
			if prev == dle && cur == stx {
				state = readingBody
			}
		case readingBody:
			if cur == dle {
				state = escaping
				continue
			}
			message[idx] = cur
			idx++
		case escaping:
			if cur == dle {
				state = readingBody
				message[idx] = cur
				idx++
				continue
			}
			if cur == etx {
				frame, ok, ferr := decodeFrame(message[:idx], now)
				state = waitingStart
				idx = 0
				if ferr != nil {
					return n2k.RawFrame{}, ferr
				}
				if ok {
					return frame, nil
				}
				continue
			}
			state = waitingStart
			idx = 0
		}
	}
}

func decodeFrame(raw []byte, now time.Time) (n2k.RawFrame, bool, error) {
	if len(raw) < 2 {
		return n2k.RawFrame{}, false, nil
	}
	switch raw[0] {
	case cmdNGTReceived, cmdNGTSend:
		return fromNGTBinary(raw, now)
	case cmdRawReceived, cmdRawSend:
		return fromRawActisense(raw, now)
	default:
		return n2k.RawFrame{}, false, nil // device-management message, not bus traffic
	}
}

func fromNGTBinary(raw []byte, now time.Time) (n2k.RawFrame, bool, error) {
	length := len(raw) - 2 // command(@0) + len(@1)
	data := raw[2:]
	if length < 11 {
		return n2k.RawFrame{}, false, errors.New("actisense: NGT binary message too short")
	}

	const dataIdx = 11
	l := data[10]
	end := dataIdx + int(l)
	if length != end+1 {
		return n2k.RawFrame{}, false, fmt.Errorf("actisense: NGT binary length mismatch, %d != %d", l, length-dataIdx)
	}
	if err := checkCRC(raw); err != nil {
		return n2k.RawFrame{}, false, err
	}

	header := n2k.Header{
		Priority:    data[0],
		PGN:         uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16,
		Destination: data[4],
		Source:      data[5],
	}
	var fr n2k.RawFrame
	fr.Time = now
	fr.Header = header
	fr.Length = l
	copy(fr.Data[:], data[dataIdx:end])
	return fr, true, nil
}

// fromRawActisense decodes the W2K-1 RAW Actisense format: cmd, length,
// 2-byte time counter, 4-byte little endian CAN ID, data, CRC.
func fromRawActisense(raw []byte, now time.Time) (n2k.RawFrame, bool, error) {
	if len(raw) < 8 {
		return n2k.RawFrame{}, false, errors.New("actisense: RAW message too short")
	}
	dLen := int(raw[1])
	if dLen+3 != len(raw) {
		return n2k.RawFrame{}, false, fmt.Errorf("actisense: RAW length mismatch, %d != %d", dLen, len(raw)-3)
	}
	if err := checkCRC(raw); err != nil {
		return n2k.RawFrame{}, false, err
	}

	canID := uint32(raw[4]) | uint32(raw[5])<<8 | uint32(raw[6])<<16 | uint32(raw[7])<<24
	header := n2k.ParseCANID(canID)
	payload := raw[8 : len(raw)-1]

	var fr n2k.RawFrame
	fr.Time = now
	fr.Header = header
	fr.Length = uint8(len(payload))
	copy(fr.Data[:], payload)
	return fr, true, nil
}

// WriteFrame sends frame to the bus using the NGT binary format.
func (c *Connection) WriteFrame(frame n2k.Frame) error {
	dataLen := int(frame.Length)
	buf := make([]byte, dataLen+8)
	buf[0] = cmdNGTSend
	buf[1] = byte(dataLen + 6)
	buf[2] = frame.Header.Priority
	buf[3] = byte(frame.Header.PGN)
	buf[4] = byte(frame.Header.PGN >> 8)
	buf[5] = byte(frame.Header.PGN >> 16)
	buf[6] = frame.Header.Destination
	buf[7] = byte(dataLen)
	copy(buf[8:], frame.Data[:dataLen])
	return c.writeFramed(buf)
}

func (c *Connection) writeFramed(data []byte) error {
	packet := make([]byte, 0, len(data)+4)
	packet = append(packet, dle, stx)
	for _, b := range data {
		if b == dle {
			packet = append(packet, dle)
		}
		packet = append(packet, b)
	}
	crcByte := byte(0) - crc(data)
	packet = append(packet, crcByte, dle, etx)

	total, written := len(packet), 0
	for retries := 0; written < total; {
		n, err := c.device.Write(packet[written:])
		written += n
		if err != nil {
			if !errors.Is(err, syscall.EAGAIN) {
				return fmt.Errorf("actisense: write failed: %w", err)
			}
			retries++
			if retries > 5 {
				return errors.New("actisense: write retries exhausted")
			}
			c.sleepFunc(250 * time.Millisecond)
		}
	}
	return nil
}

func checkCRC(data []byte) error {
	if crc(data) != 0 {
		return errors.New("actisense: invalid checksum")
	}
	return nil
}

// crc sums all bytes in data, plus command and length, to zero modulo 256.
func crc(data []byte) byte {
	sum := uint16(0)
	for _, b := range data {
		d := uint16(b)
		if sum+d > 255 {
			sum = d - (256 - sum)
			continue
		}
		sum += d
	}
	return byte(sum)
}

// Close closes the underlying device if it supports io.Closer.
func (c *Connection) Close() error {
	if closer, ok := c.device.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var _ n2k.Driver = (*Connection)(nil)
