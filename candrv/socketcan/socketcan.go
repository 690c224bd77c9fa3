// Package socketcan implements n2k.Driver over a Linux SocketCAN raw
// socket.
package socketcan

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/halyard-n2k/n2k"
)

const (
	canRaw = 1

	// canIDMask clears the ERR/RTR/EFF flag bits SocketCAN ORs into the
	// 32-bit CAN ID word, leaving the 29-bit identifier.
	canIDMask = uint32(0b111) << 29
	canIDERRFlag = uint32(1 << 29)
	canIDRTRFlag = uint32(1 << 30)
	canIDEFFFlag = uint32(1 << 31)
)

// Connection is a raw CAN socket bound to one network interface (e.g. can0).
type Connection struct {
	socketFD int
	timeNow  func() time.Time
}

// New binds a raw CAN_RAW socket to ifName. The socket's read timeout is set
// short so ReadFrame can poll ctx.Done() between reads.
func New(ifName string) (*Connection, error) {
	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("socketcan: bad interface %q: %w", ifName, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("socketcan: create socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %q: %w", ifName, err)
	}

	c := &Connection{socketFD: fd, timeNow: time.Now}
	if err := c.SetReadTimeout(200 * time.Millisecond); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socketcan: set read timeout: %w", err)
	}
	return c, nil
}

// Initialize is a no-op; the socket is ready to use once New returns.
func (c *Connection) Initialize() error { return nil }

func (c *Connection) Close() error { return unix.Close(c.socketFD) }

func (c *Connection) SetReadTimeout(timeout time.Duration) error {
	return c.setSocketTimeout(unix.SO_RCVTIMEO, timeout)
}

func (c *Connection) setSocketTimeout(opt int, timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	return unix.SetsockoptTimeval(c.socketFD, unix.SOL_SOCKET, opt, &tv)
}

func isContinuableSocketErr(err error) bool {
	return err == syscall.EWOULDBLOCK || err == syscall.EINTR
}

var errReadTimeout = errors.New("socketcan: read timeout")

// WriteFrame encodes fr as a 16-byte SocketCAN frame struct and writes it.
func (c *Connection) WriteFrame(fr n2k.Frame) error {
	canFrame := make([]byte, 16)
	canID := fr.Header.Uint32() | canIDEFFFlag
	binary.LittleEndian.PutUint32(canFrame[0:4], canID)
	canFrame[4] = fr.Length
	copy(canFrame[8:], fr.Data[:fr.Length])

	_, err := unix.Write(c.socketFD, canFrame)
	if isContinuableSocketErr(err) {
		return errReadTimeout
	}
	return err
}

// ReadFrame blocks until a frame arrives, the read timeout elapses (in
// which case it retries), or ctx is done.
func (c *Connection) ReadFrame(ctx context.Context) (n2k.RawFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return n2k.RawFrame{}, err
		}
		canFrame := make([]byte, 16)
		_, err := unix.Read(c.socketFD, canFrame)
		if err != nil {
			if isContinuableSocketErr(err) {
				continue
			}
			return n2k.RawFrame{}, err
		}
		canID := binary.LittleEndian.Uint32(canFrame[0:4])
		if canID&canIDRTRFlag != 0 || canID&canIDERRFlag != 0 {
			continue // skip RTR / error frames, keep polling
		}

		f := n2k.RawFrame{
			Time:   c.timeNow(),
			Header: n2k.ParseCANID(canID &^ canIDMask),
			Length: canFrame[4],
		}
		copy(f.Data[:], canFrame[8:8+f.Length])
		return f, nil
	}
}
