// Package replay reads and writes the CANboat plain-text capture format,
// one reassembled message per line:
//
//	time,priority,pgn,source,destination,length,data...
//
// It is used to record bus traffic for later playback against the codec
// and address manager without a CAN interface present.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/halyard-n2k/n2k"
)

// Reader replays recorded messages from an io.Reader, one per line.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r for line-oriented replay.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// ReadMessage returns the next recorded message, or io.EOF once exhausted.
// Blank lines and lines starting with '#' are skipped.
func (rd *Reader) ReadMessage(ctx context.Context) (n2k.RawMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return n2k.RawMessage{}, err
		}
		if !rd.scanner.Scan() {
			if err := rd.scanner.Err(); err != nil {
				return n2k.RawMessage{}, err
			}
			return n2k.RawMessage{}, io.EOF
		}
		line := strings.TrimSpace(rd.scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		return UnmarshalMessage(line)
	}
}

// UnmarshalMessage parses one CANboat-format capture line.
func UnmarshalMessage(raw string) (n2k.RawMessage, error) {
	// 2021-07-29T10:18:31.758Z,6,126208,36,0,7,02,82,ff,00,10,02,00
	// time                     ,prio,pgn,src,dst,len,data...
	parts := strings.Split(raw, ",")
	if len(parts) < 7 {
		return n2k.RawMessage{}, errors.New("replay: capture line has fewer components than expected")
	}

	dataLen, err := strconv.ParseUint(parts[5], 10, 16)
	if err != nil {
		return n2k.RawMessage{}, fmt.Errorf("replay: invalid data length: %w", err)
	}
	if len(parts)-6 != int(dataLen) {
		return n2k.RawMessage{}, errors.New("replay: data length does not match byte count")
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return n2k.RawMessage{}, fmt.Errorf("replay: invalid time: %w", err)
	}
	priority, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return n2k.RawMessage{}, fmt.Errorf("replay: invalid priority: %w", err)
	}
	pgn, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return n2k.RawMessage{}, fmt.Errorf("replay: invalid PGN: %w", err)
	}
	source, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return n2k.RawMessage{}, fmt.Errorf("replay: invalid source: %w", err)
	}
	destination, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return n2k.RawMessage{}, fmt.Errorf("replay: invalid destination: %w", err)
	}
	data, err := hex.DecodeString(strings.Join(parts[6:], ""))
	if err != nil {
		return n2k.RawMessage{}, fmt.Errorf("replay: invalid hex payload: %w", err)
	}

	return n2k.RawMessage{
		Time: t.UTC(),
		Header: n2k.Header{
			PGN:         uint32(pgn),
			Priority:    uint8(priority),
			Source:      uint8(source),
			Destination: uint8(destination),
		},
		Data: data,
	}, nil
}

// MarshalMessage renders a message as one CANboat-format capture line,
// without a trailing newline.
func MarshalMessage(m n2k.RawMessage) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(m.Time.Format(time.RFC3339Nano))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(m.Header.Priority)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(m.Header.PGN)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(m.Header.Source)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(m.Header.Destination)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(len(m.Data)))
	for _, b := range m.Data {
		if _, err := fmt.Fprintf(buf, ",%02x", b); err != nil {
			return nil, fmt.Errorf("replay: marshal message: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Writer appends recorded messages to an io.Writer, one per line.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for line-oriented recording.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteMessage appends m as one capture line terminated with a newline.
func (wr *Writer) WriteMessage(m n2k.RawMessage) error {
	line, err := MarshalMessage(m)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = wr.w.Write(line)
	return err
}
