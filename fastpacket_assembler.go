package n2k

import "time"

// ReassemblyTimeout is how long a Fast Packet stream may sit idle before
// the assembler evicts it and treats further frames for it as absent.
const ReassemblyTimeout = 750 * time.Millisecond

// DefaultAssemblerCapacity bounds the number of concurrent Fast Packet
// streams the assembler tracks. A full table is never a fatal error --
// the least-recently-used entry is evicted to make room.
const DefaultAssemblerCapacity = 16

type fastPacketEntry struct {
	inUse        bool
	source       uint8
	pgn          uint32
	seq          uint8
	length       uint8
	received     uint8
	expectedNext uint8
	lastActive   time.Time
	header       Header
	data         [FastPacketMaxPayload]byte
}

// FastPacketAssembler reassembles Fast Packet frames into RawMessages. It
// holds one fixed-size table of in-progress streams keyed by
// (source address, PGN); single-frame PGNs pass straight through.
type FastPacketAssembler struct {
	fastPacketPGNs map[uint32]bool
	entries        []fastPacketEntry
	now            func() time.Time
}

// NewFastPacketAssembler builds an assembler that treats the given PGNs as
// Fast Packet; any other PGN is assembled from a single frame.
func NewFastPacketAssembler(fastPacketPGNs []uint32) *FastPacketAssembler {
	set := make(map[uint32]bool, len(fastPacketPGNs))
	for _, pgn := range fastPacketPGNs {
		set[pgn] = true
	}
	return &FastPacketAssembler{
		fastPacketPGNs: set,
		entries:        make([]fastPacketEntry, DefaultAssemblerCapacity),
		now:            time.Now,
	}
}

// Assemble feeds one received frame into the assembler. It returns the
// completed message and true once the frame that finishes a sequence (or a
// single-frame PGN) arrives; otherwise it returns false while the stream is
// still in progress.
func (a *FastPacketAssembler) Assemble(frame RawFrame) (RawMessage, bool) {
	if !a.fastPacketPGNs[frame.Header.PGN] {
		data := make([]byte, frame.Length)
		copy(data, frame.Data[:frame.Length])
		return RawMessage{Time: frame.Time, Header: frame.Header, Data: data}, true
	}
	if frame.Length < 2 {
		return RawMessage{}, false
	}

	seq := frame.Data[0] >> 5
	k := frame.Data[0] & 0x1f

	e := a.find(frame.Header.Source, frame.Header.PGN)
	if k == 0 {
		if e == nil {
			e = a.allocate(frame.Header.Source, frame.Header.PGN)
		}
		e.seq = seq
		e.header = frame.Header
		e.length = frame.Data[1]
		n := int(e.length)
		if n > 6 {
			n = 6
		}
		copy(e.data[:n], frame.Data[2:2+n])
		e.received = uint8(n)
		e.expectedNext = 1
		e.lastActive = frame.Time
	} else {
		if e == nil || e.seq != seq || e.expectedNext != k || a.expired(e, frame.Time) {
			return RawMessage{}, false // reassembly only restarts on a new k==0
		}
		remaining := int(e.length) - int(e.received)
		n := 7
		if n > remaining {
			n = remaining
		}
		if n > 0 {
			copy(e.data[e.received:], frame.Data[1:1+n])
		}
		e.received += uint8(n)
		e.expectedNext++
		e.lastActive = frame.Time
	}

	if e.received < e.length {
		return RawMessage{}, false
	}
	data := make([]byte, e.length)
	copy(data, e.data[:e.length])
	msg := RawMessage{Time: e.lastActive, Header: e.header, Data: data}
	e.inUse = false
	return msg, true
}

func (a *FastPacketAssembler) expired(e *fastPacketEntry, now time.Time) bool {
	return now.Sub(e.lastActive) > ReassemblyTimeout
}

func (a *FastPacketAssembler) find(source uint8, pgn uint32) *fastPacketEntry {
	for i := range a.entries {
		e := &a.entries[i]
		if e.inUse && e.source == source && e.pgn == pgn {
			return e
		}
	}
	return nil
}

// allocate returns a free slot, evicting the least-recently-used in-use
// entry if the table is full.
func (a *FastPacketAssembler) allocate(source uint8, pgn uint32) *fastPacketEntry {
	for i := range a.entries {
		if !a.entries[i].inUse {
			e := &a.entries[i]
			*e = fastPacketEntry{inUse: true, source: source, pgn: pgn}
			return e
		}
	}
	lru := &a.entries[0]
	for i := range a.entries {
		if a.entries[i].lastActive.Before(lru.lastActive) {
			lru = &a.entries[i]
		}
	}
	*lru = fastPacketEntry{inUse: true, source: source, pgn: pgn}
	return lru
}
