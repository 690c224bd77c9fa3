// Package addressmgr implements the ISO 11783-5 claim-and-defend protocol
// that arbitrates a node's 8-bit source address.
package addressmgr

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/halyard-n2k/n2k"
)

// ErrNotClaimed is returned by SendPGN/SendPayload when the manager has not
// yet won a source address.
var ErrNotClaimed = errors.New("addressmgr: source address not claimed")

// ContentionWindow is how long a Claiming manager waits for a higher
// priority conflicting claim before considering the address won.
const ContentionWindow = 250 * time.Millisecond

// State is one stage of the claim-and-defend state machine.
type State uint8

const (
	Unclaimed State = iota
	Claiming
	Claimed
	Lost
)

func (s State) String() string {
	switch s {
	case Unclaimed:
		return "unclaimed"
	case Claiming:
		return "claiming"
	case Claimed:
		return "claimed"
	case Lost:
		return "lost"
	}
	return "unknown"
}

// Manager runs the address claim state machine for one local device name.
// It is single-threaded: callers (normally the supervisor) serialize calls
// to Start/OnFrame/Tick/SendPGN/SendPayload.
type Manager struct {
	name        n2k.Name
	preferredSA uint8

	state         State
	sa            uint8
	claimDeadline time.Time
	seq           uint8
	triedSAs      [252]bool
}

// New creates a manager for name, preferring sa as the first address to
// claim.
func New(name n2k.Name, preferredSA uint8) *Manager {
	return &Manager{name: name, preferredSA: preferredSA, state: Unclaimed, sa: n2k.AddressNull}
}

func (m *Manager) State() State         { return m.state }
func (m *Manager) SourceAddress() uint8 { return m.sa }
func (m *Manager) Name() n2k.Name       { return m.name }

// Start transitions to Claiming, broadcasting an ISO Address Claim for the
// preferred source address and arming the contention window.
func (m *Manager) Start(now time.Time) []n2k.Frame {
	m.sa = m.preferredSA
	m.state = Claiming
	m.claimDeadline = now.Add(ContentionWindow)
	return []n2k.Frame{m.claimFrame()}
}

func (m *Manager) claimFrame() n2k.Frame {
	var f n2k.Frame
	f.Header = n2k.Header{PGN: n2k.PGNISOAddressClaim, Priority: 6, Source: m.sa, Destination: n2k.AddressGlobal}
	f.Length = 8
	copy(f.Data[:], m.name.Bytes())
	return f
}

// OnFrame processes one received PGN and returns any frames the manager
// wants emitted in response (a rebroadcast claim, a fresh claim at a new
// candidate SA, or an answer to an address claim request).
func (m *Manager) OnFrame(raw n2k.RawMessage, now time.Time) ([]n2k.Frame, error) {
	switch raw.Header.PGN {
	case n2k.PGNISOAddressClaim:
		return m.onClaim(raw, now)
	case n2k.PGNISORequest:
		return m.onRequest(raw)
	}
	return nil, nil
}

func (m *Manager) onClaim(raw n2k.RawMessage, now time.Time) ([]n2k.Frame, error) {
	if raw.Header.Source != m.sa && raw.Header.Source < 252 {
		m.triedSAs[raw.Header.Source] = true // held by another device
	}
	if m.state != Claiming && m.state != Claimed {
		return nil, nil
	}
	if raw.Header.Source != m.sa {
		return nil, nil // contention over a different address, not ours
	}
	theirName, err := n2k.ParseName(raw.Data)
	if err != nil {
		return nil, nil
	}
	if m.name.Uint64() < theirName.Uint64() {
		// Our NAME wins; reassert ownership and make the other device move.
		return []n2k.Frame{m.claimFrame()}, nil
	}
	return m.loseArbitration(now)
}

// loseArbitration records the address as tried and parks the manager in
// Lost. The next Tick resolves Lost into either a fresh claim at the next
// candidate address or, if none remain (or the name cannot self-reassign),
// Unclaimed -- the same outcome as before, just observable as a distinct
// intermediate state instead of jumping straight there.
func (m *Manager) loseArbitration(now time.Time) ([]n2k.Frame, error) {
	m.triedSAs[m.sa] = true
	m.state = Lost
	m.sa = n2k.AddressNull
	return nil, nil
}

// retryAfterLoss picks the next candidate address and resumes claiming, or
// gives up and goes Unclaimed.
func (m *Manager) retryAfterLoss(now time.Time) []n2k.Frame {
	if !m.name.ArbitraryAddressCapable {
		m.state = Unclaimed
		return nil
	}
	next, ok := m.nextCandidateSA()
	if !ok {
		m.state = Unclaimed
		return nil
	}
	m.sa = next
	m.state = Claiming
	m.claimDeadline = now.Add(ContentionWindow)
	return []n2k.Frame{m.claimFrame()}
}

// nextCandidateSA scans 0..=251 starting at preferred+1, wrapping, skipping
// addresses already tried this session and addresses seen claimed by
// another device.
func (m *Manager) nextCandidateSA() (uint8, bool) {
	for i := 1; i <= 252; i++ {
		candidate := uint8((int(m.preferredSA) + i) % 252)
		if !m.triedSAs[candidate] {
			return candidate, true
		}
	}
	return 0, false
}

func (m *Manager) onRequest(raw n2k.RawMessage) ([]n2k.Frame, error) {
	if m.state != Claimed {
		return nil, nil
	}
	if raw.Header.Destination != m.sa && raw.Header.Destination != n2k.AddressGlobal {
		return nil, nil
	}
	requested, err := decodeRequestedPGN(raw.Data)
	if err != nil || requested != n2k.PGNISOAddressClaim {
		return nil, nil
	}
	return []n2k.Frame{m.claimFrame()}, nil
}

func decodeRequestedPGN(data []byte) (uint32, error) {
	if len(data) < 3 {
		return 0, n2k.ErrTruncated
	}
	b := append(append([]byte{}, data[:3]...), 0)
	return binary.LittleEndian.Uint32(b), nil
}

// Tick advances timers: a Claiming manager whose contention window has
// elapsed without a higher-priority conflict becomes Claimed, and a manager
// that just Lost arbitration resolves into its next claim attempt (or gives
// up). Any frames returned should be emitted the same way OnFrame's are.
func (m *Manager) Tick(now time.Time) []n2k.Frame {
	switch m.state {
	case Claiming:
		if !now.Before(m.claimDeadline) {
			m.state = Claimed
		}
	case Lost:
		return m.retryAfterLoss(now)
	}
	return nil
}

// SendPayload assembles pre-serialized payload bytes into frames addressed
// from our claimed SA. It fails with ErrNotClaimed outside the Claimed
// state.
func (m *Manager) SendPayload(payload []byte, pgn uint32, destination uint8, priority uint8) ([]n2k.Frame, error) {
	if m.state != Claimed {
		return nil, ErrNotClaimed
	}
	h := n2k.Header{PGN: pgn, Priority: priority, Source: m.sa, Destination: destination}
	m.seq = (m.seq + 1) & 0x7
	return n2k.BuildFrames(h, payload, m.seq)
}

// SendPGN encodes msg against desc and sends it to destination.
func (m *Manager) SendPGN(desc *n2k.PGNDescriptor, msg n2k.Message, destination uint8) ([]n2k.Frame, error) {
	if m.state != Claimed {
		return nil, ErrNotClaimed
	}
	buf := make([]byte, n2k.FastPacketMaxPayload)
	n, err := n2k.Encode(desc, msg, buf)
	if err != nil {
		return nil, err
	}
	return m.SendPayload(buf[:n], desc.PGN, destination, desc.Priority)
}
