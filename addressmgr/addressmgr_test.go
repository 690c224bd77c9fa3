package addressmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/halyard-n2k/n2k"
)

func TestManager_Start(t *testing.T) {
	m := New(n2k.Name{IdentityNumber: 0x1111}, 35)
	now := time.Now()

	frames := m.Start(now)
	assert.Equal(t, Claiming, m.State())
	assert.Equal(t, uint8(35), m.SourceAddress())
	assert.Len(t, frames, 1)
	assert.Equal(t, n2k.PGNISOAddressClaim, frames[0].Header.PGN)
	assert.Equal(t, uint8(35), frames[0].Header.Source)
	assert.Equal(t, n2k.AddressGlobal, frames[0].Header.Destination)
}

func TestManager_Tick_ClaimsAfterContentionWindow(t *testing.T) {
	m := New(n2k.Name{IdentityNumber: 1}, 35)
	now := time.Now()
	m.Start(now)

	m.Tick(now.Add(ContentionWindow - time.Millisecond))
	assert.Equal(t, Claiming, m.State())

	m.Tick(now.Add(ContentionWindow))
	assert.Equal(t, Claimed, m.State())
}

// Node A (lower NAME) retains SA 35 after node B claims the same address --
// per spec.md's address-claim-win scenario.
func TestManager_OnClaim_WinsWithLowerName(t *testing.T) {
	m := New(n2k.Name{IdentityNumber: 0x1111}, 35)
	now := time.Now()
	m.Start(now)

	theirName := n2k.Name{IdentityNumber: 0x2222}
	conflict := n2k.RawMessage{
		Header: n2k.Header{PGN: n2k.PGNISOAddressClaim, Source: 35, Destination: n2k.AddressGlobal},
		Data:   theirName.Bytes(),
	}
	frames, err := m.OnFrame(conflict, now)
	assert.NoError(t, err)
	assert.Equal(t, uint8(35), m.SourceAddress())
	assert.Len(t, frames, 1) // rebroadcasts its claim
	assert.Equal(t, n2k.PGNISOAddressClaim, frames[0].Header.PGN)
}

func TestManager_OnClaim_LosesAndSearchesNextCandidate(t *testing.T) {
	m := New(n2k.Name{IdentityNumber: 0x2222, ArbitraryAddressCapable: true}, 35)
	now := time.Now()
	m.Start(now)

	theirName := n2k.Name{IdentityNumber: 0x1111}
	conflict := n2k.RawMessage{
		Header: n2k.Header{PGN: n2k.PGNISOAddressClaim, Source: 35, Destination: n2k.AddressGlobal},
		Data:   theirName.Bytes(),
	}
	frames, err := m.OnFrame(conflict, now)
	assert.NoError(t, err)
	assert.Equal(t, Lost, m.State())
	assert.Equal(t, n2k.AddressNull, m.SourceAddress())
	assert.Empty(t, frames)

	frames = m.Tick(now)
	assert.Equal(t, Claiming, m.State())
	assert.NotEqual(t, uint8(35), m.SourceAddress())
	assert.Len(t, frames, 1)
}

func TestManager_OnClaim_LosesAndGivesUpWhenNotArbitraryAddressCapable(t *testing.T) {
	m := New(n2k.Name{IdentityNumber: 0x2222, ArbitraryAddressCapable: false}, 35)
	now := time.Now()
	m.Start(now)

	theirName := n2k.Name{IdentityNumber: 0x1111}
	conflict := n2k.RawMessage{
		Header: n2k.Header{PGN: n2k.PGNISOAddressClaim, Source: 35, Destination: n2k.AddressGlobal},
		Data:   theirName.Bytes(),
	}
	frames, err := m.OnFrame(conflict, now)
	assert.NoError(t, err)
	assert.Equal(t, Lost, m.State())
	assert.Empty(t, frames)

	frames = m.Tick(now)
	assert.Equal(t, Unclaimed, m.State())
	assert.Equal(t, n2k.AddressNull, m.SourceAddress())
	assert.Empty(t, frames)
}

func TestManager_OnRequest_RespondsWithClaimWhenClaimed(t *testing.T) {
	m := New(n2k.Name{IdentityNumber: 1}, 35)
	now := time.Now()
	m.Start(now)
	m.Tick(now.Add(ContentionWindow))
	assert.Equal(t, Claimed, m.State())

	req := n2k.RawMessage{
		Header: n2k.Header{PGN: n2k.PGNISORequest, Source: 10, Destination: n2k.AddressGlobal},
		Data:   func() []byte { pgn := uint32(n2k.PGNISOAddressClaim); return []byte{byte(pgn), byte(pgn >> 8), byte(pgn >> 16)} }(),
	}
	frames, err := m.OnFrame(req, now)
	assert.NoError(t, err)
	assert.Len(t, frames, 1)
	assert.Equal(t, n2k.PGNISOAddressClaim, frames[0].Header.PGN)
}

func TestManager_SendPayload_RefusesUntilClaimed(t *testing.T) {
	m := New(n2k.Name{IdentityNumber: 1}, 35)
	_, err := m.SendPayload([]byte{1, 2, 3}, 130311, n2k.AddressGlobal, 5)
	assert.ErrorIs(t, err, ErrNotClaimed)
}
