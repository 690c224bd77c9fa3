package addressmapper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halyard-n2k/n2k"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []n2k.RawMessage
}

func (w *recordingWriter) WriteMessage(_ context.Context, msg n2k.RawMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msg)
	return nil
}

func (w *recordingWriter) Messages() []n2k.RawMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]n2k.RawMessage, len(w.messages))
	copy(out, w.messages)
	return out
}

func addressClaimMessage(source uint8, name n2k.Name) n2k.RawMessage {
	return n2k.RawMessage{
		Header: n2k.Header{PGN: n2k.PGNISOAddressClaim, Source: source, Destination: n2k.AddressGlobal},
		Data:   name.Bytes(),
	}
}

func TestMapper_ProcessAddressClaim_AddsNode(t *testing.T) {
	m := New(&recordingWriter{})
	name := n2k.Name{IdentityNumber: 42, ManufacturerCode: 135, DeviceFunction: 130}

	changed, err := m.Process(addressClaimMessage(35, name))
	require.NoError(t, err)
	assert.True(t, changed)

	nodes := m.NodesInUseBySource()
	node, ok := nodes[35]
	require.True(t, ok)
	assert.True(t, node.ValidName)
	assert.Equal(t, name.Uint64(), node.NAME)
}

func TestMapper_ProcessAddressClaim_LowerNameWinsArbitration(t *testing.T) {
	m := New(&recordingWriter{})
	high := n2k.Name{IdentityNumber: 100}
	low := n2k.Name{IdentityNumber: 1}

	_, err := m.Process(addressClaimMessage(10, high))
	require.NoError(t, err)
	_, err = m.Process(addressClaimMessage(10, low))
	require.NoError(t, err)

	nodes := m.NodesInUseBySource()
	node, ok := nodes[10]
	require.True(t, ok)
	assert.Equal(t, low.Uint64(), node.NAME)
}

func TestMapper_ProcessProductInfo_IgnoredWithoutPriorAddressClaim(t *testing.T) {
	m := New(&recordingWriter{})

	changed, err := m.Process(n2k.RawMessage{
		Header: n2k.Header{PGN: n2k.PGNProductInfo, Source: 35},
		Data:   make([]byte, 134),
	})
	require.NoError(t, err)
	assert.False(t, changed)

	nodes := m.NodesInUseBySource()
	_, ok := nodes[35]
	assert.False(t, ok)
}

func TestMapper_BroadcastISOAddressClaimRequest_Queues(t *testing.T) {
	writer := &recordingWriter{}
	m := New(writer)
	m.SetWriteEnabled(true)

	m.BroadcastISOAddressClaimRequest()

	select {
	case msg := <-m.requests:
		assert.Equal(t, n2k.PGNISORequest, msg.Header.PGN)
		assert.Equal(t, n2k.AddressGlobal, msg.Header.Destination)
	default:
		t.Fatal("expected a queued request")
	}
}

func TestMapper_Run_DrainsRequestsToWriter(t *testing.T) {
	writer := &recordingWriter{}
	m := New(writer)
	m.SetWriteEnabled(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	m.requests <- n2k.RawMessage{Header: n2k.Header{PGN: n2k.PGNISORequest}}

	assert.Eventually(t, func() bool {
		return len(writer.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestQueue_EnqueueDequeueFIFO(t *testing.T) {
	q := newQueue[int](2)
	assert.True(t, q.Enqueue(1))
	assert.True(t, q.Enqueue(2))
	assert.False(t, q.Enqueue(3))

	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}
