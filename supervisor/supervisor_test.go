package supervisor

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/halyard-n2k/n2k"
	"github.com/halyard-n2k/n2k/addressmgr"
)

type fakeDriver struct {
	mu      sync.Mutex
	written []n2k.Frame
	in      chan n2k.RawFrame
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{in: make(chan n2k.RawFrame, 8)}
}

func (d *fakeDriver) ReadFrame(ctx context.Context) (n2k.RawFrame, error) {
	select {
	case f := <-d.in:
		return f, nil
	case <-ctx.Done():
		return n2k.RawFrame{}, ctx.Err()
	}
}

func (d *fakeDriver) WriteFrame(f n2k.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.written = append(d.written, f)
	return nil
}

func (d *fakeDriver) Initialize() error { return nil }
func (d *fakeDriver) Close() error      { return nil }

func (d *fakeDriver) writtenPGNs() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint32, len(d.written))
	for i, f := range d.written {
		out[i] = f.Header.PGN
	}
	return out
}

func TestSupervisor_ClaimsAddressAndSendsQueuedCommand(t *testing.T) {
	mgr := addressmgr.New(n2k.Name{IdentityNumber: 1}, 35)
	driver := newFakeDriver()
	log := zerolog.New(io.Discard)
	s := New(mgr, driver, nil, 4, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Give the supervisor time to broadcast the initial claim and for its
	// contention window to elapse (plus two ticks of slack).
	time.Sleep(ContentionWindowHint())

	req := SendPGNRequest{PGN: 126996, Destination: n2k.AddressGlobal, Priority: 6, Payload: []byte{1, 2, 3}, Done: make(chan error, 1)}
	s.Commands() <- req

	select {
	case err := <-req.Done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("command was never completed")
	}

	pgns := driver.writtenPGNs()
	assert.Contains(t, pgns, n2k.PGNISOAddressClaim)
	assert.Contains(t, pgns, uint32(126996))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}

// ContentionWindowHint gives tests a sleep duration comfortably past the
// Address Manager's contention window plus one supervisor tick.
func ContentionWindowHint() time.Duration {
	return addressmgr.ContentionWindow + 2*TickInterval
}
