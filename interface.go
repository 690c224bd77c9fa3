package n2k

import (
	"context"
	"time"
)

// Driver is the contract a CAN transport (SocketCAN, or an Actisense NGT-1
// over serial) must satisfy to plug into the supervisor.
type Driver interface {
	ReadFrame(ctx context.Context) (RawFrame, error)
	WriteFrame(Frame) error
	Initialize() error
	Close() error
}

// Timer abstracts wall-clock access. The Address Manager and the Fast Packet
// assembler do not use it: they take the current time as an argument.
type Timer interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}
