// Package supervisor owns an addressmgr.Manager plus the command and frame
// channels an application uses to exchange PGNs with the bus.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/halyard-n2k/n2k"
	"github.com/halyard-n2k/n2k/addressmgr"
)

// TickInterval is how often the supervisor loop re-checks timers -- the
// Address Manager's own contention window is coarser, but this sets the
// loop's responsiveness to it and to queued commands.
const TickInterval = 50 * time.Millisecond

// SendPGNRequest asks the supervisor to transmit a pre-serialized payload.
// Done, if non-nil, receives the outcome once the request is either sent
// or dropped.
type SendPGNRequest struct {
	PGN         uint32
	Destination uint8
	Priority    uint8
	Payload     []byte
	Done        chan error
}

// Supervisor runs the cooperative select loop described for the Address
// Service: one command channel, one inbound frame channel, one tick timer.
type Supervisor struct {
	mgr       *addressmgr.Manager
	driver    n2k.Driver
	assembler *n2k.FastPacketAssembler
	commands  chan SendPGNRequest
	log       zerolog.Logger
}

// New builds a supervisor around mgr and driver. commandBuffer sizes the
// command channel; fastPacketPGNs lists the PGNs the assembler should treat
// as multi-frame.
func New(mgr *addressmgr.Manager, driver n2k.Driver, fastPacketPGNs []uint32, commandBuffer int, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		mgr:       mgr,
		driver:    driver,
		assembler: n2k.NewFastPacketAssembler(fastPacketPGNs),
		commands:  make(chan SendPGNRequest, commandBuffer),
		log:       log,
	}
}

// Commands returns the channel application code sends SendPGNRequests on.
func (s *Supervisor) Commands() chan<- SendPGNRequest { return s.commands }

// Run drives the supervisor loop until ctx is done. It starts address
// claiming immediately; transient driver read errors are logged and do not
// stop the loop.
func (s *Supervisor) Run(ctx context.Context) error {
	now := time.Now()
	s.emit(s.mgr.Start(now))
	s.log.Info().Uint8("preferred_sa", s.mgr.SourceAddress()).Msg("address claim started")

	frameCh := make(chan n2k.RawFrame)
	go s.readLoop(ctx, frameCh)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	var pending []SendPGNRequest
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-s.commands:
			if s.mgr.State() != addressmgr.Claimed {
				pending = append(pending, cmd)
				continue
			}
			s.handle(cmd)

		case rf := <-frameCh:
			msg, done := s.assembler.Assemble(rf)
			if !done {
				continue
			}
			frames, err := s.mgr.OnFrame(msg, time.Now())
			if err != nil {
				s.log.Warn().Err(err).Uint32("pgn", msg.Header.PGN).Msg("address manager rejected frame")
				continue
			}
			s.emit(frames)

		case <-ticker.C:
			now := time.Now()
			prevState := s.mgr.State()
			frames := s.mgr.Tick(now)
			s.emit(frames)
			if s.mgr.State() == addressmgr.Claimed && prevState != addressmgr.Claimed {
				s.log.Info().Uint8("sa", s.mgr.SourceAddress()).Msg("source address claimed")
			}
			if prevState == addressmgr.Lost {
				s.log.Info().Uint8("sa", s.mgr.SourceAddress()).Str("state", s.mgr.State().String()).Msg("address arbitration resolved")
			}
			s.drainPending(&pending)
		}
	}
}

// drainPending gives queued commands exactly one tick cycle: if the
// manager is Claimed by now they are sent, otherwise they are dropped and
// the reason surfaces back through each command's Done channel.
func (s *Supervisor) drainPending(pending *[]SendPGNRequest) {
	if len(*pending) == 0 {
		return
	}
	claimed := s.mgr.State() == addressmgr.Claimed
	for _, cmd := range *pending {
		if claimed {
			s.handle(cmd)
		} else {
			s.complete(cmd, addressmgr.ErrNotClaimed)
		}
	}
	*pending = (*pending)[:0]
}

func (s *Supervisor) handle(cmd SendPGNRequest) {
	frames, err := s.mgr.SendPayload(cmd.Payload, cmd.PGN, cmd.Destination, cmd.Priority)
	if err != nil {
		s.complete(cmd, err)
		return
	}
	s.emit(frames)
	s.complete(cmd, nil)
}

func (s *Supervisor) complete(cmd SendPGNRequest, err error) {
	if cmd.Done == nil {
		return
	}
	select {
	case cmd.Done <- err:
	default:
	}
}

func (s *Supervisor) emit(frames []n2k.Frame) {
	for _, f := range frames {
		if err := s.driver.WriteFrame(f); err != nil {
			s.log.Warn().Err(err).Uint32("pgn", f.Header.PGN).Msg("write frame failed")
		}
	}
}

func (s *Supervisor) readLoop(ctx context.Context, out chan<- n2k.RawFrame) {
	for {
		rf, err := s.driver.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("read frame failed")
			continue
		}
		select {
		case out <- rf:
		case <-ctx.Done():
			return
		}
	}
}
