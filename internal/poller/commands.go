package poller

import (
	"context"
	"fmt"

	"github.com/indigolab/indigo-core/internal/protocol"
)

// Submit queues a command frame for the scheduler loop and waits for the
// board's response.
//
// Parameters:
//   - ctx: Bounds the wait. Cancelling ctx abandons the wait, not the
//     exchange; a queued command still reaches the bus.
//   - req: The request frame (see package device for builders)
//
// Returns:
//   - protocol.Frame: The board's response
//   - error: ErrNotRunning, ErrQueueFull, ErrNoResponse, or ctx.Err()
func (s *Scheduler) Submit(ctx context.Context, req protocol.Frame) (protocol.Frame, error) {
	s.mu.Lock()
	running, done := s.cancel != nil, s.done
	s.mu.Unlock()

	if !running {
		return protocol.Frame{}, ErrNotRunning
	}

	cmd := &command{frame: req, reply: make(chan commandResult, 1)}

	select {
	case s.commands <- cmd:
	default:
		return protocol.Frame{}, ErrQueueFull
	}

	select {
	case res := <-cmd.reply:
		if res.stopped {
			return protocol.Frame{}, ErrNotRunning
		}
		if !res.ok {
			return protocol.Frame{}, fmt.Errorf("%w: addr %d type 0x%02X", ErrNoResponse, req.Address, req.Type)
		}
		return res.frame, nil
	case <-done:
		// The loop may have answered just before exiting.
		select {
		case res := <-cmd.reply:
			if res.ok {
				return res.frame, nil
			}
		default:
		}
		return protocol.Frame{}, ErrNotRunning
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	}
}

// runCommands executes up to MaxCommandsPerCycle queued commands.
func (s *Scheduler) runCommands(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	for range s.cfg.MaxCommandsPerCycle {
		select {
		case cmd := <-s.commands:
			s.execute(ctx, cmd)
		default:
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, cmd *command) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.cmdCount.Add(1)
	resp, ok := s.bus.SendAndReceive(ctx, cmd.frame, s.cfg.Timeout)
	if !ok {
		s.cmdFailures.Add(1)
		s.log().Debug("command: no response", "frame", cmd.frame.String())
	} else {
		s.log().Debug("command executed", "frame", cmd.frame.String(), "response", resp.String())
	}

	cmd.reply <- commandResult{frame: resp, ok: ok}
}

// drainCommands fails every command still queued when the loop exits.
func (s *Scheduler) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- commandResult{stopped: true}
		default:
			return
		}
	}
}
