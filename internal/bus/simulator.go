package bus

import (
	"context"
	"sync"
	"time"

	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/protocol"
)

// Simulator defaults.
const (
	// DefaultUtilityAddr is the utility board address the simulator assumes.
	DefaultUtilityAddr uint8 = 0x09

	// DefaultMaxDelay caps the simulated response latency.
	DefaultMaxDelay = 10 * time.Millisecond

	// laneStatusLen is the size of the simulated lane status payload.
	laneStatusLen = 16
)

// Simulator is a deterministic in-process Bus.
//
// Responses depend only on the request address and message type:
//   - status request to the utility address: RespUtilityStatus with the
//     safety chain OK and error status 0
//   - status request to any other address: an all-clear RespLaneStatus
//   - anything else: ACK
//
// Thread Safety:
//   - SendAndReceive and the stats accessors are safe for concurrent use.
type Simulator struct {
	utilityAddr  uint8
	maxDelay     time.Duration
	wireLoopback bool

	mu       sync.Mutex
	requests map[uint8]uint64
	byType   map[uint8]uint64
	failures uint64
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithUtilityAddr sets the address treated as the utility board.
func WithUtilityAddr(addr uint8) SimulatorOption {
	return func(s *Simulator) { s.utilityAddr = addr }
}

// WithMaxDelay overrides the simulated latency cap. Zero disables the delay.
func WithMaxDelay(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.maxDelay = d }
}

// WithWireLoopback pushes every request and response through the wire codec,
// as a real transport would.
func WithWireLoopback() SimulatorOption {
	return func(s *Simulator) { s.wireLoopback = true }
}

// NewSimulator creates a Simulator.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		utilityAddr: DefaultUtilityAddr,
		maxDelay:    DefaultMaxDelay,
		requests:    make(map[uint8]uint64),
		byType:      make(map[uint8]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UtilityAddr returns the address the simulator answers as the utility board.
func (s *Simulator) UtilityAddr() uint8 {
	return s.utilityAddr
}

// SendAndReceive implements Bus.
func (s *Simulator) SendAndReceive(ctx context.Context, req protocol.Frame, timeout time.Duration) (protocol.Frame, bool) {
	if s.wireLoopback {
		var ok bool
		if req, ok = s.loopback(req); !ok {
			return protocol.Frame{}, false
		}
	}

	s.record(req)

	if !s.delay(ctx, timeout) {
		return protocol.Frame{}, false
	}

	resp := s.respond(req)
	if s.wireLoopback {
		return s.loopback(resp)
	}
	return resp, true
}

// respond builds the canned response for req.
func (s *Simulator) respond(req protocol.Frame) protocol.Frame {
	if req.Type != device.MsgStatusRequest {
		return protocol.Frame{Address: req.Address, Type: device.RespAck, Payload: []byte{0x00}}
	}

	if req.Address == s.utilityAddr {
		// outputs, safe chain OK, reserved, reserved, error status
		return protocol.Frame{
			Address: req.Address,
			Type:    device.RespUtilityStatus,
			Payload: []byte{0x00, 0x01, 0x00, 0x00, 0x00},
		}
	}

	return protocol.Frame{
		Address: req.Address,
		Type:    device.RespLaneStatus,
		Payload: make([]byte, laneStatusLen),
	}
}

// delay sleeps min(timeout, maxDelay). Returns false if ctx ended first.
func (s *Simulator) delay(ctx context.Context, timeout time.Duration) bool {
	d := min(timeout, s.maxDelay)
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// loopback encodes and decodes f, counting codec failures.
func (s *Simulator) loopback(f protocol.Frame) (protocol.Frame, bool) {
	packet, err := protocol.Encode(f)
	if err == nil {
		f, err = protocol.Decode(packet)
	}
	if err != nil {
		s.mu.Lock()
		s.failures++
		s.mu.Unlock()
		return protocol.Frame{}, false
	}
	return f, true
}

func (s *Simulator) record(req protocol.Frame) {
	s.mu.Lock()
	s.requests[req.Address]++
	s.byType[req.Type]++
	s.mu.Unlock()
}

// Requests returns how many requests addr has received.
func (s *Simulator) Requests(addr uint8) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[addr]
}

// SimulatorStats is a point-in-time copy of the simulator counters.
type SimulatorStats struct {
	// RequestsByAddress counts requests per destination address.
	RequestsByAddress map[uint8]uint64 `json:"requests_by_address"`

	// RequestsByType counts requests per message type.
	RequestsByType map[uint8]uint64 `json:"requests_by_type"`

	// CodecFailures counts frames that failed the wire loopback.
	CodecFailures uint64 `json:"codec_failures"`
}

// Stats returns a copy of the simulator counters.
func (s *Simulator) Stats() SimulatorStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := SimulatorStats{
		RequestsByAddress: make(map[uint8]uint64, len(s.requests)),
		RequestsByType:    make(map[uint8]uint64, len(s.byType)),
		CodecFailures:     s.failures,
	}
	for k, v := range s.requests {
		out.RequestsByAddress[k] = v
	}
	for k, v := range s.byType {
		out.RequestsByType[k] = v
	}
	return out
}

// Compile-time check.
var _ Bus = (*Simulator)(nil)
