package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigolab/indigo-core/internal/bus"
	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/protocol"
	"github.com/indigolab/indigo-core/internal/registry"
)

// Scheduler defaults.
const (
	// MinPollHz is the slowest allowed poll rate.
	MinPollHz = 0.1

	// DefaultStopTimeout bounds how long Stop waits for the loop.
	DefaultStopTimeout = 2 * time.Second

	// DefaultCommandQueueSize is the command queue capacity.
	DefaultCommandQueueSize = 16

	// DefaultMaxCommandsPerCycle caps commands executed per cycle.
	DefaultMaxCommandsPerCycle = 4
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer is notified after each status is recorded.
//
// Callbacks run on the scheduler goroutine and must not block.
type Observer interface {
	OnLaneStatus(status device.LaneStatus, ts time.Time)
	OnUtilityStatus(status device.UtilityStatus, ts time.Time)
}

// Config holds the scheduler settings.
type Config struct {
	// LaneAddrs lists the lane board addresses in polling order.
	LaneAddrs []uint8

	// UtilityAddr is the utility board address.
	UtilityAddr uint8

	// PollHz is the cycle rate. Values below MinPollHz are raised to it.
	PollHz float64

	// Timeout is the per-exchange bus timeout. Default: bus.DefaultTimeout.
	Timeout time.Duration

	// StopTimeout bounds Stop. Default: DefaultStopTimeout.
	StopTimeout time.Duration

	// CommandQueueSize is the Submit queue capacity. Default: DefaultCommandQueueSize.
	CommandQueueSize int

	// MaxCommandsPerCycle caps commands run per cycle. Default: DefaultMaxCommandsPerCycle.
	MaxCommandsPerCycle int
}

// Period returns the cycle period for c.PollHz.
func (c Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / max(c.PollHz, MinPollHz))
}

// Options holds optional collaborators.
type Options struct {
	// Logger receives scheduler logs. Default: discard.
	Logger Logger

	// Observer is notified of every recorded status. May be nil.
	Observer Observer

	// Now supplies timestamps. Default: time.Now.
	Now func() time.Time
}

// Stats holds scheduler counters.
type Stats struct {
	Cycles          uint64 `json:"cycles"`
	UtilityPolls    uint64 `json:"utility_polls"`
	UtilityFailures uint64 `json:"utility_failures"`
	LanePolls       uint64 `json:"lane_polls"`
	LaneFailures    uint64 `json:"lane_failures"`
	Commands        uint64 `json:"commands"`
	CommandFailures uint64 `json:"command_failures"`
}

// command is one queued Submit request.
type command struct {
	frame protocol.Frame
	reply chan commandResult
}

type commandResult struct {
	frame   protocol.Frame
	ok      bool
	stopped bool
}

// Scheduler polls the boards and owns the registry Writer.
//
// Thread Safety:
//   - Start, Stop, Submit, Stats and Registry are safe for concurrent use.
//   - PollOnce is serialised internally; calling it while the loop runs is
//     allowed but adds bus traffic.
type Scheduler struct {
	cfg      Config
	period   time.Duration
	bus      bus.Bus
	reg      *registry.Registry
	writer   *registry.Writer
	utility  device.Utility
	lanes    []device.Lane
	observer Observer
	now      func() time.Time

	// cycleMu serialises bus access between PollOnce callers and the loop.
	cycleMu sync.Mutex
	laneIdx int

	commands chan *command

	// Lifecycle
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// Counters
	cycles          atomic.Uint64
	utilityPolls    atomic.Uint64
	utilityFailures atomic.Uint64
	lanePolls       atomic.Uint64
	laneFailures    atomic.Uint64
	cmdCount        atomic.Uint64
	cmdFailures     atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Scheduler and its device registry.
//
// Parameters:
//   - cfg: Addresses and timing
//   - b: The bus to poll over
//   - opts: Optional logger, observer and clock
//
// Returns:
//   - *Scheduler: Stopped scheduler; call Start to begin polling
//   - error: If b is nil or the addresses are invalid
func New(cfg Config, b bus.Bus, opts Options) (*Scheduler, error) {
	if b == nil {
		return nil, fmt.Errorf("bus is required")
	}

	reg, writer, err := registry.New(cfg.LaneAddrs, cfg.UtilityAddr)
	if err != nil {
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = bus.DefaultTimeout
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = DefaultCommandQueueSize
	}
	if cfg.MaxCommandsPerCycle <= 0 {
		cfg.MaxCommandsPerCycle = DefaultMaxCommandsPerCycle
	}

	lanes := make([]device.Lane, 0, len(cfg.LaneAddrs))
	for _, a := range reg.LaneAddrs() {
		lanes = append(lanes, device.Lane{Address: a})
	}

	s := &Scheduler{
		cfg:      cfg,
		period:   cfg.Period(),
		bus:      b,
		reg:      reg,
		writer:   writer,
		utility:  device.Utility{Address: cfg.UtilityAddr},
		lanes:    lanes,
		observer: opts.Observer,
		now:      opts.Now,
		commands: make(chan *command, cfg.CommandQueueSize),
		logger:   opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}

	return s, nil
}

// SetLogger replaces the scheduler logger.
func (s *Scheduler) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Scheduler) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Registry returns the read side of the registry this scheduler writes.
func (s *Scheduler) Registry() *registry.Registry {
	return s.reg
}

// Period returns the cycle period.
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// activeLocked reports whether a loop was started and has not exited. The
// loop also exits on its own when the context passed to Start is cancelled.
// s.mu must be held.
func (s *Scheduler) activeLocked() bool {
	if s.cancel == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Start launches the polling loop. Calling Start on a running scheduler
// is a no-op.
//
// Returns:
//   - error: ErrStillStopping if a previous loop has not exited yet
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeLocked() {
		return nil
	}
	if s.cancel != nil {
		// Parent context was cancelled; release the stale loop context.
		s.cancel()
		s.cancel = nil
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return ErrStillStopping
		}
	}

	// Commands that raced the previous Stop are failed, not replayed.
	s.drainCommands()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(loopCtx, done)

	s.log().Info("poll scheduler started",
		"period", s.period,
		"lanes", len(s.lanes),
		"utility_addr", s.cfg.UtilityAddr)
	return nil
}

// Stop signals the loop to exit and waits up to StopTimeout. Calling Stop
// on a stopped scheduler is a no-op.
//
// Returns:
//   - error: ErrStopTimeout if the loop was still busy when the wait ended.
//     The loop still exits on its own once its in-flight exchange returns.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.log().Info("poll scheduler stopped")
		return nil
	case <-timer.C:
		s.log().Warn("poll scheduler did not stop in time", "timeout", s.cfg.StopTimeout)
		return ErrStopTimeout
	}
}

// run is the scheduler loop.
func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.drainCommands()

	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		s.PollOnce(ctx)
		s.runCommands(ctx)

		wait := s.period - time.Since(start)
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// PollOnce runs one poll: the utility board, then the next lane in
// round-robin order. Failures are logged and counted, never returned.
//
// Bus exchanges started here run to completion even if ctx is cancelled.
func (s *Scheduler) PollOnce(ctx context.Context) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.cycles.Add(1)
	ctx = context.WithoutCancel(ctx)

	s.pollUtility(ctx)

	if len(s.lanes) == 0 {
		return
	}
	lane := s.lanes[s.laneIdx%len(s.lanes)]
	s.laneIdx = (s.laneIdx + 1) % len(s.lanes)
	s.pollLane(ctx, lane)
}

func (s *Scheduler) pollUtility(ctx context.Context) {
	s.utilityPolls.Add(1)
	ts := s.now()

	resp, ok := s.bus.SendAndReceive(ctx, s.utility.StatusRequest(), s.cfg.Timeout)
	if !ok {
		s.utilityFailures.Add(1)
		s.log().Debug("utility poll: no response", "addr", s.utility.Address)
		return
	}

	st, ok := device.ParseUtilityStatus(resp)
	if !ok || st.Address != s.utility.Address {
		s.utilityFailures.Add(1)
		s.log().Debug("utility poll: unexpected response", "addr", s.utility.Address, "frame", resp.String())
		return
	}

	if err := s.writer.RecordUtility(st, ts); err != nil {
		s.utilityFailures.Add(1)
		s.log().Debug("utility poll: record failed", "error", err)
		return
	}
	if s.observer != nil {
		s.observer.OnUtilityStatus(st, ts)
	}
}

func (s *Scheduler) pollLane(ctx context.Context, lane device.Lane) {
	s.lanePolls.Add(1)
	ts := s.now()

	resp, ok := s.bus.SendAndReceive(ctx, lane.StatusRequest(), s.cfg.Timeout)
	if !ok {
		s.laneFailures.Add(1)
		s.log().Debug("lane poll: no response", "addr", lane.Address)
		return
	}

	st, ok := device.ParseLaneStatus(resp)
	if !ok || st.Address != lane.Address {
		s.laneFailures.Add(1)
		s.log().Debug("lane poll: unexpected response", "addr", lane.Address, "frame", resp.String())
		return
	}

	if err := s.writer.RecordLane(st, ts); err != nil {
		s.laneFailures.Add(1)
		s.log().Debug("lane poll: record failed", "addr", lane.Address, "error", err)
		return
	}
	if s.observer != nil {
		s.observer.OnLaneStatus(st, ts)
	}
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Cycles:          s.cycles.Load(),
		UtilityPolls:    s.utilityPolls.Load(),
		UtilityFailures: s.utilityFailures.Load(),
		LanePolls:       s.lanePolls.Load(),
		LaneFailures:    s.laneFailures.Load(),
		Commands:        s.cmdCount.Load(),
		CommandFailures: s.cmdFailures.Load(),
	}
}
