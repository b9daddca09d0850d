package control

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/protocol"
	"github.com/indigolab/indigo-core/internal/registry"
	"github.com/indigolab/indigo-core/internal/safety"
)

// Submitter executes a frame on the bus. Satisfied by *poller.Scheduler.
type Submitter interface {
	Submit(ctx context.Context, req protocol.Frame) (protocol.Frame, error)
}

// Logger defines the logging interface used by the Controller.
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

// Result describes one executed command.
type Result struct {
	ID           string         `json:"id"`
	Address      uint8          `json:"addr"`
	Command      string         `json:"command"`
	Acked        bool           `json:"acked"`
	ResponseType uint8          `json:"response_type"`
	Response     protocol.Frame `json:"-"`
}

// Controller validates and executes operator commands.
//
// Thread Safety:
//   - All methods are safe for concurrent use; the scheduler serialises
//     bus access.
type Controller struct {
	sub     Submitter
	reg     *registry.Registry
	utility device.Utility
	logger  Logger
}

// New creates a Controller.
//
// Parameters:
//   - sub: Executes frames (normally the poll scheduler)
//   - reg: Registry used for address validation and the safety interlock
func New(sub Submitter, reg *registry.Registry) *Controller {
	return &Controller{
		sub:     sub,
		reg:     reg,
		utility: device.Utility{Address: reg.UtilityAddr()},
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// LaneCommandNames returns the supported lane command names, sorted.
func LaneCommandNames() []string {
	return sortedKeys(laneCommands)
}

// UtilityCommandNames returns the supported utility command names, sorted.
func UtilityCommandNames() []string {
	return sortedKeys(utilityCommands)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LaneCommand executes a named command on a lane board.
//
// Returns:
//   - Result: The executed command and the board's response
//   - error: ErrUnknownLane, ErrUnknownCommand, ErrInvalidParameter,
//     ErrNotReady, ErrNotAcknowledged, or a scheduler error
func (c *Controller) LaneCommand(ctx context.Context, addr uint8, name string, p Params) (Result, error) {
	if !c.reg.IsLane(addr) {
		return Result{}, fmt.Errorf("%w: %d (configured %v)", ErrUnknownLane, addr, c.reg.LaneAddrs())
	}
	build, ok := laneCommands[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	frame, energise, err := build(device.Lane{Address: addr}, p)
	if err != nil {
		return Result{}, err
	}
	return c.execute(ctx, name, frame, energise)
}

// UtilityCommand executes a named command on the utility board.
//
// Returns:
//   - Result: The executed command and the board's response
//   - error: ErrUnknownCommand, ErrInvalidParameter, ErrNotReady,
//     ErrNotAcknowledged, or a scheduler error
func (c *Controller) UtilityCommand(ctx context.Context, name string, p Params) (Result, error) {
	build, ok := utilityCommands[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	frame, energise, err := build(c.utility, p)
	if err != nil {
		return Result{}, err
	}
	return c.execute(ctx, name, frame, energise)
}

func (c *Controller) execute(ctx context.Context, name string, frame protocol.Frame, energise bool) (Result, error) {
	if energise {
		if st := safety.Current(c.reg); !st.Ready {
			c.logger.Warn("command refused", "command", name, "addr", frame.Address, "reason", st.Reason)
			return Result{}, fmt.Errorf("%w: %s", ErrNotReady, st.Reason)
		}
	}

	res := Result{
		ID:      uuid.NewString(),
		Address: frame.Address,
		Command: name,
	}

	resp, err := c.sub.Submit(ctx, frame)
	if err != nil {
		c.logger.Warn("command failed", "id", res.ID, "command", name, "addr", frame.Address, "error", err)
		return res, fmt.Errorf("executing %s: %w", name, err)
	}

	res.Response = resp
	res.ResponseType = resp.Type
	res.Acked = device.IsAck(resp)

	c.logger.Info("command executed",
		"id", res.ID,
		"command", name,
		"addr", frame.Address,
		"acked", res.Acked)

	if !res.Acked {
		return res, fmt.Errorf("%w: %s got response type 0x%02X", ErrNotAcknowledged, name, resp.Type)
	}
	return res, nil
}
