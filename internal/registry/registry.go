package registry

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/indigolab/indigo-core/internal/device"
)

// state is one immutable registry generation. It is never modified after
// being stored.
type state struct {
	lanes    map[uint8]device.LaneStatus
	utility  *device.UtilityStatus
	lastSeen map[uint8]time.Time
}

// Registry is the read side of the device registry.
//
// Thread Safety:
//   - All methods are safe for concurrent use and never block.
type Registry struct {
	laneAddrs   []uint8
	laneSet     map[uint8]struct{}
	utilityAddr uint8

	current atomic.Pointer[state]
}

// Writer records new statuses into its Registry. There is exactly one
// Writer per Registry.
//
// Thread Safety:
//   - Writer methods must be called from a single goroutine.
type Writer struct {
	reg *Registry
}

// New creates a registry for the given lane addresses and utility address.
//
// Lane order is preserved in snapshots.
//
// Returns:
//   - *Registry: The shared read side
//   - *Writer: The single mutation handle
//   - error: ErrInvalidConfig if lane addresses repeat or the utility
//     address is also a lane address
func New(laneAddrs []uint8, utilityAddr uint8) (*Registry, *Writer, error) {
	set := make(map[uint8]struct{}, len(laneAddrs))
	for _, a := range laneAddrs {
		if _, dup := set[a]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate lane address %d", ErrInvalidConfig, a)
		}
		set[a] = struct{}{}
	}
	if _, clash := set[utilityAddr]; clash {
		return nil, nil, fmt.Errorf("%w: utility address %d is also a lane address", ErrInvalidConfig, utilityAddr)
	}

	r := &Registry{
		laneAddrs:   slices.Clone(laneAddrs),
		laneSet:     set,
		utilityAddr: utilityAddr,
	}
	r.current.Store(&state{
		lanes:    map[uint8]device.LaneStatus{},
		lastSeen: map[uint8]time.Time{},
	})

	return r, &Writer{reg: r}, nil
}

// RecordLane stores the latest status for a lane.
//
// A timestamp older than the last one recorded for the address is clamped
// so last-seen never moves backwards.
//
// Returns:
//   - error: ErrUnknownAddress if status.Address is not a configured lane
func (w *Writer) RecordLane(status device.LaneStatus, ts time.Time) error {
	r := w.reg
	if !r.IsLane(status.Address) {
		return fmt.Errorf("%w: lane %d", ErrUnknownAddress, status.Address)
	}

	old := r.current.Load()
	next := &state{
		lanes:    cloneMap(old.lanes),
		utility:  old.utility,
		lastSeen: cloneMap(old.lastSeen),
	}
	next.lanes[status.Address] = status
	next.lastSeen[status.Address] = clamp(old.lastSeen, status.Address, ts)

	r.current.Store(next)
	return nil
}

// RecordUtility stores the latest utility board status.
//
// Returns:
//   - error: ErrUnknownAddress if status.Address is not the utility address
func (w *Writer) RecordUtility(status device.UtilityStatus, ts time.Time) error {
	r := w.reg
	if status.Address != r.utilityAddr {
		return fmt.Errorf("%w: utility %d (configured %d)", ErrUnknownAddress, status.Address, r.utilityAddr)
	}

	old := r.current.Load()
	u := status
	next := &state{
		lanes:    old.lanes,
		utility:  &u,
		lastSeen: cloneMap(old.lastSeen),
	}
	next.lastSeen[status.Address] = clamp(old.lastSeen, status.Address, ts)

	r.current.Store(next)
	return nil
}

// Registry returns the read side this writer feeds.
func (w *Writer) Registry() *Registry {
	return w.reg
}

func clamp(seen map[uint8]time.Time, addr uint8, ts time.Time) time.Time {
	if prev, ok := seen[addr]; ok && ts.Before(prev) {
		return prev
	}
	return ts
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// LaneAddrs returns the configured lane addresses in order.
func (r *Registry) LaneAddrs() []uint8 {
	return slices.Clone(r.laneAddrs)
}

// UtilityAddr returns the configured utility board address.
func (r *Registry) UtilityAddr() uint8 {
	return r.utilityAddr
}

// IsLane reports whether addr is a configured lane address.
func (r *Registry) IsLane(addr uint8) bool {
	_, ok := r.laneSet[addr]
	return ok
}

// Utility returns a copy of the latest utility status, or nil if the board
// has never answered.
func (r *Registry) Utility() *device.UtilityStatus {
	u := r.current.Load().utility
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
