package registry

import (
	"fmt"
	"time"

	"github.com/indigolab/indigo-core/internal/device"
)

// LaneEntry is the snapshot record for one lane.
//
// Status, ErrorStatus and LastSeen are nil until the lane has answered a
// status request at least once.
type LaneEntry struct {
	Address     uint8              `json:"addr"`
	Online      bool               `json:"online"`
	ErrorStatus *uint8             `json:"error_status"`
	Status      *device.LaneStatus `json:"status"`
	LastSeen    *time.Time         `json:"last_seen_ts"`
}

// UtilityEntry is the snapshot record for the utility board.
type UtilityEntry struct {
	Address     uint8                 `json:"addr"`
	Online      bool                  `json:"online"`
	ErrorStatus *uint8                `json:"error_status"`
	Status      *device.UtilityStatus `json:"status"`
	LastSeen    *time.Time            `json:"last_seen_ts"`
}

// LaneSnapshot returns one entry per configured lane, in configured order.
//
// The returned slice and everything it points to are owned by the caller.
func (r *Registry) LaneSnapshot() []LaneEntry {
	s := r.current.Load()

	out := make([]LaneEntry, 0, len(r.laneAddrs))
	for _, addr := range r.laneAddrs {
		out = append(out, laneEntry(s, addr))
	}
	return out
}

// Lane returns the snapshot entry for a single lane.
//
// Returns:
//   - LaneEntry: The lane's entry
//   - error: ErrUnknownAddress if addr is not a configured lane
func (r *Registry) Lane(addr uint8) (LaneEntry, error) {
	if !r.IsLane(addr) {
		return LaneEntry{}, fmt.Errorf("%w: lane %d", ErrUnknownAddress, addr)
	}
	return laneEntry(r.current.Load(), addr), nil
}

// UtilitySnapshot returns the snapshot entry for the utility board.
func (r *Registry) UtilitySnapshot() UtilityEntry {
	s := r.current.Load()

	e := UtilityEntry{Address: r.utilityAddr}
	if s.utility != nil {
		st := *s.utility
		es := st.ErrorStatus
		e.Online = st.Online
		e.ErrorStatus = &es
		e.Status = &st
	}
	if ts, ok := s.lastSeen[r.utilityAddr]; ok {
		e.LastSeen = &ts
	}
	return e
}

func laneEntry(s *state, addr uint8) LaneEntry {
	e := LaneEntry{Address: addr}
	if st, ok := s.lanes[addr]; ok {
		es := st.ErrorStatus
		e.Online = st.Online
		e.ErrorStatus = &es
		e.Status = &st
	}
	if ts, ok := s.lastSeen[addr]; ok {
		e.LastSeen = &ts
	}
	return e
}
