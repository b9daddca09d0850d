package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/indigolab/indigo-core/internal/registry"
	"github.com/indigolab/indigo-core/internal/safety"
)

// DevicesDocument is the combined view served by GET /api/devices and
// pushed to WebSocket clients.
type DevicesDocument struct {
	Lanes     []registry.LaneEntry  `json:"lanes"`
	Utility   registry.UtilityEntry `json:"utility"`
	System    safety.SystemState    `json:"system"`
	Timestamp time.Time             `json:"ts"`
}

func (s *Server) devicesDocument() DevicesDocument {
	return DevicesDocument{
		Lanes:     s.registry.LaneSnapshot(),
		Utility:   s.registry.UtilitySnapshot(),
		System:    s.systemState(),
		Timestamp: time.Now().UTC(),
	}
}

func (s *Server) systemState() safety.SystemState {
	return safety.Current(s.registry)
}

// handleDevices returns every lane, the utility board and the system state.
func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.devicesDocument())
}

// handleListLanes returns one snapshot entry per configured lane.
func (s *Server) handleListLanes(w http.ResponseWriter, _ *http.Request) {
	lanes := s.registry.LaneSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{"lanes": lanes, "count": len(lanes)})
}

// handleGetLane returns the snapshot entry for a single lane.
func (s *Server) handleGetLane(w http.ResponseWriter, r *http.Request) {
	addr, ok := laneAddrParam(w, r)
	if !ok {
		return
	}

	entry, err := s.registry.Lane(addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleUtility returns the utility board snapshot entry.
func (s *Server) handleUtility(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.UtilitySnapshot())
}

// laneAddrParam parses the {addr} URL parameter. Decimal and 0x-prefixed
// hex are accepted. Writes a 400 and returns false on failure.
func laneAddrParam(w http.ResponseWriter, r *http.Request) (uint8, bool) {
	raw := chi.URLParam(r, "addr")
	v, err := strconv.ParseUint(raw, 0, 8)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid address %q: must be 0-255", raw))
		return 0, false
	}
	return uint8(v), true
}
