package api

import (
	"net/http"
	"sort"
)

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"simulation": s.simulation,
	})
}

// handleSystem returns the safety gate's current verdict.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.systemState())
}

// handleStats returns every registered counter source plus hub counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(s.stats))
	for name := range s.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(names)+1)
	for _, name := range names {
		if fn := s.stats[name]; fn != nil {
			out[name] = fn()
		}
	}
	out["websocket"] = map[string]any{"clients": s.hub.ClientCount()}

	writeJSON(w, http.StatusOK, out)
}
