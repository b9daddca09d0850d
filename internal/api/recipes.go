package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/indigolab/indigo-core/internal/audit"
)

// handlePostRecipe stores a recipe for a lane.
//
// The body is the recipe JSON object in the instrument's legacy key format.
// Re-posting an identical payload is a no-op that reports updated=false.
func (s *Server) handlePostRecipe(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.recipeLane(w, r)
	if !ok {
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
		writeBadRequest(w, "invalid JSON body: expected a recipe object")
		return
	}

	res, err := s.recipes.Upsert(r.Context(), addr, payload)
	if err != nil {
		s.logger.Error("recipe upsert failed", "lane", addr, "error", err)
		writeDomainError(w, err)
		return
	}

	outcome := audit.OutcomeNoChange
	if res.Updated {
		outcome = audit.OutcomeOK
		s.logger.Info("recipe stored", "lane", addr, "recipe_id", res.RecipeID, "sha256", res.SHA256)
	}
	s.record(r.Context(), &audit.Entry{
		Action:  audit.ActionRecipe,
		Target:  audit.TargetLane,
		Address: &addr,
		Name:    "upsert",
		Outcome: outcome,
		Details: map[string]any{"recipe_id": res.RecipeID, "sha256": res.SHA256},
	})
	writeJSON(w, http.StatusOK, res)
}

// handleGetRecipe returns the active recipe for a lane.
func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.recipeLane(w, r)
	if !ok {
		return
	}

	rec, err := s.recipes.Active(r.Context(), addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleListRecipes returns every stored version for a lane, newest first.
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.recipeLane(w, r)
	if !ok {
		return
	}

	list, err := s.recipes.List(r.Context(), addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": list, "count": len(list)})
}

// recipeLane validates the {addr} parameter against the configured lanes
// and checks a store is wired.
func (s *Server) recipeLane(w http.ResponseWriter, r *http.Request) (uint8, bool) {
	if s.recipes == nil {
		writeUnavailable(w, "recipe store not configured")
		return 0, false
	}
	addr, ok := laneAddrParam(w, r)
	if !ok {
		return 0, false
	}
	if !s.registry.IsLane(addr) {
		writeNotFound(w, fmt.Sprintf("lane %d is not configured", addr))
		return 0, false
	}
	return addr, true
}
