package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/indigolab/indigo-core/internal/audit"
	"github.com/indigolab/indigo-core/internal/control"
)

// commandTimeout bounds a single command request, queueing included.
const commandTimeout = 5 * time.Second

// handleLaneCommand executes a named command on one lane board.
//
// The body is an optional JSON object of parameters, e.g. {"open": true}.
func (s *Server) handleLaneCommand(w http.ResponseWriter, r *http.Request) {
	addr, ok := laneAddrParam(w, r)
	if !ok {
		return
	}
	params, ok := decodeParams(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	name := chi.URLParam(r, "name")
	res, err := s.controller.LaneCommand(ctx, addr, name, params)
	s.finishCommand(w, r, &audit.Entry{Target: audit.TargetLane, Address: &addr, Name: name}, params, res, err)
}

// handleUtilityCommand executes a named command on the utility board.
func (s *Server) handleUtilityCommand(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeParams(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	name := chi.URLParam(r, "name")
	res, err := s.controller.UtilityCommand(ctx, name, params)
	s.finishCommand(w, r, &audit.Entry{Target: audit.TargetUtility, Name: name}, params, res, err)
}

// finishCommand records the command in the audit trail and writes the response.
func (s *Server) finishCommand(w http.ResponseWriter, r *http.Request, e *audit.Entry, params control.Params, res control.Result, err error) {
	e.Action = audit.ActionCommand
	e.Outcome = commandOutcome(err)
	e.Details = map[string]any{}
	if len(params) > 0 {
		e.Details["params"] = params
	}
	if res.ID != "" {
		e.Details["command_id"] = res.ID
	}
	if err != nil {
		e.Details["error"] = err.Error()
	}
	s.record(r.Context(), e)

	if err != nil {
		s.logger.Debug("command rejected", "command", e.Name, "target", e.Target, "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeParams reads an optional JSON object body. An empty body yields
// empty params. Writes a 400 and returns false on malformed JSON.
func decodeParams(w http.ResponseWriter, r *http.Request) (control.Params, bool) {
	params := control.Params{}
	if r.Body == nil {
		return params, true
	}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body: expected an object of parameters")
		return nil, false
	}
	return params, true
}
