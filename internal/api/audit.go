package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/indigolab/indigo-core/internal/audit"
	"github.com/indigolab/indigo-core/internal/control"
)

// record writes an audit entry. Failures are logged, never returned: the
// operation being audited has already happened.
func (s *Server) record(ctx context.Context, e *audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("audit write failed", "action", e.Action, "name", e.Name, "error", err)
	}
}

// commandOutcome classifies a controller error for the audit trail.
func commandOutcome(err error) string {
	switch {
	case err == nil:
		return audit.OutcomeOK
	case errors.Is(err, control.ErrUnknownLane),
		errors.Is(err, control.ErrUnknownCommand),
		errors.Is(err, control.ErrInvalidParameter),
		errors.Is(err, control.ErrNotReady):
		return audit.OutcomeRejected
	default:
		return audit.OutcomeFailed
	}
}

// handleListAudit returns audit entries, newest first.
//
// Query parameters:
//   - action: command or recipe
//   - target: lane or utility
//   - addr: board address
//   - limit, offset: paging (limit default 50, max 200)
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Target: q.Get("target"),
	}

	if v := q.Get("addr"); v != "" {
		a, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			writeBadRequest(w, "addr must be 0-255")
			return
		}
		addr := uint8(a)
		filter.Address = &addr
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, p.key+" must be an integer")
			return
		}
		*p.dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit log failed", "error", err)
		writeInternalError(w, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
