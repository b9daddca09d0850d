package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultWSPath is used when the websocket path is not configured.
const defaultWSPath = "/api/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/system", s.handleSystem)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/devices", s.handleDevices)
	r.Get("/api/audit", s.handleListAudit)

	r.Get("/api/lanes", s.handleListLanes)
	r.Get("/api/lanes/{addr}", s.handleGetLane)
	r.Post("/api/lanes/{addr}/commands/{name}", s.handleLaneCommand)
	r.Get("/api/lanes/{addr}/recipe", s.handleGetRecipe)
	r.Post("/api/lanes/{addr}/recipe", s.handlePostRecipe)
	r.Get("/api/lanes/{addr}/recipes", s.handleListRecipes)

	r.Get("/api/utility", s.handleUtility)
	r.Post("/api/utility/commands/{name}", s.handleUtilityCommand)

	r.Get(s.wsPath(), s.handleWebSocket)

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return defaultWSPath
	}
	return s.wsCfg.Path
}
