package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/indigolab/indigo-core/internal/audit"
	"github.com/indigolab/indigo-core/internal/control"
	"github.com/indigolab/indigo-core/internal/infrastructure/config"
	"github.com/indigolab/indigo-core/internal/infrastructure/logging"
	"github.com/indigolab/indigo-core/internal/recipe"
	"github.com/indigolab/indigo-core/internal/registry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Commander executes named device commands. Satisfied by *control.Controller.
type Commander interface {
	LaneCommand(ctx context.Context, addr uint8, name string, p control.Params) (control.Result, error)
	UtilityCommand(ctx context.Context, name string, p control.Params) (control.Result, error)
}

// RecipeStore persists per-lane recipes. Satisfied by *recipe.Store.
type RecipeStore interface {
	Upsert(ctx context.Context, lane uint8, payload map[string]any) (recipe.UpsertResult, error)
	Active(ctx context.Context, lane uint8) (*recipe.Recipe, error)
	List(ctx context.Context, lane uint8) ([]recipe.Recipe, error)
}

// StatsFunc returns a JSON-encodable counter snapshot.
type StatsFunc func() any

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Registry   *registry.Registry
	Controller Commander
	Recipes    RecipeStore          // optional; recipe endpoints return 503 without it
	Audit      audit.Repository     // optional; commands and recipe uploads are recorded
	Stats      map[string]StatsFunc // named counter sources for GET /api/stats
	Simulation bool
	Version    string
}

// Server is the HTTP API server for Indigo Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	registry   *registry.Registry
	controller Commander
	recipes    RecipeStore
	audit      audit.Repository
	stats      map[string]StatsFunc
	simulation bool
	version    string
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc // cancels the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry, controller)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		controller: deps.Controller,
		recipes:    deps.Recipes,
		audit:      deps.Audit,
		stats:      deps.Stats,
		simulation: deps.Simulation,
		version:    deps.Version,
	}
	s.hub = NewHub(deps.WS, deps.Logger, func() any { return s.devicesDocument() })

	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the hub (not used for listener lifetime)
//
// Returns:
//   - error: If the server was already started
func (s *Server) Start(ctx context.Context) error {
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
