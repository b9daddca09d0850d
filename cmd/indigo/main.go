// Indigo Core - supervisory service for the Indigo extraction instrument.
//
// This is the main entry point. It polls the lane and utility boards over
// the RS-485 bus (simulated in this build), keeps the latest status of every
// board in memory, and serves it over HTTP/WebSocket and, optionally, MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indigolab/indigo-core/internal/api"
	"github.com/indigolab/indigo-core/internal/audit"
	"github.com/indigolab/indigo-core/internal/bus"
	"github.com/indigolab/indigo-core/internal/control"
	"github.com/indigolab/indigo-core/internal/infrastructure/config"
	"github.com/indigolab/indigo-core/internal/infrastructure/database"
	"github.com/indigolab/indigo-core/internal/infrastructure/logging"
	"github.com/indigolab/indigo-core/internal/infrastructure/mqtt"
	"github.com/indigolab/indigo-core/internal/poller"
	"github.com/indigolab/indigo-core/internal/recipe"
	"github.com/indigolab/indigo-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,funlen // Linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Indigo Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"instrument", cfg.Instrument.ID,
	)

	// Open database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional)
	var (
		mqttClient *mqtt.Client
		publisher  *mqtt.StatusPublisher
	)
	if cfg.MQTT.Enabled {
		mqttClient, publisher, err = startMQTT(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			publisher.Close()
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// Bus and poll scheduler
	sim, err := buildBus(cfg.Bus)
	if err != nil {
		return fmt.Errorf("building bus: %w", err)
	}

	opts := poller.Options{Logger: log.Component("poller")}
	if publisher != nil {
		opts.Observer = publisher
	}
	scheduler, err := poller.New(pollerConfig(cfg.Bus), sim, opts)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	if startErr := scheduler.Start(ctx); startErr != nil {
		return fmt.Errorf("starting scheduler: %w", startErr)
	}
	defer func() {
		log.Info("stopping scheduler")
		if stopErr := scheduler.Stop(); stopErr != nil {
			log.Error("error stopping scheduler", "error", stopErr)
		}
	}()
	log.Info("scheduler started",
		"lanes", cfg.Bus.LaneAddrs,
		"utility_addr", cfg.Bus.UtilityAddr,
		"period", scheduler.Period(),
		"simulation", cfg.Bus.Simulation,
	)

	controller := control.New(scheduler, scheduler.Registry())
	controller.SetLogger(log.Component("control"))

	stats := map[string]api.StatsFunc{
		"scheduler": func() any { return scheduler.Stats() },
		"simulator": func() any { return sim.Stats() },
	}
	if publisher != nil {
		stats["mqtt"] = func() any { return publisher.Stats() }
	}

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Registry:   scheduler.Registry(),
		Controller: controller,
		Recipes:    recipe.NewStore(db),
		Audit:      audit.NewSQLiteRepository(db.DB),
		Stats:      stats,
		Simulation: cfg.Bus.Simulation,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Scheduler
	// 3. MQTT (if enabled)
	// 4. Database

	return nil
}

// getConfigPath returns the configuration file path.
// Uses INDIGO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("INDIGO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startMQTT connects to the broker and starts the status publisher.
func startMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, *mqtt.StatusPublisher, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	pub := mqtt.NewStatusPublisher(client, client.Topics(), cfg.QueueSize)
	pub.SetLogger(log.Component("mqtt"))
	if err := pub.Start(); err != nil {
		client.Close() //nolint:errcheck // Already failing
		return nil, nil, fmt.Errorf("starting status publisher: %w", err)
	}
	return client, pub, nil
}

// buildBus returns the bus implementation for cfg. Only the simulator is
// part of this build.
func buildBus(cfg config.BusConfig) (*bus.Simulator, error) {
	if !cfg.Simulation {
		return nil, fmt.Errorf("hardware bus transport is not available in this build; set bus.simulation: true")
	}

	opts := []bus.SimulatorOption{bus.WithUtilityAddr(uint8(cfg.UtilityAddr))}
	if cfg.WireLoopback {
		opts = append(opts, bus.WithWireLoopback())
	}
	return bus.NewSimulator(opts...), nil
}

// pollerConfig converts the bus settings into scheduler configuration.
func pollerConfig(cfg config.BusConfig) poller.Config {
	return poller.Config{
		LaneAddrs:        cfg.LaneAddresses(),
		UtilityAddr:      uint8(cfg.UtilityAddr),
		PollHz:           cfg.PollHz,
		Timeout:          cfg.GetTimeout(),
		StopTimeout:      cfg.GetStopTimeout(),
		CommandQueueSize: cfg.CommandQueueSize,
	}
}

// healthCheckTimeout bounds the startup health check.
const healthCheckTimeout = 5 * time.Second

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (nil if disabled)
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, apiServer *api.Server) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
