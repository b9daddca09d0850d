package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/indigolab/indigo-core/internal/infrastructure/config"
)

// writeConfig writes a YAML config into a temp dir and points INDIGO_CONFIG at it.
func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body = strings.ReplaceAll(body, "{{dir}}", dir)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("INDIGO_CONFIG", path)
	return dir
}

const baseConfig = `
instrument:
  id: test-instrument

bus:
  simulation: true
  lane_addrs: [1, 2]
  utility_addr: 9
  poll_hz: 20

database:
  path: "{{dir}}/indigo.db"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18089
`

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("INDIGO_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, strings.Replace(baseConfig, `path: "{{dir}}/indigo.db"`, `path: ""`, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

func TestRun_HardwareBusRejected(t *testing.T) {
	writeConfig(t, strings.Replace(baseConfig, "simulation: true", "simulation: false", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "simulation") {
		t.Fatalf("run() error = %v, want hardware transport error", err)
	}
}

// TestRun_SuccessfulStartupAndShutdown runs the full stack in simulation
// until the context expires.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	dir := writeConfig(t, baseConfig)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "indigo.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("INDIGO_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("INDIGO_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}

func TestPollerConfig(t *testing.T) {
	got := pollerConfig(config.BusConfig{
		LaneAddrs:        []int{3, 1},
		UtilityAddr:      9,
		PollHz:           10,
		TimeoutMS:        100,
		StopTimeoutMS:    500,
		CommandQueueSize: 4,
	})

	if len(got.LaneAddrs) != 2 || got.LaneAddrs[0] != 3 || got.LaneAddrs[1] != 1 {
		t.Errorf("LaneAddrs = %v, want [3 1]", got.LaneAddrs)
	}
	if got.UtilityAddr != 9 || got.PollHz != 10 || got.CommandQueueSize != 4 {
		t.Errorf("config = %+v", got)
	}
	if got.Timeout != 100*time.Millisecond || got.StopTimeout != 500*time.Millisecond {
		t.Errorf("timeouts = %v / %v", got.Timeout, got.StopTimeout)
	}
}

func TestBuildBus(t *testing.T) {
	sim, err := buildBus(config.BusConfig{Simulation: true, UtilityAddr: 12, WireLoopback: true})
	if err != nil {
		t.Fatalf("buildBus() error = %v", err)
	}
	if sim.UtilityAddr() != 12 {
		t.Errorf("UtilityAddr() = %d, want 12", sim.UtilityAddr())
	}

	if _, err := buildBus(config.BusConfig{Simulation: false}); err == nil {
		t.Error("buildBus() without simulation should fail")
	}
}
