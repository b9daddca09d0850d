package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Indigo Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Instrument InstrumentConfig `yaml:"instrument"`
	Bus        BusConfig        `yaml:"bus"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InstrumentConfig identifies this instrument.
type InstrumentConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// BusConfig contains device bus and poll scheduler settings.
type BusConfig struct {
	// Simulation selects the in-process simulator. A hardware transport is
	// not built into this binary, so false is rejected at startup.
	Simulation bool `yaml:"simulation"`

	// WireLoopback pushes simulated traffic through the wire codec.
	WireLoopback bool `yaml:"wire_loopback"`

	// LaneAddrs lists lane board addresses in polling order.
	LaneAddrs []int `yaml:"lane_addrs"`

	// UtilityAddr is the utility board address.
	UtilityAddr int `yaml:"utility_addr"`

	// PollHz is the scheduler cycle rate.
	PollHz float64 `yaml:"poll_hz"`

	// TimeoutMS is the per-exchange bus timeout in milliseconds.
	TimeoutMS int `yaml:"timeout_ms"`

	// StopTimeoutMS bounds scheduler shutdown in milliseconds.
	StopTimeoutMS int `yaml:"stop_timeout_ms"`

	// CommandQueueSize is the scheduler command queue capacity.
	CommandQueueSize int `yaml:"command_queue_size"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
	QueueSize   int                 `yaml:"queue_size"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`

	// IntervalMS is the device snapshot push interval in milliseconds.
	IntervalMS int `yaml:"interval_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: INDIGO_SECTION_KEY
// For example: INDIGO_DATABASE_PATH, INDIGO_POLL_HZ
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Instrument: InstrumentConfig{
			ID:   "indigo-001",
			Name: "Indigo",
		},
		Bus: BusConfig{
			Simulation:       true,
			LaneAddrs:        []int{1, 2, 3, 4},
			UtilityAddr:      9,
			PollHz:           5,
			TimeoutMS:        250,
			StopTimeoutMS:    2000,
			CommandQueueSize: 16,
		},
		Database: DatabaseConfig{
			Path:        "./data/indigo.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "indigo-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "indigo",
			QueueSize:   64,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
			IntervalMS:     1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: INDIGO_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Bus
	if v := os.Getenv("INDIGO_SIMULATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("INDIGO_SIMULATION: %w", err)
		}
		cfg.Bus.Simulation = b
	}
	if v := os.Getenv("INDIGO_POLL_HZ"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("INDIGO_POLL_HZ: %w", err)
		}
		cfg.Bus.PollHz = f
	}
	if v := os.Getenv("INDIGO_LANE_ADDRS"); v != "" {
		addrs, err := parseIntList(v)
		if err != nil {
			return fmt.Errorf("INDIGO_LANE_ADDRS: %w", err)
		}
		cfg.Bus.LaneAddrs = addrs
	}
	if v := os.Getenv("INDIGO_UTILITY_ADDR"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("INDIGO_UTILITY_ADDR: %w", err)
		}
		cfg.Bus.UtilityAddr = n
	}

	// Database
	if v := os.Getenv("INDIGO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("INDIGO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("INDIGO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("INDIGO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("INDIGO_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("INDIGO_API_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("INDIGO_API_PORT: %w", err)
		}
		cfg.API.Port = n
	}

	// Logging
	if v := os.Getenv("INDIGO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// parseIntList parses "1, 2,3" into []int{1, 2, 3}.
func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Instrument.ID == "" {
		errs = append(errs, "instrument.id is required")
	}

	errs = append(errs, c.Bus.validate()...)

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.WebSocket.IntervalMS < 0 {
		errs = append(errs, "websocket.interval_ms must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (b *BusConfig) validate() []string {
	var errs []string

	if len(b.LaneAddrs) == 0 {
		errs = append(errs, "bus.lane_addrs must list at least one lane")
	}
	seen := make(map[int]bool, len(b.LaneAddrs))
	for _, a := range b.LaneAddrs {
		if a < 0 || a > 255 {
			errs = append(errs, fmt.Sprintf("bus.lane_addrs: %d is outside 0-255", a))
			continue
		}
		if seen[a] {
			errs = append(errs, fmt.Sprintf("bus.lane_addrs: %d is listed twice", a))
		}
		seen[a] = true
	}

	if b.UtilityAddr < 0 || b.UtilityAddr > 255 {
		errs = append(errs, "bus.utility_addr must be between 0 and 255")
	} else if seen[b.UtilityAddr] {
		errs = append(errs, "bus.utility_addr must not also be a lane address")
	}

	if b.PollHz <= 0 {
		errs = append(errs, "bus.poll_hz must be greater than 0")
	}
	if b.TimeoutMS <= 0 {
		errs = append(errs, "bus.timeout_ms must be greater than 0")
	}
	if b.StopTimeoutMS <= 0 {
		errs = append(errs, "bus.stop_timeout_ms must be greater than 0")
	}
	if b.CommandQueueSize < 1 {
		errs = append(errs, "bus.command_queue_size must be at least 1")
	}

	return errs
}

// LaneAddresses returns the lane addresses as bytes. Call after Validate.
func (b *BusConfig) LaneAddresses() []uint8 {
	out := make([]uint8, len(b.LaneAddrs))
	for i, a := range b.LaneAddrs {
		out[i] = uint8(a) //nolint:gosec // range checked by Validate
	}
	return out
}

// GetTimeout returns the bus exchange timeout as a Duration.
func (b *BusConfig) GetTimeout() time.Duration {
	return time.Duration(b.TimeoutMS) * time.Millisecond
}

// GetStopTimeout returns the scheduler stop timeout as a Duration.
func (b *BusConfig) GetStopTimeout() time.Duration {
	return time.Duration(b.StopTimeoutMS) * time.Millisecond
}

// GetInterval returns the WebSocket push interval, defaulting to one second.
func (w *WebSocketConfig) GetInterval() time.Duration {
	if w.IntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(w.IntervalMS) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
