package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the kiosk core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Kiosk     KioskConfig     `yaml:"kiosk"`
	Engine    EngineConfig    `yaml:"engine"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// KioskConfig identifies this physical kiosk and where it stands.
type KioskConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Timezone string         `yaml:"timezone"`
	Location LocationConfig `yaml:"location"`

	// WaitsRefreshInterval is how often security wait times are refreshed
	// from the engine (in seconds).
	WaitsRefreshInterval int `yaml:"waits_refresh_interval"`

	// FallbackWaitMinutes is shown for an open checkpoint whose feed
	// reports no wait time.
	FallbackWaitMinutes int `yaml:"fallback_wait_minutes"`
}

// LocationConfig is the kiosk's fixed position inside the venue. Every
// distance and route the kiosk shows is measured from this point.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	FloorID   string  `yaml:"floor_id"`
}

// EngineConfig contains the hosted map engine connection settings.
type EngineConfig struct {
	// BaseURL is the vendor's API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates with the vendor. Always set via environment
	// variable in production.
	APIKey string `yaml:"api_key"`

	// AccountID and VenueID identify the tenant and venue.
	AccountID string `yaml:"account_id"`
	VenueID   string `yaml:"venue_id"`

	// HomeStateToken is the captured view state restored between
	// travellers. Captured at commissioning time; empty uses the engine
	// default view.
	HomeStateToken string `yaml:"home_state_token"`

	// ShowControls toggles the engine's built-in UI chrome.
	ShowControls bool `yaml:"show_controls"`

	// QuickCategories are the quick-action categories shown in the
	// engine's UI.
	QuickCategories []string `yaml:"quick_categories"`

	// RequestTimeoutSeconds bounds individual vendor API calls.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	// SearchSettleDelayMS is the pause (in milliseconds) between opening
	// the engine's search panel and submitting a query. The engine drops
	// queries typed before the panel has settled.
	SearchSettleDelayMS int `yaml:"search_settle_delay_ms"`

	// Plugins is the vendor plugin block, passed through opaquely at
	// instance construction.
	Plugins map[string]any `yaml:"plugins"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for fleet telemetry.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings. The API serves the kiosk
// UI on localhost; exposing it wider is a deployment decision.
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
}

// InfluxDBConfig contains InfluxDB connection settings for usage metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings for the admin endpoints.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
	AdminPassword  string `yaml:"admin_password"`
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: KIOSK_SECTION_KEY
// For example: KIOSK_DATABASE_PATH, KIOSK_ENGINE_API_KEY
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Kiosk: KioskConfig{
			ID:                   "kiosk-001",
			Name:                 "Concourse Kiosk",
			Timezone:             "UTC",
			WaitsRefreshInterval: 120,
			FallbackWaitMinutes:  15,
		},
		Engine: EngineConfig{
			RequestTimeoutSeconds: 15,
			SearchSettleDelayMS:   300,
			QuickCategories:       []string{"shop", "dine", "relax"},
		},
		Database: DatabaseConfig{
			Path:        "./data/kiosk.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "kiosk-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 100,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: KIOSK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Kiosk identity
	if v := os.Getenv("KIOSK_ID"); v != "" {
		cfg.Kiosk.ID = v
	}

	// Engine
	if v := os.Getenv("KIOSK_ENGINE_BASE_URL"); v != "" {
		cfg.Engine.BaseURL = v
	}
	if v := os.Getenv("KIOSK_ENGINE_API_KEY"); v != "" {
		cfg.Engine.APIKey = v
	}

	// Database
	if v := os.Getenv("KIOSK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("KIOSK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("KIOSK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("KIOSK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("KIOSK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("KIOSK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("KIOSK_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("KIOSK_ADMIN_PASSWORD"); v != "" {
		cfg.Security.JWT.AdminPassword = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Kiosk validation
	if c.Kiosk.ID == "" {
		errs = append(errs, "kiosk.id is required")
	}
	if c.Kiosk.Location.Latitude < -90 || c.Kiosk.Location.Latitude > 90 {
		errs = append(errs, "kiosk.location.latitude must be between -90 and 90")
	}
	if c.Kiosk.Location.Longitude < -180 || c.Kiosk.Location.Longitude > 180 {
		errs = append(errs, "kiosk.location.longitude must be between -180 and 180")
	}

	// Engine validation
	if c.Engine.BaseURL == "" {
		errs = append(errs, "engine.base_url is required")
	}
	if c.Engine.VenueID == "" {
		errs = append(errs, "engine.venue_id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security validation - JWT secret is REQUIRED
	// The admin endpoints can reconfigure an unattended public-facing
	// device; a forgeable token means a stranger owns the kiosk.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set KIOSK_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// EngineRequestTimeout returns the engine request timeout as a Duration.
func (c *Config) EngineRequestTimeout() time.Duration {
	return time.Duration(c.Engine.RequestTimeoutSeconds) * time.Second
}

// WaitsRefreshInterval returns the security wait refresh interval as a Duration.
func (c *Config) WaitsRefreshInterval() time.Duration {
	return time.Duration(c.Kiosk.WaitsRefreshInterval) * time.Second
}

// SearchSettleDelay returns the engine search settle delay as a Duration.
func (c *Config) SearchSettleDelay() time.Duration {
	return time.Duration(c.Engine.SearchSettleDelayMS) * time.Millisecond
}
