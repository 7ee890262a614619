package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Thing Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Database  DatabaseConfig  `yaml:"database"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GatewayConfig contains gateway-wide settings.
type GatewayConfig struct {
	// Name identifies this gateway instance in logs and status topics.
	Name string `yaml:"name"`

	// ThingsRoot is the URL path prefix under which things are addressed.
	// Thing hrefs are derived as <things_root>/<id>.
	ThingsRoot string `yaml:"things_root"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// UploadsConfig contains settings for uploaded binary assets (thing icons).
type UploadsConfig struct {
	// Dir is the writable directory where icon files are stored.
	Dir string `yaml:"dir"`

	// BaseHref is the public URL path prefix for uploaded files.
	BaseHref string `yaml:"base_href"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket session settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
	SendBuffer     int `yaml:"send_buffer"`
}

// MQTTConfig contains MQTT event relay settings.
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains event telemetry settings.
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
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default configuration values.
const (
	defaultThingsRoot   = "/things"
	defaultUploadsHref  = "/uploads"
	defaultAPIPort      = 8080
	defaultReadTimeout  = 15
	defaultWriteTimeout = 15
	defaultIdleTimeout  = 60
	defaultMaxMessage   = 65536
	defaultPingInterval = 30
	defaultPongTimeout  = 60
	defaultSendBuffer   = 256
	defaultBusyTimeout  = 5
	defaultMQTTPort     = 1883
)

// Load reads configuration from the given YAML file, applies environment
// variable overrides, fills defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the operator's CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides overrides sensitive or deployment-specific values from
// the environment. Only values an operator would reasonably inject at runtime
// are overridable; structural settings stay in the YAML file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("THINGCORE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("THINGCORE_UPLOADS_DIR"); v != "" {
		c.Uploads.Dir = v
	}
	if v := os.Getenv("THINGCORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
	if v := os.Getenv("THINGCORE_MQTT_PASSWORD"); v != "" {
		c.MQTT.Auth.Password = v
	}
	if v := os.Getenv("THINGCORE_INFLUXDB_TOKEN"); v != "" {
		c.InfluxDB.Token = v
	}
	if v := os.Getenv("THINGCORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// applyDefaults fills unset fields with documented defaults.
func (c *Config) applyDefaults() {
	if c.Gateway.Name == "" {
		c.Gateway.Name = "thingcore"
	}
	if c.Gateway.ThingsRoot == "" {
		c.Gateway.ThingsRoot = defaultThingsRoot
	}
	if c.Uploads.BaseHref == "" {
		c.Uploads.BaseHref = defaultUploadsHref
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaultBusyTimeout
	}
	if c.API.Port == 0 {
		c.API.Port = defaultAPIPort
	}
	if c.API.Timeouts.Read == 0 {
		c.API.Timeouts.Read = defaultReadTimeout
	}
	if c.API.Timeouts.Write == 0 {
		c.API.Timeouts.Write = defaultWriteTimeout
	}
	if c.API.Timeouts.Idle == 0 {
		c.API.Timeouts.Idle = defaultIdleTimeout
	}
	if c.WebSocket.MaxMessageSize == 0 {
		c.WebSocket.MaxMessageSize = defaultMaxMessage
	}
	if c.WebSocket.PingInterval == 0 {
		c.WebSocket.PingInterval = defaultPingInterval
	}
	if c.WebSocket.PongTimeout == 0 {
		c.WebSocket.PongTimeout = defaultPongTimeout
	}
	if c.WebSocket.SendBuffer == 0 {
		c.WebSocket.SendBuffer = defaultSendBuffer
	}
	if c.MQTT.Broker.Port == 0 {
		c.MQTT.Broker.Port = defaultMQTTPort
	}
	if c.MQTT.Broker.ClientID == "" {
		c.MQTT.Broker.ClientID = c.Gateway.Name
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for errors that would prevent startup.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if c.Uploads.Dir == "" {
		problems = append(problems, "uploads.dir is required")
	}
	if !strings.HasPrefix(c.Gateway.ThingsRoot, "/") {
		problems = append(problems, "gateway.things_root must start with /")
	}
	if !strings.HasPrefix(c.Uploads.BaseHref, "/") {
		problems = append(problems, "uploads.base_href must start with /")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		problems = append(problems, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		problems = append(problems, "api.tls requires cert_file and key_file when enabled")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		problems = append(problems, "mqtt.broker.host is required when mqtt is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		problems = append(problems, "mqtt.qos must be 0, 1 or 2")
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			problems = append(problems, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			problems = append(problems, "influxdb.token is required when influxdb is enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
