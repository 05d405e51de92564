package application

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runner configuration. ValidationMode bounds order block
// condition windows to historical data only; forward mode leaves them open to
// the latest candle.
type Config struct {
	Symbols        []string `yaml:"symbols"`
	Interval       string   `yaml:"interval"`
	ValidationMode bool     `yaml:"validation_mode"`
	DataDir        string   `yaml:"data_dir"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Feed     FeedConfig     `yaml:"feed"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Broker   BrokerConfig   `yaml:"broker"`
}

// DatabaseConfig points at the Postgres the runners persist into. An empty
// DSN disables persistence.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-query timeout.
func (c DatabaseConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig points at the Redis used for lifecycle state. An empty Addr
// falls back to in-memory state.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// FeedConfig points at the kline websocket endpoint for forward mode.
type FeedConfig struct {
	URL string `yaml:"url"`
}

// MetricsConfig controls the observability server.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// BrokerConfig tunes the order gateway protections.
type BrokerConfig struct {
	RPS                 float64 `yaml:"rps"`
	Burst               int     `yaml:"burst"`
	ConsecutiveFailures uint32  `yaml:"consecutive_failures"`
	OpenTimeoutSeconds  int     `yaml:"open_timeout_seconds"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fills defaults and rejects unusable configurations.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	if c.Interval == "" {
		c.Interval = "15m"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9109"
	}
	if c.Broker.RPS <= 0 {
		c.Broker.RPS = 5
	}
	if c.Broker.Burst <= 0 {
		c.Broker.Burst = 10
	}
	if c.Broker.ConsecutiveFailures == 0 {
		c.Broker.ConsecutiveFailures = 5
	}
	if c.Broker.OpenTimeoutSeconds <= 0 {
		c.Broker.OpenTimeoutSeconds = 30
	}
	return nil
}
