package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// LoggerConfig holds the logging configuration.
type LoggerConfig struct {
	Level      string `json:"level"`  // e.g., "debug", "info", "warn", "error"
	Format     string `json:"format"` // "json" or "text"
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // megabytes
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

// ThresholdConfig holds the t-of-n decryption parameters for the epoch.
type ThresholdConfig struct {
	Threshold int `json:"threshold"`
	Nodes     int `json:"nodes"`
}

// RoundConfig holds the matching round parameters.
type RoundConfig struct {
	IntervalSeconds  int    `json:"interval_seconds"`
	FreshnessSeconds int    `json:"freshness_seconds"` // solvency proof window
	FeeBps           uint64 `json:"fee_bps"`
	MinOrderSize     uint64 `json:"min_order_size"`
	MaxOrderSize     uint64 `json:"max_order_size"`
}

// ExecutorConfig holds the executor network parameters.
type ExecutorConfig struct {
	HeartbeatSeconds int    `json:"heartbeat_seconds"`
	RequestTimeoutMS int    `json:"request_timeout_ms"`
	MinStake         uint64 `json:"min_stake"`
	SlashLimit       int    `json:"slash_limit"`
}

// Config holds the full node configuration.
type Config struct {
	Pairs     []string        `json:"pairs"`
	Workers   int             `json:"workers"` // 0 means NumCPU
	Threshold ThresholdConfig `json:"threshold"`
	Round     RoundConfig     `json:"round"`
	Executor  ExecutorConfig  `json:"executor"`
	Logger    LoggerConfig    `json:"logger"`
}

// Load reads the configuration from a JSON file.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &Config{}
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Threshold.Threshold < 1 || c.Threshold.Threshold > c.Threshold.Nodes {
		return fmt.Errorf("config: invalid threshold %d-of-%d", c.Threshold.Threshold, c.Threshold.Nodes)
	}
	if c.Round.MinOrderSize > c.Round.MaxOrderSize {
		return fmt.Errorf("config: min order size %d above max %d", c.Round.MinOrderSize, c.Round.MaxOrderSize)
	}
	if c.Round.FeeBps >= 10_000 {
		return fmt.Errorf("config: fee %d bps not below 100%%", c.Round.FeeBps)
	}
	return nil
}

// RoundInterval returns the configured round cadence.
func (c *Config) RoundInterval() time.Duration {
	return time.Duration(c.Round.IntervalSeconds) * time.Second
}

// Freshness returns the solvency proof freshness window.
func (c *Config) Freshness() time.Duration {
	return time.Duration(c.Round.FreshnessSeconds) * time.Second
}

// HeartbeatInterval returns the expected executor heartbeat cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Executor.HeartbeatSeconds) * time.Second
}

// RequestTimeout returns the per-node decryption request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Executor.RequestTimeoutMS) * time.Millisecond
}
