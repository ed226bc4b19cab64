// Package config loads node configuration from a JSON file overlaid with
// CASINO_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all node configuration.
type Config struct {
	NodeID          string   `json:"node_id"           env:"CASINO_NODE_ID"`
	DataDir         string   `json:"data_dir"          env:"CASINO_DATA_DIR"`
	KeyFile         string   `json:"key_file"          env:"CASINO_KEY_FILE"`
	Password        string   `json:"-"                 env:"CASINO_PASSWORD"` // keystore password; never written to disk
	LogLevel        string   `json:"log_level"         env:"CASINO_LOG_LEVEL"`
	LogFormat       string   `json:"log_format"        env:"CASINO_LOG_FORMAT"`
	BlockIntervalMS int64    `json:"block_interval_ms" env:"CASINO_BLOCK_INTERVAL_MS"`
	MaxBlockTxs     int      `json:"max_block_txs"     env:"CASINO_MAX_BLOCK_TXS"` // 0 → 500
	Workers         int      `json:"workers"           env:"CASINO_WORKERS"`       // pre-verify pool; 0 → GOMAXPROCS
	Validators      []string `json:"validators"        env:"CASINO_VALIDATORS" envSeparator:","`
	Genesis         Genesis  `json:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:          "node0",
		DataDir:         "./data",
		KeyFile:         "./data/validator.key",
		LogLevel:        "info",
		LogFormat:       "json",
		BlockIntervalMS: 1000,
		MaxBlockTxs:     500,
		Genesis: Genesis{
			ChainID: "casinochain-dev",
			Alloc:   map[string]Allocation{},
		},
	}
}

// BlockInterval is the sequencer tick.
func (c *Config) BlockInterval() time.Duration {
	if c.BlockIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.BlockIntervalMS) * time.Millisecond
}

// Load reads a JSON config file from path, then applies the environment.
// An empty path yields the defaults plus the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays CASINO_* variables onto cfg. Unset variables leave the
// field untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
