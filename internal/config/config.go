// Package config loads node configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the node's full configuration.
type Config struct {
	Node      NodeConfig      `toml:"node"`
	Database  DatabaseConfig  `toml:"database"`
	Sync      SyncConfig      `toml:"sync"`
	Directory DirectoryConfig `toml:"directory"`
}

// NodeConfig identifies this node on the network.
type NodeConfig struct {
	Endpoint    string `toml:"endpoint"`     // advertised endpoint, e.g. https://cn1.example.com
	ListenAddr  string `toml:"listen_addr"`  // HTTP listen address
	StorageRoot string `toml:"storage_root"` // root directory for content files
	NetworkKey  string `toml:"network_key"`  // shared HS256 key for node-to-node auth; empty disables
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN string `toml:"dsn"`
}

// SyncConfig tunes the replication engine.
type SyncConfig struct {
	ExportTimeoutSeconds int `toml:"export_timeout_seconds"` // whole-export timeout
	FetchTimeoutSeconds  int `toml:"fetch_timeout_seconds"`  // per-content-fetch timeout
	MaxConcurrentFetches int `toml:"max_concurrent_fetches"` // content materialization bound
	MaxExportClockRange  int `toml:"max_export_clock_range"` // clock records served per export
}

// DirectoryConfig points at the external replica-set directory service.
type DirectoryConfig struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a Config from the provided reader and applies defaults.
func Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Node.ListenAddr == "" {
		c.Node.ListenAddr = ":8080"
	}
	if c.Sync.ExportTimeoutSeconds <= 0 {
		c.Sync.ExportTimeoutSeconds = 300
	}
	if c.Sync.FetchTimeoutSeconds <= 0 {
		c.Sync.FetchTimeoutSeconds = 60
	}
	if c.Sync.MaxConcurrentFetches <= 0 {
		c.Sync.MaxConcurrentFetches = 10
	}
	if c.Sync.MaxExportClockRange <= 0 {
		c.Sync.MaxExportClockRange = 10000
	}
	if c.Directory.TimeoutSeconds <= 0 {
		c.Directory.TimeoutSeconds = 30
	}
}

func (c *Config) validate() error {
	switch {
	case c.Node.Endpoint == "":
		return errors.New("config: node.endpoint is required")
	case c.Node.StorageRoot == "":
		return errors.New("config: node.storage_root is required")
	case c.Database.DSN == "":
		return errors.New("config: database.dsn is required")
	case c.Directory.Endpoint == "":
		return errors.New("config: directory.endpoint is required")
	}
	return nil
}
