// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server configures the MCP server process.
type Server struct {
	APIURL        string `env:"ELECTIVES_API_URL"`
	APIKey        string `env:"ELECTIVES_API_KEY"`
	AccessToken   string `env:"ELECTIVES_ACCESS_TOKEN"`
	InstitutionID string `env:"ELECTIVES_INSTITUTION_ID"`

	// RealtimeURL enables change-driven invalidation when set.
	RealtimeURL       string        `env:"ELECTIVES_REALTIME_URL"`
	RealtimeHeartbeat time.Duration `env:"ELECTIVES_REALTIME_HEARTBEAT" envDefault:"30s"`

	CacheSocket      string        `env:"ELECTIVES_CACHE_SOCK"`
	GuardGenerations bool          `env:"ELECTIVES_GUARD_GENERATIONS"`
	StaleTolerance   time.Duration `env:"ELECTIVES_STALE_TOLERANCE" envDefault:"24h"`
}

// CacheServer configures the cache daemon.
type CacheServer struct {
	Socket        string `env:"ELECTIVES_CACHE_SOCK"`
	DBPath        string `env:"ELECTIVES_CACHE_DB"`
	Bucket        string `env:"ELECTIVES_CACHE_BUCKET" envDefault:"electives"`
	MaxValueBytes int    `env:"ELECTIVES_CACHE_MAX_VALUE_BYTES" envDefault:"5242880"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer parses and validates the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.CacheSocket == "" {
		cfg.CacheSocket = DefaultSocketPath()
	}
	return cfg, cfg.Validate()
}

func (c Server) Validate() error {
	if c.APIURL == "" {
		return errors.New("ELECTIVES_API_URL is required")
	}
	if c.APIKey == "" {
		return errors.New("ELECTIVES_API_KEY is required")
	}
	if c.StaleTolerance < 0 {
		return errors.New("ELECTIVES_STALE_TOLERANCE must not be negative")
	}
	return nil
}

// LoadCacheServer parses the daemon configuration, filling default paths.
func LoadCacheServer() (CacheServer, error) {
	var cfg CacheServer
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Socket == "" {
		cfg.Socket = DefaultSocketPath()
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, nil
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "electives-mcp")
}

func DefaultSocketPath() string { return filepath.Join(cacheDir(), "cache.sock") }

func DefaultDBPath() string { return filepath.Join(cacheDir(), "cache.bbolt") }
