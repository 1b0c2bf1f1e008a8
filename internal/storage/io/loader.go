package io

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/tasklog/internal/model"
)

// ConfigYAMLRepository loads client configuration from YAML files.
type ConfigYAMLRepository struct {
	fs fs.FS
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(filesystem fs.FS) *ConfigYAMLRepository {
	return &ConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads a client configuration from a YAML file and returns a
// validated domain model.
func (r *ConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.ClientConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.ClientConfig{}, ctx.Err()
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.ClientConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return model.ClientConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg.toModel(), nil
}

// ClientConfig represents the YAML structure for client configuration.
type ClientConfig struct {
	ServerURL          string `yaml:"server_url"`
	DBPath             string `yaml:"db_path"`
	ReconnectDelayMS   int    `yaml:"reconnect_delay_ms"`
	HeartbeatTimeoutMS int    `yaml:"heartbeat_timeout_ms"`
	MaxBufferedEvents  int    `yaml:"max_buffered_events"`
}

func (c ClientConfig) validate() error {
	if c.ServerURL != "" {
		if _, err := url.Parse(c.ServerURL); err != nil {
			return fmt.Errorf("invalid server_url: %w", err)
		}
	}
	if c.ReconnectDelayMS < 0 {
		return fmt.Errorf("reconnect_delay_ms cannot be negative")
	}
	if c.MaxBufferedEvents < 0 {
		return fmt.Errorf("max_buffered_events cannot be negative")
	}
	return nil
}

func (c ClientConfig) toModel() model.ClientConfig {
	return model.ClientConfig{
		ServerURL:         c.ServerURL,
		DBPath:            c.DBPath,
		ReconnectDelay:    time.Duration(c.ReconnectDelayMS) * time.Millisecond,
		HeartbeatTimeout:  time.Duration(c.HeartbeatTimeoutMS) * time.Millisecond,
		MaxBufferedEvents: c.MaxBufferedEvents,
	}
}
