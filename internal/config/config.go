package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/walink/internal/client"
	"github.com/matheus3301/walink/internal/session"
)

const (
	DefaultSessionPath    = "./sessions"
	DefaultReconnectDelay = 3000
)

// Config represents walink.toml.
type Config struct {
	SessionPath string     `toml:"session_path"`
	Debug       bool       `toml:"debug"`
	Socket      string     `toml:"socket"`
	MetricsAddr string     `toml:"metrics_addr"`
	Instances   []Instance `toml:"instance"`
}

// Instance configures one client instance. Pointer fields distinguish
// "absent" from an explicit zero/false.
type Instance struct {
	ID                   string `toml:"id"`
	AutoReconnect        *bool  `toml:"auto_reconnect,omitempty"`
	MaxReconnectAttempts int    `toml:"max_reconnect_attempts,omitempty"`
	ReconnectDelayMS     int    `toml:"reconnect_delay_ms,omitempty"`
	IdentityCacheSize    int    `toml:"identity_cache_size,omitempty"`
}

// Defaults returns a config with a single "main" instance.
func Defaults() *Config {
	return &Config{
		SessionPath: DefaultSessionPath,
		Instances:   []Instance{{ID: "main"}},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
// Unset top-level values are filled from Defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = DefaultSessionPath
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks instance ids and numeric bounds.
func (c *Config) Validate() error {
	if len(c.Instances) == 0 {
		return fmt.Errorf("config: at least one [[instance]] is required")
	}
	seen := make(map[string]bool, len(c.Instances))
	for _, inst := range c.Instances {
		if err := session.ValidateName(inst.ID); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if seen[inst.ID] {
			return fmt.Errorf("config: duplicate instance %q", inst.ID)
		}
		seen[inst.ID] = true
		if inst.MaxReconnectAttempts < 0 || inst.ReconnectDelayMS < 0 || inst.IdentityCacheSize < 0 {
			return fmt.Errorf("config: instance %q: negative values are not allowed", inst.ID)
		}
	}
	return nil
}

// Instance returns the table for id.
func (c *Config) Instance(id string) (Instance, bool) {
	for _, inst := range c.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instance{}, false
}

// ClientOptions builds client options for id, applying defaults for
// anything the instance table leaves out.
func (c *Config) ClientOptions(id string) (client.Options, error) {
	inst, ok := c.Instance(id)
	if !ok {
		return client.Options{}, fmt.Errorf("config: unknown instance %q", id)
	}
	autoReconnect := true
	if inst.AutoReconnect != nil {
		autoReconnect = *inst.AutoReconnect
	}
	delay := inst.ReconnectDelayMS
	if delay == 0 {
		delay = DefaultReconnectDelay
	}
	sessionPath := c.SessionPath
	if sessionPath == "" {
		sessionPath = DefaultSessionPath
	}
	return client.Options{
		InstanceID:           inst.ID,
		SessionPath:          sessionPath,
		Debug:                c.Debug,
		AutoReconnect:        autoReconnect,
		MaxReconnectAttempts: inst.MaxReconnectAttempts,
		ReconnectDelay:       time.Duration(delay) * time.Millisecond,
		IdentityCacheSize:    inst.IdentityCacheSize,
	}, nil
}
