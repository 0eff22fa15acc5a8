// Package config provides YAML-based configuration loading for chatsync.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level console configuration, loaded from chatsync.yaml.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Backend   BackendConfig   `yaml:"backend"`
	Socket    SocketConfig    `yaml:"socket"`
	Retry     RetryConfig     `yaml:"retry"`
	Notify    NotifyConfig    `yaml:"notify"`
	Journal   JournalConfig   `yaml:"journal"`
	Digest    DigestConfig    `yaml:"digest"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Timezone  string          `yaml:"timezone"`
}

// AgentConfig identifies the agent operating the console.
type AgentConfig struct {
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// BackendConfig locates the REST API.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SocketConfig controls the real-time socket.
type SocketConfig struct {
	URL                  string `yaml:"url"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
	BaseBackoffMs        int    `yaml:"base_backoff_ms"`
	MaxBackoffMs         int    `yaml:"max_backoff_ms"`
}

// RetryConfig bounds retries of network operations.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms"`
}

// NotifyConfig selects how notifications are surfaced.
type NotifyConfig struct {
	Context       string        `yaml:"context"` // "desktop" or "mobile"
	SoundCommand  string        `yaml:"sound_command"`
	WindowCommand string        `yaml:"window_command"`
	Slack         SlackConfig   `yaml:"slack"`
	Discord       DiscordConfig `yaml:"discord"`
}

// SlackConfig relays window notifications to a Slack channel.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig relays window notifications to a Discord channel.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// JournalConfig locates the delivery journal database.
type JournalConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	Path   string `yaml:"path"`   // sqlite file
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Name   string `yaml:"database"`
}

// DigestConfig schedules the unread-preview digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// DashboardConfig controls the inspection server.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.TimeoutSec == 0 {
		c.Backend.TimeoutSec = 30
	}
	if c.Socket.MaxReconnectAttempts == 0 {
		c.Socket.MaxReconnectAttempts = 5
	}
	if c.Socket.BaseBackoffMs == 0 {
		c.Socket.BaseBackoffMs = 1000
	}
	if c.Socket.MaxBackoffMs == 0 {
		c.Socket.MaxBackoffMs = 30000
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.BaseDelayMs == 0 {
		c.Retry.BaseDelayMs = 1000
	}
	if c.Notify.Context == "" {
		c.Notify.Context = "desktop"
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = "sqlite"
	}
	if c.Journal.Driver == "sqlite" && c.Journal.Path == "" {
		c.Journal.Path = "chatsync.db"
	}
	if c.Journal.Driver == "mysql" {
		if c.Journal.Host == "" {
			c.Journal.Host = "127.0.0.1"
		}
		if c.Journal.Port == 0 {
			c.Journal.Port = 3306
		}
		if c.Journal.User == "" {
			c.Journal.User = "root"
		}
		if c.Journal.Name == "" {
			c.Journal.Name = "chatsync"
		}
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * 1-5"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8090
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Agent.Email == "" {
		errs = append(errs, "agent.email is required")
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	if c.Socket.URL == "" {
		errs = append(errs, "socket.url is required")
	}
	if c.Notify.Context != "desktop" && c.Notify.Context != "mobile" {
		errs = append(errs, fmt.Sprintf("notify.context %q must be desktop or mobile", c.Notify.Context))
	}
	if c.Journal.Driver != "sqlite" && c.Journal.Driver != "mysql" {
		errs = append(errs, fmt.Sprintf("journal.driver %q must be sqlite or mysql", c.Journal.Driver))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, "retry.max_retries must not be negative")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("timezone %q: %v", c.Timezone, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location returns the configured time zone, or time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// RetryBaseDelay returns Retry.BaseDelayMs as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond
}

// BackendTimeout returns Backend.TimeoutSec as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}
