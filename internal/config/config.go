// Package config provides YAML-based configuration loading for memeyard.
//
// Secrets are usually kept out of the file: every token can be supplied
// through the environment, which overrides the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvPlatform         = "MEMEYARD_PLATFORM"
	EnvBroadcastChannel = "MEMEYARD_BROADCAST_CHANNEL"
	EnvDiscordToken     = "MEMEYARD_DISCORD_TOKEN"
	EnvSlackAppToken    = "MEMEYARD_SLACK_APP_TOKEN"
	EnvSlackBotToken    = "MEMEYARD_SLACK_BOT_TOKEN"
	EnvDatabasePassword = "MEMEYARD_DATABASE_PASSWORD"
	EnvRedisURL         = "MEMEYARD_REDIS_URL"
	EnvPort             = "PORT"
)

// Config is the top-level memeyard configuration, loaded from memeyard.yaml.
type Config struct {
	Platform         string         `yaml:"platform"`
	BroadcastChannel string         `yaml:"broadcast_channel"`
	Command          string         `yaml:"command"`
	Discord          DiscordConfig  `yaml:"discord"`
	Slack            SlackConfig    `yaml:"slack"`
	Database         DatabaseConfig `yaml:"database"`
	Session          SessionConfig  `yaml:"session"`
	HTTP             HTTPConfig     `yaml:"http"`
	Digest           DigestConfig   `yaml:"digest"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	GuildID  string `yaml:"guild_id"` // register the command per guild
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken string `yaml:"app_token"`
	BotToken string `yaml:"bot_token"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite | mysql
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// SessionConfig selects where conversation state is kept.
type SessionConfig struct {
	Backend  string `yaml:"backend"` // memory | redis
	RedisURL string `yaml:"redis_url"`
	TTLHours int    `yaml:"ttl_hours"` // 0 = no expiry
}

// TTL returns the session lifetime, zero for none.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// HTTPConfig controls the dashboard server.
type HTTPConfig struct {
	Enabled *bool `yaml:"enabled"` // default true
	Port    int   `yaml:"port"`
}

// On reports whether the dashboard should be served.
func (h HTTPConfig) On() bool {
	return h.Enabled == nil || *h.Enabled
}

// DigestConfig controls the scheduled queue digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Channel string `yaml:"channel"`
}

// LoadDotEnv loads variables from a .env file into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: load %s: %w", path, err)
}

// Load reads a YAML config file from path and returns a validated Config.
// An empty path builds the configuration from defaults and the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config, applying
// environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides file values with any set environment variables.
func (c *Config) applyEnv() error {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Platform, EnvPlatform)
	set(&c.BroadcastChannel, EnvBroadcastChannel)
	set(&c.Discord.BotToken, EnvDiscordToken)
	set(&c.Slack.AppToken, EnvSlackAppToken)
	set(&c.Slack.BotToken, EnvSlackBotToken)
	set(&c.Database.Password, EnvDatabasePassword)
	set(&c.Session.RedisURL, EnvRedisURL)

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvPort, err)
		}
		c.HTTP.Port = port
	}
	return nil
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = "discord"
	}
	c.Command = strings.TrimPrefix(c.Command, "/")
	if c.Command == "" {
		c.Command = "menu"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "memeyard.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "memeyard"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.RedisURL == "" {
		c.Session.RedisURL = "redis://localhost:6379/0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.BroadcastChannel == "" {
		errs = append(errs, "broadcast_channel is required")
	}
	switch c.Platform {
	case "discord":
		if c.Discord.BotToken == "" {
			errs = append(errs, "discord.bot_token is required")
		}
	case "slack":
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required")
		}
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("platform %q must be discord or slack", c.Platform))
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("session.backend %q must be memory or redis", c.Session.Backend))
	}
	if c.Session.TTLHours < 0 {
		errs = append(errs, "session.ttl_hours must not be negative")
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port %d is out of range", c.HTTP.Port))
	}
	if c.Digest.Enabled {
		if c.Digest.Channel == "" {
			errs = append(errs, "digest.channel is required when the digest is enabled")
		}
		if _, err := cron.ParseStandard(c.Digest.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("digest.cron %q: %v", c.Digest.Cron, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
