// Package config provides YAML-based configuration loading for Deskline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Deskline configuration, loaded from deskline.yaml.
type Config struct {
	Team        string            `yaml:"team"`
	MySQL       MySQLConfig       `yaml:"mysql"`
	MaxCapacity int               `yaml:"max_capacity"`
	SLA         map[string]string `yaml:"sla"`
	HTTP        HTTPConfig        `yaml:"http"`
	Digest      DigestConfig      `yaml:"digest"`
}

// MySQLConfig holds connection settings for the MySQL server.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// HTTPConfig holds settings for the JSON API server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// DigestConfig holds the scheduled-report settings. A digest is posted to
// every channel that has credentials configured.
type DigestConfig struct {
	Schedule string        `yaml:"schedule"` // 5-field cron expression
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack posting credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord posting credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
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
	if c.MySQL.Host == "" {
		c.MySQL.Host = "127.0.0.1"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.User == "" {
		c.MySQL.User = "root"
	}
	if c.MySQL.Database == "" && c.Team != "" {
		c.MySQL.Database = "deskline_" + c.Team
	}
	if c.MaxCapacity == 0 {
		c.MaxCapacity = 20
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Team == "" {
		errs = append(errs, "team is required")
	}
	if c.MaxCapacity < 1 {
		errs = append(errs, "max_capacity must be positive")
	}
	for pri, raw := range c.SLA {
		switch pri {
		case "low", "medium", "high", "urgent":
		default:
			errs = append(errs, fmt.Sprintf("sla: unknown priority %q", pri))
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("sla.%s: invalid duration %q", pri, raw))
		} else if d <= 0 {
			errs = append(errs, fmt.Sprintf("sla.%s: duration must be positive", pri))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SLAOverrides returns the parsed sla section. Call after validation; entries
// that fail to parse are skipped.
func (c *Config) SLAOverrides() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.SLA))
	for pri, raw := range c.SLA {
		if d, err := time.ParseDuration(raw); err == nil {
			out[pri] = d
		}
	}
	return out
}
