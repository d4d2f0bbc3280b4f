package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
team: support
max_capacity: 15

mysql:
  host: 10.0.0.5
  port: 3307
  user: deskline
  password: hunter2
  database: deskline_support

sla:
  urgent: 30m
  high: 2h

http:
  port: 9090

digest:
  schedule: "0 8 * * 1-5"
  slack:
    bot_token: xoxb-test
    channel: "#support-ops"
  discord:
    bot_token: discord-test
    channel_id: "123456"
`

const minimalYAML = `
team: support
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Team != "support" {
		t.Errorf("Team = %q, want %q", cfg.Team, "support")
	}
	if cfg.MaxCapacity != 15 {
		t.Errorf("MaxCapacity = %d, want 15", cfg.MaxCapacity)
	}
	if cfg.MySQL.Host != "10.0.0.5" {
		t.Errorf("MySQL.Host = %q, want %q", cfg.MySQL.Host, "10.0.0.5")
	}
	if cfg.MySQL.Port != 3307 {
		t.Errorf("MySQL.Port = %d, want 3307", cfg.MySQL.Port)
	}
	if cfg.MySQL.User != "deskline" {
		t.Errorf("MySQL.User = %q, want %q", cfg.MySQL.User, "deskline")
	}
	if cfg.MySQL.Database != "deskline_support" {
		t.Errorf("MySQL.Database = %q, want %q", cfg.MySQL.Database, "deskline_support")
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("HTTP.Port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Digest.Schedule != "0 8 * * 1-5" {
		t.Errorf("Digest.Schedule = %q, want %q", cfg.Digest.Schedule, "0 8 * * 1-5")
	}
	if cfg.Digest.Slack.Channel != "#support-ops" {
		t.Errorf("Digest.Slack.Channel = %q, want %q", cfg.Digest.Slack.Channel, "#support-ops")
	}
	if cfg.Digest.Discord.ChannelID != "123456" {
		t.Errorf("Digest.Discord.ChannelID = %q, want %q", cfg.Digest.Discord.ChannelID, "123456")
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MySQL.Host != "127.0.0.1" {
		t.Errorf("MySQL.Host = %q, want %q (default)", cfg.MySQL.Host, "127.0.0.1")
	}
	if cfg.MySQL.Port != 3306 {
		t.Errorf("MySQL.Port = %d, want 3306 (default)", cfg.MySQL.Port)
	}
	if cfg.MySQL.User != "root" {
		t.Errorf("MySQL.User = %q, want %q (default)", cfg.MySQL.User, "root")
	}
	if cfg.MySQL.Database != "deskline_support" {
		t.Errorf("MySQL.Database = %q, want %q (derived from team)", cfg.MySQL.Database, "deskline_support")
	}
	if cfg.MaxCapacity != 20 {
		t.Errorf("MaxCapacity = %d, want 20 (default)", cfg.MaxCapacity)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080 (default)", cfg.HTTP.Port)
	}
	if cfg.Digest.Schedule != "0 9 * * *" {
		t.Errorf("Digest.Schedule = %q, want %q (default)", cfg.Digest.Schedule, "0 9 * * *")
	}
}

func TestParse_ExplicitDatabase_NotOverridden(t *testing.T) {
	yaml := `
team: support
mysql:
  database: my_custom_db
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MySQL.Database != "my_custom_db" {
		t.Errorf("MySQL.Database = %q, want %q (should not be overridden)", cfg.MySQL.Database, "my_custom_db")
	}
}

func TestParse_MissingTeam(t *testing.T) {
	_, err := Parse([]byte(`max_capacity: 5`))
	if err == nil {
		t.Fatal("expected error for missing team")
	}
	if !strings.Contains(err.Error(), "team is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "team is required")
	}
}

func TestParse_NegativeCapacity(t *testing.T) {
	yaml := `
team: support
max_capacity: -3
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for negative capacity")
	}
	if !strings.Contains(err.Error(), "max_capacity must be positive") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "max_capacity must be positive")
	}
}

func TestParse_UnknownSLAPriority(t *testing.T) {
	yaml := `
team: support
sla:
  critical: 1h
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for unknown SLA priority")
	}
	if !strings.Contains(err.Error(), `unknown priority "critical"`) {
		t.Errorf("error = %q, want to contain %q", err.Error(), `unknown priority "critical"`)
	}
}

func TestParse_InvalidSLADuration(t *testing.T) {
	yaml := `
team: support
sla:
  urgent: soon
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "invalid duration")
	}
}

func TestParse_NonPositiveSLADuration(t *testing.T) {
	yaml := `
team: support
sla:
  high: -2h
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for non-positive duration")
	}
	if !strings.Contains(err.Error(), "duration must be positive") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "duration must be positive")
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	yaml := `
max_capacity: -1
sla:
  urgent: nope
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "team is required") {
		t.Errorf("error missing 'team is required': %s", msg)
	}
	if !strings.Contains(msg, "max_capacity must be positive") {
		t.Errorf("error missing 'max_capacity must be positive': %s", msg)
	}
	if !strings.Contains(msg, "invalid duration") {
		t.Errorf("error missing 'invalid duration': %s", msg)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestSLAOverrides(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := cfg.SLAOverrides()
	if got["urgent"] != 30*time.Minute {
		t.Errorf("overrides[urgent] = %v, want %v", got["urgent"], 30*time.Minute)
	}
	if got["high"] != 2*time.Hour {
		t.Errorf("overrides[high] = %v, want %v", got["high"], 2*time.Hour)
	}
	if len(got) != 2 {
		t.Errorf("len(overrides) = %d, want 2", len(got))
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deskline.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Team != "support" {
		t.Errorf("Team = %q, want %q", cfg.Team, "support")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/deskline.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}
