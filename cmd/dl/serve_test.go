package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/desklinehq/deskline/internal/config"
)

func TestServeCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("serve --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "API server") {
		t.Errorf("expected help to mention 'API server', got: %s", out)
	}
	if !strings.Contains(out, "--no-digest") {
		t.Errorf("expected help to mention '--no-digest', got: %s", out)
	}
}

func TestBuildPosters_NoneConfigured(t *testing.T) {
	cfg := &config.Config{}
	posters, names, err := buildPosters(cfg)
	if err != nil {
		t.Fatalf("buildPosters: %v", err)
	}
	if len(posters) != 0 || len(names) != 0 {
		t.Errorf("expected no posters, got %v", names)
	}
}

func TestBuildPosters_SlackOnly(t *testing.T) {
	cfg := &config.Config{}
	cfg.Digest.Slack.BotToken = "xoxb-test"
	cfg.Digest.Slack.Channel = "C123"

	posters, names, err := buildPosters(cfg)
	if err != nil {
		t.Fatalf("buildPosters: %v", err)
	}
	if len(posters) != 1 || names[0] != "slack" {
		t.Errorf("expected one slack poster, got %v", names)
	}
}

func TestBuildPosters_SlackMissingChannel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Digest.Slack.BotToken = "xoxb-test"

	_, _, err := buildPosters(cfg)
	if err == nil {
		t.Fatal("expected error for slack token without channel")
	}
}

func TestBuildPosters_Both(t *testing.T) {
	cfg := &config.Config{}
	cfg.Digest.Slack.BotToken = "xoxb-test"
	cfg.Digest.Slack.Channel = "C123"
	cfg.Digest.Discord.BotToken = "discord-test"
	cfg.Digest.Discord.ChannelID = "456"

	posters, names, err := buildPosters(cfg)
	if err != nil {
		t.Fatalf("buildPosters: %v", err)
	}
	if len(posters) != 2 {
		t.Fatalf("expected two posters, got %v", names)
	}
	if names[0] != "slack" || names[1] != "discord" {
		t.Errorf("names = %v, want [slack discord]", names)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("team: support\nsla:\n  urgent: 45m\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := policyFromConfig(cfg)
	if p.Offset("urgent").Minutes() != 45 {
		t.Errorf("urgent offset = %v, want 45m", p.Offset("urgent"))
	}
	if p.Offset("low").Hours() != 72 {
		t.Errorf("low offset = %v, want default 72h", p.Offset("low"))
	}
}
