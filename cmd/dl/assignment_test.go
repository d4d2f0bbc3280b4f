package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestAssignmentCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"assignment", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("assignment --help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"create", "list", "show", "transfer", "escalate", "complete", "cancel", "priority", "metrics", "field"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestAssignmentCreateCmd_RequiredFlags(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"assignment", "create", "--entity-type", "conversation"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing required flags")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want required-flag error", err.Error())
	}
}

func TestAssignmentShowCmd_RequiresArg(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"assignment", "show"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing assignment ID")
	}
}

func TestAssignmentListCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"assignment", "list", "--config", "/nonexistent/deskline.yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q, want %q", got, "01234567")
	}
	if got := shortID("short"); got != "short" {
		t.Errorf("shortID = %q, want unchanged", got)
	}
}
