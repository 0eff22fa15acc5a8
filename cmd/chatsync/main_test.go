package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "chatsync dev") {
		t.Errorf("expected output to contain 'chatsync dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "chatsync 1.0.0") {
		t.Errorf("expected output to contain 'chatsync 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"version", "run", "send", "log", "history", "health", "notifications"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	ok := &cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }}
	ok.SetArgs([]string{})
	if got := execute(ok); got != 0 {
		t.Errorf("execute(ok) = %d, want 0", got)
	}

	bad := &cobra.Command{Use: "bad", SilenceErrors: true, SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error { return fmt.Errorf("boom") }}
	bad.SetArgs([]string{})
	if got := execute(bad); got != 1 {
		t.Errorf("execute(bad) = %d, want 1", got)
	}
}

func TestCommands_MissingConfig(t *testing.T) {
	tests := [][]string{
		{"run", "--config", "/nonexistent/chatsync.yaml"},
		{"send", "--config", "/nonexistent/chatsync.yaml", "--room", "r1", "hi"},
		{"log", "--config", "/nonexistent/chatsync.yaml", "--room", "r1"},
		{"history", "--config", "/nonexistent/chatsync.yaml", "m1"},
		{"health", "--config", "/nonexistent/chatsync.yaml"},
		{"notifications", "--config", "/nonexistent/chatsync.yaml"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			cmd := newRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(args)

			err := cmd.Execute()
			if err == nil {
				t.Fatal("expected error for missing config file")
			}
			if !strings.Contains(err.Error(), "load config") {
				t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
			}
		})
	}
}

func TestContainerFlags(t *testing.T) {
	tests := []struct {
		room, discussion string
		want             string
		wantErr          bool
	}{
		{room: "r1", want: "room:r1"},
		{discussion: "d1", want: "discussion:d1"},
		{wantErr: true},
		{room: "r1", discussion: "d1", wantErr: true},
	}
	for _, tt := range tests {
		got, err := containerFlags(tt.room, tt.discussion)
		if tt.wantErr {
			if err == nil {
				t.Errorf("containerFlags(%q, %q) expected error", tt.room, tt.discussion)
			}
			continue
		}
		if err != nil {
			t.Errorf("containerFlags(%q, %q): %v", tt.room, tt.discussion, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("containerFlags(%q, %q) = %s, want %s", tt.room, tt.discussion, got, tt.want)
		}
	}
}

// writeConfig writes a config pointing at backendURL with a journal in a
// temp directory, and returns its path.
func writeConfig(t *testing.T, backendURL string) string {
	t.Helper()
	dir := t.TempDir()
	data := fmt.Sprintf(`agent:
  email: agent@example.com
  first_name: Ada
  last_name: Lovelace
backend:
  base_url: %s
  token: test-token
socket:
  url: ws://127.0.0.1:1/ws
  max_reconnect_attempts: 1
  base_backoff_ms: 1
retry:
  max_retries: 1
  base_delay_ms: 1
journal:
  driver: sqlite
  path: %s
timezone: UTC
`, backendURL, filepath.Join(dir, "journal.db"))
	path := filepath.Join(dir, "chatsync.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
