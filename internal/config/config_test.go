package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
agent:
  email: ana@support.io
  first_name: Ana
  last_name: Lima

backend:
  base_url: https://api.support.io/v2/
  token: secret-token
  timeout_sec: 10

socket:
  url: wss://ws.support.io/agent
  max_reconnect_attempts: 7
  base_backoff_ms: 500
  max_backoff_ms: 8000

retry:
  max_retries: 4
  base_delay_ms: 250

notify:
  context: mobile
  sound_command: "paplay /usr/share/sounds/ding.oga"
  window_command: "notify-send '{{.Title}}' '{{.Body}}'"
  slack:
    bot_token: xoxb-1
    channel: C123

journal:
  driver: mysql
  host: 10.0.0.5
  database: chatsync_prod

digest:
  enabled: true
  cron: "30 8 * * *"

dashboard:
  port: 9000

timezone: America/Sao_Paulo
`

const minimalYAML = `
agent:
  email: bob@support.io
backend:
  base_url: https://api.support.io
socket:
  url: wss://ws.support.io
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Agent.Email != "ana@support.io" {
		t.Errorf("Agent.Email = %q, want %q", cfg.Agent.Email, "ana@support.io")
	}
	if cfg.Backend.BaseURL != "https://api.support.io/v2" {
		t.Errorf("Backend.BaseURL = %q, want trailing slash trimmed", cfg.Backend.BaseURL)
	}
	if cfg.BackendTimeout() != 10*time.Second {
		t.Errorf("BackendTimeout() = %v, want 10s", cfg.BackendTimeout())
	}
	if cfg.Socket.MaxReconnectAttempts != 7 {
		t.Errorf("Socket.MaxReconnectAttempts = %d, want 7", cfg.Socket.MaxReconnectAttempts)
	}
	if cfg.Retry.MaxRetries != 4 {
		t.Errorf("Retry.MaxRetries = %d, want 4", cfg.Retry.MaxRetries)
	}
	if cfg.RetryBaseDelay() != 250*time.Millisecond {
		t.Errorf("RetryBaseDelay() = %v, want 250ms", cfg.RetryBaseDelay())
	}
	if cfg.Notify.Context != "mobile" {
		t.Errorf("Notify.Context = %q, want mobile", cfg.Notify.Context)
	}
	if cfg.Notify.Slack.Channel != "C123" {
		t.Errorf("Notify.Slack.Channel = %q, want C123", cfg.Notify.Slack.Channel)
	}
	if cfg.Journal.Driver != "mysql" {
		t.Errorf("Journal.Driver = %q, want mysql", cfg.Journal.Driver)
	}
	if cfg.Journal.Port != 3306 {
		t.Errorf("Journal.Port = %d, want 3306 (default)", cfg.Journal.Port)
	}
	if cfg.Journal.Name != "chatsync_prod" {
		t.Errorf("Journal.Name = %q, want chatsync_prod", cfg.Journal.Name)
	}
	if !cfg.Digest.Enabled || cfg.Digest.Cron != "30 8 * * *" {
		t.Errorf("Digest = %+v", cfg.Digest)
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("Dashboard.Port = %d, want 9000", cfg.Dashboard.Port)
	}
	if cfg.Location().String() != "America/Sao_Paulo" {
		t.Errorf("Location() = %v, want America/Sao_Paulo", cfg.Location())
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Socket.MaxReconnectAttempts != 5 {
		t.Errorf("Socket.MaxReconnectAttempts = %d, want 5 (default)", cfg.Socket.MaxReconnectAttempts)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("Retry.MaxRetries = %d, want 3 (default)", cfg.Retry.MaxRetries)
	}
	if cfg.RetryBaseDelay() != time.Second {
		t.Errorf("RetryBaseDelay() = %v, want 1s (default)", cfg.RetryBaseDelay())
	}
	if cfg.Notify.Context != "desktop" {
		t.Errorf("Notify.Context = %q, want desktop (default)", cfg.Notify.Context)
	}
	if cfg.Journal.Driver != "sqlite" || cfg.Journal.Path != "chatsync.db" {
		t.Errorf("Journal = %+v, want sqlite chatsync.db (default)", cfg.Journal)
	}
	if cfg.Digest.Cron != "0 9 * * 1-5" {
		t.Errorf("Digest.Cron = %q, want default", cfg.Digest.Cron)
	}
	if cfg.Location() != time.Local {
		t.Errorf("Location() = %v, want Local", cfg.Location())
	}
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := Parse([]byte(`notify: {context: desktop}`))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"agent.email is required", "backend.base_url is required", "socket.url is required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q: %s", want, msg)
		}
	}
}

func TestParse_InvalidEnums(t *testing.T) {
	yaml := minimalYAML + `
notify:
  context: tablet
journal:
  driver: postgres
timezone: Mars/Olympus
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{`notify.context "tablet"`, `journal.driver "postgres"`, `timezone "Mars/Olympus"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q: %s", want, msg)
		}
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

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatsync.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Email != "bob@support.io" {
		t.Errorf("Agent.Email = %q, want bob@support.io", cfg.Agent.Email)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}
