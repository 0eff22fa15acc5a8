package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/zulandar/chatsync/internal/health"
)

func TestHealthCmd_Help(t *testing.T) {
	out, err := runCmd(t, "health", "--help")
	if err != nil {
		t.Fatalf("health --help failed: %v", err)
	}
	if !strings.Contains(out, "--wait") || !strings.Contains(out, "--config") {
		t.Errorf("help = %s", out)
	}
}

func TestHealthCmd_Open(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, "http://127.0.0.1:1")
	data, _ := os.ReadFile(cfgPath)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	data = []byte(strings.Replace(string(data), "ws://127.0.0.1:1/ws", wsURL, 1))
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "health", "--config", cfgPath, "--wait", "10ms")
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	if !strings.Contains(out, "Socket:    open") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Banner:    hidden") {
		t.Errorf("output = %q", out)
	}
}

func TestHealthCmd_Unreachable(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1")
	out, err := runCmd(t, "health", "--config", cfgPath, "--wait", "0s")
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	if !strings.Contains(out, "Socket:    closed") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, health.MessageDisconnected) {
		t.Errorf("output = %q, want disconnected banner", out)
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	printBanner(&buf, health.Banner{Visible: true, Kind: health.BannerReconnecting, Message: "Trying"}, true)
	if !strings.Contains(buf.String(), "\033[33mTrying\033[0m") {
		t.Errorf("tty banner = %q", buf.String())
	}

	buf.Reset()
	printBanner(&buf, health.Banner{Visible: true, Kind: health.BannerDisconnected, Message: "Down"}, false)
	if buf.String() != "Banner:    Down (disconnected)\n" {
		t.Errorf("plain banner = %q", buf.String())
	}
}
