package health

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zulandar/chatsync/internal/models"
)

func TestNew_RequiresConnection(t *testing.T) {
	_, err := New(Opts{})
	if err == nil || err.Error() != "health: connection is required" {
		t.Errorf("err = %v", err)
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		status   models.ConnectionStatus
		attempts int
		route    Route
		want     Banner
	}{
		{"open", models.ConnOpen, 0, RouteRoom, Banner{}},
		{"closed in room", models.ConnClosed, 0, RouteRoom, Banner{true, BannerDisconnected, MessageDisconnected}},
		{"closed at home", models.ConnClosed, 0, RouteHome, Banner{true, BannerDisconnected, MessageDisconnected}},
		{"closed in discussion", models.ConnClosed, 2, RouteDiscussion, Banner{true, BannerDisconnected, MessageDisconnected}},
		{"closed in settings", models.ConnClosed, 0, Route("settings"), Banner{}},
		{"connecting below max", models.ConnConnecting, 3, RouteRoom, Banner{}},
		{"connecting at max", models.ConnConnecting, 5, RouteRoom, Banner{true, BannerReconnecting, MessageReconnecting}},
		{"connecting above max", models.ConnConnecting, 7, RouteHome, Banner{true, BannerReconnecting, MessageReconnecting}},
		{"connecting at max outside routes", models.ConnConnecting, 5, Route("dashboard"), Banner{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.status, tt.attempts, models.MaxReconnectAttempts, tt.route)
			if got != tt.want {
				t.Errorf("Derive = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMonitor_BannerScenarios(t *testing.T) {
	conn := NewMockConnection(models.ConnOpen, 0)
	routes := NewRouteState(RouteRoom)
	m, _ := New(Opts{Connection: conn, Routes: routes, Out: &bytes.Buffer{}})

	if m.Banner().Visible {
		t.Error("open: banner visible, want hidden")
	}
	conn.Set(models.ConnClosed, 0)
	if !m.Banner().Visible {
		t.Error("closed in room: banner hidden, want visible")
	}
	conn.Set(models.ConnConnecting, 3)
	if m.Banner().Visible {
		t.Error("connecting 3/5: banner visible, want hidden")
	}
	conn.Set(models.ConnConnecting, 5)
	if b := m.Banner(); !b.Visible || b.Kind != BannerReconnecting {
		t.Errorf("connecting 5/5: banner = %+v, want reconnecting", b)
	}
	routes.Set(Route("settings"))
	if m.Banner().Visible {
		t.Error("settings route: banner visible, want hidden")
	}
}

func TestMonitor_RestoredToastOnce(t *testing.T) {
	conn := NewMockConnection(models.ConnOpen, 0)
	var toasts []string
	out := &bytes.Buffer{}
	m, _ := New(Opts{
		Connection: conn,
		Routes:     NewRouteState(RouteRoom),
		OnRestored: func(msg string) { toasts = append(toasts, msg) },
		Out:        out,
	})

	m.Observe()
	if len(toasts) != 0 {
		t.Fatal("no toast expected while healthy")
	}

	conn.Set(models.ConnClosed, 0)
	m.Observe()
	conn.Set(models.ConnOpen, 0)
	m.Observe()
	if len(toasts) != 1 || toasts[0] != MessageRestored {
		t.Fatalf("toasts = %v, want one restored toast", toasts)
	}

	conn.Set(models.ConnClosed, 0)
	m.Observe()
	conn.Set(models.ConnOpen, 0)
	m.Observe()
	if len(toasts) != 1 {
		t.Errorf("toasts = %d, want still 1", len(toasts))
	}
	if !bytes.Contains(out.Bytes(), []byte(MessageRestored)) {
		t.Errorf("output = %q", out.String())
	}
}

func TestMonitor_ForceRefresh(t *testing.T) {
	conn := NewMockConnection(models.ConnClosed, 5)
	m, _ := New(Opts{Connection: conn, Out: &bytes.Buffer{}})

	if err := m.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if conn.Reconnects() != 1 {
		t.Errorf("reconnects = %d, want 1", conn.Reconnects())
	}
	if m.Banner().Visible {
		t.Error("banner should hide after reconnect")
	}

	boom := errors.New("dial failed")
	conn.SetError(boom)
	if err := m.ForceRefresh(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want dial failed", err)
	}
}

func TestMonitor_WatchReportsChanges(t *testing.T) {
	conn := NewMockConnection(models.ConnClosed, 0)
	m, _ := New(Opts{Connection: conn, Out: &bytes.Buffer{}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	seen := make(chan Banner, 10)
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, 5*time.Millisecond, func(b Banner) { seen <- b }) }()

	first := <-seen
	if !first.Visible {
		t.Fatalf("first banner = %+v, want visible", first)
	}
	conn.Set(models.ConnOpen, 0)
	second := <-seen
	if second.Visible {
		t.Errorf("second banner = %+v, want hidden", second)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch = %v, want context.Canceled", err)
	}
}
