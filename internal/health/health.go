// Package health derives the degraded-connectivity banner from the socket
// connection state and raises a one-shot toast once connectivity returns.
package health

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zulandar/chatsync/internal/models"
)

// Connection is the socket state observed by the Monitor.
// *socket.Client satisfies it.
type Connection interface {
	Status() models.ConnectionStatus
	ReconnectAttempts() int
	MaxReconnectAttempts() int
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
}

// Route is the console view currently shown.
type Route string

const (
	RouteHome       Route = "home"
	RouteRoom       Route = "room"
	RouteDiscussion Route = "discussion"
)

// bannerRoutes are the views that show the banner.
var bannerRoutes = map[Route]bool{
	RouteHome:       true,
	RouteRoom:       true,
	RouteDiscussion: true,
}

// RouteProvider reports the current route.
type RouteProvider interface {
	Route() Route
}

// RouteState is a RouteProvider updated by the embedding process.
type RouteState struct {
	mu    sync.Mutex
	route Route
}

// NewRouteState returns a RouteState starting at r.
func NewRouteState(r Route) *RouteState {
	return &RouteState{route: r}
}

// Route implements RouteProvider.
func (s *RouteState) Route() Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// Set changes the current route.
func (s *RouteState) Set(r Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = r
}

// BannerKind selects the banner wording.
type BannerKind string

const (
	BannerDisconnected BannerKind = "disconnected"
	BannerReconnecting BannerKind = "reconnecting"
)

// Banner messages.
const (
	MessageDisconnected = "Connection lost. Please refresh to keep receiving messages."
	MessageReconnecting = "Reconnecting..."
	MessageRestored     = "Connection restored."
)

// Banner is the derived degraded-connectivity indicator.
type Banner struct {
	Visible bool       `json:"visible"`
	Kind    BannerKind `json:"kind,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Opts configures a Monitor.
type Opts struct {
	Connection Connection
	Routes     RouteProvider // nil means RouteHome
	// OnRestored is called once, the first time a visible banner hides.
	OnRestored func(message string)
	Out        io.Writer // defaults to os.Stdout
}

// Monitor computes banner visibility from the connection state.
type Monitor struct {
	conn       Connection
	routes     RouteProvider
	onRestored func(string)
	out        io.Writer

	mu          sync.Mutex
	lastVisible bool
	toasted     bool
}

// New creates a Monitor.
func New(opts Opts) (*Monitor, error) {
	if opts.Connection == nil {
		return nil, fmt.Errorf("health: connection is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Monitor{
		conn:       opts.Connection,
		routes:     opts.Routes,
		onRestored: opts.OnRestored,
		out:        out,
	}, nil
}

func (m *Monitor) route() Route {
	if m.routes == nil {
		return RouteHome
	}
	return m.routes.Route()
}

// Banner returns the banner for the current connection state and route.
// A closed socket shows the disconnected banner; a connecting socket shows
// the reconnecting banner only once the attempts reach the maximum.
func (m *Monitor) Banner() Banner {
	return Derive(m.conn.Status(), m.conn.ReconnectAttempts(), m.conn.MaxReconnectAttempts(), m.route())
}

// Derive is the banner rule as a pure function.
func Derive(status models.ConnectionStatus, attempts, maxAttempts int, route Route) Banner {
	if !bannerRoutes[route] {
		return Banner{}
	}
	switch status {
	case models.ConnClosed:
		return Banner{Visible: true, Kind: BannerDisconnected, Message: MessageDisconnected}
	case models.ConnConnecting:
		if attempts >= maxAttempts {
			return Banner{Visible: true, Kind: BannerReconnecting, Message: MessageReconnecting}
		}
	}
	return Banner{}
}

// Observe computes the banner and records the transition. When a visible
// banner hides for the first time in the Monitor's life, the restored
// toast is raised. Later transitions raise nothing.
func (m *Monitor) Observe() Banner {
	b := m.Banner()

	m.mu.Lock()
	restored := m.lastVisible && !b.Visible && !m.toasted
	if restored {
		m.toasted = true
	}
	m.lastVisible = b.Visible
	m.mu.Unlock()

	if restored {
		fmt.Fprintf(m.out, "health: %s\n", MessageRestored)
		if m.onRestored != nil {
			m.onRestored(MessageRestored)
		}
	}
	return b
}

// ForceRefresh asks the connection to reconnect now.
func (m *Monitor) ForceRefresh(ctx context.Context) error {
	if err := m.conn.Reconnect(ctx); err != nil {
		return fmt.Errorf("health: reconnect: %w", err)
	}
	return nil
}

// Watch polls the connection every interval and calls fn whenever the
// banner changes, until ctx is done.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration, fn func(Banner)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := m.Observe()
	if fn != nil {
		fn(last)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b := m.Observe()
			if b != last {
				last = b
				if fn != nil {
					fn(b)
				}
			}
		}
	}
}
