// Package socket maintains the real-time websocket to the chats backend,
// decoding event envelopes and reconnecting with capped exponential
// backoff.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zulandar/chatsync/internal/events"
	"github.com/zulandar/chatsync/internal/models"
)

const (
	// defaultBaseBackoff is the wait before the first reconnect attempt.
	defaultBaseBackoff = time.Second
	// defaultMaxBackoff caps the reconnect backoff.
	defaultMaxBackoff = 30 * time.Second
	// handshakeTimeout bounds the websocket handshake.
	handshakeTimeout = 10 * time.Second
)

// Opts configures a Client.
type Opts struct {
	URL                  string
	Token                string // sent as a bearer Authorization header
	MaxReconnectAttempts int    // defaults to models.MaxReconnectAttempts
	BaseBackoff          time.Duration
	MaxBackoff           time.Duration
	// Dialer overrides the websocket dialer. Tests leave it nil.
	Dialer *websocket.Dialer
}

// Client is the socket connection. Its state is read by the health
// monitor; decoded envelopes are delivered on Events.
type Client struct {
	url          string
	header       http.Header
	dialer       *websocket.Dialer
	maxReconnect int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	events       chan events.Envelope

	// lifeMu serializes Connect, Start, Reconnect and Close.
	lifeMu sync.Mutex

	mu         sync.Mutex
	status     models.ConnectionStatus
	attempts   int
	conn       *websocket.Conn
	cancelRun  context.CancelFunc
	runDone    chan struct{}
	cancelDial context.CancelFunc
	closed     bool
}

// New creates a Client in the closed state. Call Connect to dial.
func New(opts Opts) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("socket: url is required")
	}
	c := &Client{
		url:          opts.URL,
		header:       http.Header{},
		dialer:       opts.Dialer,
		maxReconnect: opts.MaxReconnectAttempts,
		baseBackoff:  opts.BaseBackoff,
		maxBackoff:   opts.MaxBackoff,
		events:       make(chan events.Envelope, 100),
		status:       models.ConnClosed,
	}
	if opts.Token != "" {
		c.header.Set("Authorization", "Bearer "+opts.Token)
	}
	if c.dialer == nil {
		c.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		}
	}
	if c.maxReconnect <= 0 {
		c.maxReconnect = models.MaxReconnectAttempts
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = defaultBaseBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = defaultMaxBackoff
	}
	return c, nil
}

// Status returns the connection state.
func (c *Client) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ReconnectAttempts returns the reconnect attempts made since the socket
// was last open.
func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// MaxReconnectAttempts returns the attempt limit.
func (c *Client) MaxReconnectAttempts() int {
	return c.maxReconnect
}

// Events returns the channel of decoded envelopes. It is closed by Close.
func (c *Client) Events() <-chan events.Envelope {
	return c.events
}

// Connect dials the socket and starts reading. Connecting an open client
// is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	return c.connectLocked(ctx)
}

// Start is Connect for a long-running engine: when the first dial fails
// the client goes straight into its reconnect loop instead of returning
// the error. It only fails on a closed client.
func (c *Client) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	err := c.connectLocked(ctx)
	if err == nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return err
	}
	c.status = models.ConnConnecting
	c.cancelRun = cancel
	c.runDone = done
	c.mu.Unlock()

	log.Printf("socket: initial connect failed, retrying: %v", err)
	go c.run(runCtx, nil, done)
	return nil
}

// Reconnect drops the current connection, if any, and dials again with a
// fresh attempt counter.
func (c *Client) Reconnect(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	c.stop()
	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
	return c.connectLocked(ctx)
}

// Close shuts the connection down and closes the Events channel.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancelDial != nil {
		c.cancelDial()
	}
	c.mu.Unlock()

	// Wait out any Connect or Reconnect still in flight.
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	c.stop()
	close(c.events)
	c.mu.Lock()
	c.status = models.ConnClosed
	c.mu.Unlock()
	return nil
}

// connectLocked dials and starts the reader. The caller holds lifeMu.
func (c *Client) connectLocked(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("socket: client closed")
	}
	// Already open, or the read loop is reconnecting on its own.
	if c.conn != nil || (c.cancelRun != nil && c.status == models.ConnConnecting) {
		c.mu.Unlock()
		return nil
	}
	if c.cancelRun != nil {
		// The previous loop gave up; release its context.
		c.cancelRun()
		c.cancelRun, c.runDone = nil, nil
	}
	c.status = models.ConnConnecting
	dialCtx, cancelDial := context.WithCancel(ctx)
	c.cancelDial = cancelDial
	c.mu.Unlock()

	conn, err := c.dial(dialCtx)

	c.mu.Lock()
	c.cancelDial = nil
	cancelDial()
	if err == nil && c.closed {
		conn.Close()
		err = fmt.Errorf("socket: client closed")
	}
	if err != nil {
		c.status = models.ConnClosed
		c.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.conn = conn
	c.status = models.ConnOpen
	c.attempts = 0
	c.cancelRun = cancel
	c.runDone = done
	c.mu.Unlock()

	go c.run(runCtx, conn, done)
	return nil
}

// stop cancels the reader goroutine and waits for it to exit.
func (c *Client) stop() {
	c.mu.Lock()
	cancel, conn, done := c.cancelRun, c.conn, c.runDone
	c.cancelRun, c.conn, c.runDone = nil, nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("socket: dial %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("socket: dial %s: %w", c.url, err)
	}
	return conn, nil
}

// run reads from conn and, when the read fails, reconnects until the
// attempts are exhausted or ctx is cancelled. A nil conn starts with a
// reconnect.
func (c *Client) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	if conn == nil {
		conn = c.reconnect(ctx)
	}
	for conn != nil {
		err := c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Printf("socket: connection lost: %v", err)
		conn = c.reconnect(ctx)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("socket: decode envelope: %v", err)
			continue
		}
		if env.Event == "" {
			continue
		}
		select {
		case c.events <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reconnect dials with exponential backoff. It returns the new connection,
// or nil when attempts are exhausted (status closed) or ctx is done.
func (c *Client) reconnect(ctx context.Context) *websocket.Conn {
	for attempt := 1; attempt <= c.maxReconnect; attempt++ {
		c.mu.Lock()
		c.status = models.ConnConnecting
		c.attempts = attempt
		c.conn = nil
		c.mu.Unlock()

		wait := c.backoff(attempt)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		conn, err := c.dial(ctx)
		if err != nil {
			log.Printf("socket: reconnect attempt %d/%d failed: %v", attempt, c.maxReconnect, err)
			continue
		}
		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			conn.Close()
			return nil
		}
		c.conn = conn
		c.status = models.ConnOpen
		c.attempts = 0
		c.mu.Unlock()
		return conn
	}

	c.mu.Lock()
	c.status = models.ConnClosed
	c.mu.Unlock()
	log.Printf("socket: exhausted %d reconnection attempts, giving up", c.maxReconnect)
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 30 {
		return c.maxBackoff
	}
	wait := c.baseBackoff << (attempt - 1)
	if wait > c.maxBackoff || wait <= 0 {
		wait = c.maxBackoff
	}
	return wait
}
