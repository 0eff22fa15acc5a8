package health

import (
	"context"
	"sync"

	"github.com/zulandar/chatsync/internal/models"
)

// MockConnection implements Connection for testing.
type MockConnection struct {
	mu          sync.Mutex
	status      models.ConnectionStatus
	attempts    int
	maxAttempts int
	connects    int
	reconnects  int
	err         error
}

// NewMockConnection creates a MockConnection in the given state.
func NewMockConnection(status models.ConnectionStatus, attempts int) *MockConnection {
	return &MockConnection{status: status, attempts: attempts, maxAttempts: models.MaxReconnectAttempts}
}

// Status implements Connection.
func (m *MockConnection) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ReconnectAttempts implements Connection.
func (m *MockConnection) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// MaxReconnectAttempts implements Connection.
func (m *MockConnection) MaxReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxAttempts
}

// Connect implements Connection.
func (m *MockConnection) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	if m.err != nil {
		return m.err
	}
	m.status = models.ConnOpen
	m.attempts = 0
	return nil
}

// Reconnect implements Connection.
func (m *MockConnection) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects++
	if m.err != nil {
		return m.err
	}
	m.status = models.ConnOpen
	m.attempts = 0
	return nil
}

// --- Test helpers ---

// Set changes the simulated state.
func (m *MockConnection) Set(status models.ConnectionStatus, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.attempts = attempts
}

// SetError makes Connect and Reconnect fail with err.
func (m *MockConnection) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Reconnects returns the number of Reconnect calls.
func (m *MockConnection) Reconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}
