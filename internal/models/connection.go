package models

// ConnectionStatus is the lifecycle state of the real-time socket.
type ConnectionStatus string

const (
	ConnOpen       ConnectionStatus = "open"
	ConnConnecting ConnectionStatus = "connecting"
	ConnClosed     ConnectionStatus = "closed"
)

// MaxReconnectAttempts is the number of reconnect attempts after which a
// connecting socket is surfaced to the user.
const MaxReconnectAttempts = 5

// AgentStatusOffline is the status an agent moves to when the backend
// reports their socket disconnected.
const AgentStatusOffline = "OFFLINE"
