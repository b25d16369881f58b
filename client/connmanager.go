// Package client implements WIND's subscriber-facing API: discovery,
// Subscribe with its delivery-mode receive loop, and one-shot RPC calls.
// Grounded on the teacher's readPump/writePump disconnect-and-retry texture
// (server.go), generalized into an explicit reconnect state machine per
// spec.md §4.4 "Connection manager".
package client

import (
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	maxAttempts    = 10
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateFailed
)

// ConnManager wraps a single address with exponential-backoff reconnect,
// per spec.md §4.4: start 1s, double on failure, cap 30s, give up after 10
// attempts, reset on success.
type ConnManager struct {
	addr string

	mu      sync.Mutex
	conn    net.Conn
	state   connState
	backoff time.Duration
	attempt int
}

// NewConnManager returns a ConnManager that has not yet dialed addr.
func NewConnManager(addr string) *ConnManager {
	return &ConnManager{addr: addr, state: stateDisconnected, backoff: initialBackoff}
}

// Get returns the current connection, dialing (or redialing) if necessary.
// Get itself never waits: each failed dial doubles Backoff, and callers
// sleep for Backoff between calls. Returns an error once maxAttempts
// consecutive failures have occurred without an intervening success.
func (m *ConnManager) Get() (net.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateConnected && m.conn != nil {
		return m.conn, nil
	}
	if m.state == stateFailed {
		return nil, fmt.Errorf("client: %s: exceeded %d reconnect attempts", m.addr, maxAttempts)
	}

	conn, err := net.DialTimeout("tcp", m.addr, 5*time.Second)
	if err != nil {
		m.attempt++
		if m.attempt >= maxAttempts {
			m.state = stateFailed
			return nil, fmt.Errorf("client: %s: exceeded %d reconnect attempts: %w", m.addr, maxAttempts, err)
		}
		m.backoff = minDuration(m.backoff*2, maxBackoff)
		return nil, fmt.Errorf("client: %s: dial failed (attempt %d/%d): %w", m.addr, m.attempt, maxAttempts, err)
	}

	m.conn = conn
	m.state = stateConnected
	m.attempt = 0
	m.backoff = initialBackoff
	return conn, nil
}

// MarkFailed drops the current connection so that the next Get redials.
func (m *ConnManager) MarkFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	if m.state != stateFailed {
		m.state = stateDisconnected
	}
}

// Backoff returns the current backoff duration (for callers that want to
// sleep between reconnect attempts rather than spin).
func (m *ConnManager) Backoff() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backoff
}

// Close releases the underlying connection, if any.
func (m *ConnManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.state = stateDisconnected
	return err
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
