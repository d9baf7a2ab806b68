// Package transfer owns the single remote connection and runs file operations
// against it one at a time.
package transfer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/drake/ferry/remote"
)

// Status is the connection state.
type Status int

const (
	Disconnected Status = iota
	Connected
)

func (s Status) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// connection is the single live session. Only Manager creates or clears it.
type connection struct {
	creds  remote.Credentials
	client remote.Client
	since  time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for connection lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithReplace makes Connect close an existing connection and dial a new one
// instead of failing with ErrAlreadyConnected.
func WithReplace() Option {
	return func(m *Manager) {
		m.replace = true
	}
}

// Manager owns at most one connection. All requests that touch the remote
// side (connect, disconnect and every Executor operation) pass through a
// single slot, so concurrent callers are served one at a time.
type Manager struct {
	dialer  remote.Dialer
	logger  *slog.Logger
	replace bool

	// slot is the single-slot request queue
	slot chan struct{}

	mu   sync.RWMutex
	conn *connection
}

// NewManager creates a disconnected Manager that dials through d.
func NewManager(d remote.Dialer, opts ...Option) *Manager {
	m := &Manager{
		dialer: d,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		slot:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire waits for the request slot. The returned func releases it.
func (m *Manager) acquire(ctx context.Context) (func(), error) {
	select {
	case m.slot <- struct{}{}:
		return func() { <-m.slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Connect dials and logs in. The connection becomes visible only once the
// handshake succeeded; on failure the manager stays disconnected.
func (m *Manager) Connect(ctx context.Context, creds remote.Credentials) error {
	release, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if m.IsConnected() {
		if !m.replace {
			return ErrAlreadyConnected
		}
		m.drop("replaced")
	}

	m.logger.Debug("connecting", "host", creds.Host, "user", creds.User)
	client, err := m.dialer.Dial(ctx, creds)
	if err != nil {
		m.logger.Warn("connect failed", "host", creds.Host, "error", err)
		return &ConnectError{Host: creds.Host, Err: err}
	}

	m.mu.Lock()
	m.conn = &connection{creds: creds, client: client, since: time.Now()}
	m.mu.Unlock()

	m.logger.Info("connected", "host", creds.Host, "user", creds.User)
	return nil
}

// Disconnect closes the connection. The connection is cleared even when the
// transport close fails.
func (m *Manager) Disconnect(ctx context.Context) error {
	release, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if !m.drop("disconnect") {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a connection exists. It never waits on the
// request slot.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	if m.IsConnected() {
		return Connected
	}
	return Disconnected
}

// Host returns the connected host, or "" when disconnected.
func (m *Manager) Host() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return ""
	}
	return m.conn.creds.Host
}

// Uptime returns how long the current connection has been open.
func (m *Manager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return 0
	}
	return time.Since(m.conn.since)
}

// borrow returns the active client. Callers must hold the slot.
func (m *Manager) borrow() (remote.Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return nil, false
	}
	return m.conn.client, true
}

// drop clears the connection and closes its client. Callers must hold the
// slot. It reports whether there was a connection.
func (m *Manager) drop(reason string) bool {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	m.mu.Unlock()

	if c == nil {
		return false
	}
	if err := c.client.Close(); err != nil {
		m.logger.Warn("close failed", "host", c.creds.Host, "reason", reason, "error", err)
	}
	m.logger.Info("disconnected", "host", c.creds.Host, "reason", reason)
	return true
}
