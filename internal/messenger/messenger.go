// Package messenger owns a store's (or client's) outbound UDP socket
// and its disconnect/reconnect/kill lifecycle, using a
// connected-state-guarded-by-mutex pattern.
package messenger

import (
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"
)

// ErrOffline is returned by Send when the messenger has been
// disconnected and holds no socket.
var ErrOffline = errors.New("messenger: offline")

// ErrUnreachable is returned by Send when the underlying socket write
// fails.
var ErrUnreachable = errors.New("messenger: destination unreachable")

// ErrDead is returned by Send once Kill has been called; Disconnect and
// Reconnect after Kill are no-ops.
var ErrDead = errors.New("messenger: dead")

type state int

const (
	stateConnected state = iota
	stateDisconnected
	stateDead
)

// Messenger owns exactly one outbound *net.UDPConn at a time.
type Messenger struct {
	mu     sync.RWMutex
	state  state
	conn   *net.UDPConn
	logger *zap.Logger
}

// New wraps an already-bound socket in Connected state.
func New(conn *net.UDPConn, logger *zap.Logger) *Messenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messenger{state: stateConnected, conn: conn, logger: logger}
}

// Send writes b to target using the currently installed socket. A send
// started before a concurrent Disconnect is allowed to complete; it is
// only Send calls that begin after Disconnect that observe ErrOffline.
func (m *Messenger) Send(b []byte, target *net.UDPAddr) error {
	m.mu.RLock()
	conn := m.conn
	st := m.state
	m.mu.RUnlock()

	switch st {
	case stateDead:
		return ErrDead
	case stateDisconnected:
		return ErrOffline
	}

	if conn == nil {
		return ErrOffline
	}

	if _, err := conn.WriteToUDP(b, target); err != nil {
		m.logger.Warn("send failed", zap.Stringer("target", target), zap.Error(err))
		return ErrUnreachable
	}
	return nil
}

// Disconnect clears the socket reference. In-flight sends already past
// the state check in Send are unaffected; new Send calls see
// ErrOffline.
func (m *Messenger) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == stateDead {
		return
	}
	m.state = stateDisconnected
	m.conn = nil
}

// Reconnect installs a new socket and returns to Connected.
func (m *Messenger) Reconnect(conn *net.UDPConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == stateDead {
		return
	}
	m.conn = conn
	m.state = stateConnected
}

// Kill permanently stops the messenger; further operations are
// unobservable beyond returning ErrDead.
func (m *Messenger) Kill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = stateDead
	m.conn = nil
}

// IsConnected reports whether the messenger currently holds a socket.
func (m *Messenger) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateConnected
}
