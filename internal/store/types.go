// Package store implements the store server: its receive loop, order
// dispatch, ring-delegation pipeline and crash/revive fault handling.
package store

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/guardian"
	"github.com/timour/storefleet/internal/ring"
)

// sender is the subset of messenger.Messenger the server needs:
// outbound sends plus the disconnect/reconnect/kill lifecycle driven by
// handleKill. Abstracted out so tests can substitute a mock (see
// internal/mocks) without opening real sockets.
//
//go:generate mockgen -source=$GOFILE -destination=../mocks/sender_mock.go -package=mocks
type sender interface {
	Send(b []byte, target *net.UDPAddr) error
	Disconnect()
	Reconnect(conn *net.UDPConn)
	Kill()
}

// Server is one store node: its primary receive socket, its outbound
// sender, its stock guardian, and the ring it belongs to.
type Server struct {
	id       uint16
	ringCfg  ring.Config
	guardian *guardian.Guardian
	sender   sender
	primary  *net.UDPConn
	logger   *zap.Logger

	pendingAcks *ackWaiters
}

// New constructs a Server bound to its primary address, seeded with
// initialStock, using sender for all outbound traffic. The caller owns
// primary and sender's lifetime beyond what Run/handleKill replace
// internally.
func New(id uint16, ringCfg ring.Config, primary *net.UDPConn, send sender, initialStock map[uint16]uint32, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		id:          id,
		ringCfg:     ringCfg,
		guardian:    guardian.New(initialStock, logger),
		sender:      send,
		primary:     primary,
		logger:      logger,
		pendingAcks: newAckWaiters(),
	}
}

// Close stops the guardian actor. The caller is responsible for
// closing the primary socket and the sender.
func (s *Server) Close() {
	s.guardian.Close()
}

// Snapshot exposes the guardian's shelf for tests and diagnostics.
func (s *Server) Snapshot() (map[uint16]uint32, error) {
	return s.guardian.Snapshot(context.Background())
}
