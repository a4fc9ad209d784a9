package store

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/wire"
)

// revivePoll bounds each blocking medical-socket read the same way
// readLoopPoll bounds the primary loop, so waitForRevive can also
// observe ctx cancellation while quiescent.
const revivePoll = 250 * time.Millisecond

// handleKill takes the primary socket down, disconnects the messenger,
// sits on the medical socket until a Revive arrives, then rebinds the
// primary and resumes. Both binds use
// s.ringCfg.PrimaryAddr/SecondaryAddr so the primary and medical
// sockets are never open simultaneously.
func (s *Server) handleKill(ctx context.Context) error {
	s.logger.Info("store killed", zap.Uint16("store_id", s.id))

	if err := s.primary.Close(); err != nil {
		s.logger.Warn("closing primary socket during kill", zap.Error(err))
	}
	s.sender.Disconnect()

	secondary, err := net.ListenUDP("udp", s.ringCfg.SecondaryAddr(s.id))
	if err != nil {
		return fmt.Errorf("%w: bind secondary: %v", errReviveBindFailed, err)
	}

	err = s.waitForRevive(ctx, secondary)
	secondary.Close()
	if err != nil {
		return err
	}

	primary, err := net.ListenUDP("udp", s.ringCfg.PrimaryAddr(s.id))
	if err != nil {
		return fmt.Errorf("%w: rebind primary: %v", errReviveBindFailed, err)
	}

	s.primary = primary
	s.sender.Reconnect(primary)
	s.logger.Info("store revived", zap.Uint16("store_id", s.id))
	return nil
}

// waitForRevive blocks reading the medical socket until a Revive
// datagram arrives, ctx is cancelled, or the socket errors. Any
// non-Revive datagram received on the medical socket is logged and
// dropped: the medical address has no other legitimate traffic.
func (s *Server) waitForRevive(ctx context.Context, secondary *net.UDPConn) error {
	buf := make([]byte, wire.MaxDatagram)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := secondary.SetReadDeadline(time.Now().Add(revivePoll)); err != nil {
			return err
		}

		n, _, err := secondary.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		msg, err := wire.Decode(buf[:n])
		if err != nil {
			s.logger.Info("dropped malformed datagram on medical socket", zap.Error(err))
			continue
		}

		if _, ok := msg.(wire.Revive); ok {
			return nil
		}
		s.logger.Info("ignored non-revive datagram on medical socket")
	}
}
