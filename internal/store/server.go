package store

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/ids"
	"github.com/timour/storefleet/internal/wire"
)

// readLoopPoll bounds each blocking ReadFromUDP call so Run can observe
// ctx cancellation promptly even though recv_from itself has no
// context parameter.
const readLoopPoll = 250 * time.Millisecond

// Run drives the store's single dispatch goroutine: it owns the
// primary socket read loop, decodes each datagram, and either replies
// inline (acks) or spawns an independent delegation-pipeline goroutine
// per order. Run blocks until ctx is cancelled or a Kill handler fails
// to rebind, returning the error that ended it (nil on clean
// cancellation).
func (s *Server) Run(ctx context.Context) error {
	buf := make([]byte, wire.MaxDatagram)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.primary.SetReadDeadline(time.Now().Add(readLoopPoll)); err != nil {
			return err
		}

		n, addr, err := s.primary.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			s.logger.Warn("primary read failed", zap.Error(err))
			continue
		}

		msg, err := wire.Decode(buf[:n])
		if err != nil {
			s.logger.Info("dropped malformed datagram", zap.Error(err), zap.Stringer("from", addr))
			continue
		}

		if done, err := s.dispatch(ctx, msg, addr); done {
			return err
		}
	}
}

// dispatch handles one decoded message. The bool return reports
// whether Run should stop (true only on an unrecoverable Kill-handler
// failure); the error is that failure, if any.
func (s *Server) dispatch(ctx context.Context, msg any, from *net.UDPAddr) (bool, error) {
	switch m := msg.(type) {
	case wire.ClientOrder:
		s.send(wire.AckClient{OrderID: m.OrderID}, from)
		delegated := wire.Delegated{Inner: m, ClientPort: uint16(from.Port)}
		// Minted once, the first time this store sees the order on the
		// client path, so every hop's logs for this order can be grepped
		// together within this store's own log; it never travels on the
		// wire and downstream stores mint none for it.
		corrID := ids.NewCorrelationID()
		go s.runDelegationPipeline(ctx, delegated, from, corrID)

	case wire.Delegated:
		s.send(wire.AckDelegated{OrderID: m.Inner.OrderID, ClientPort: m.ClientPort}, from)
		clientAddr := &net.UDPAddr{IP: net.ParseIP(s.ringCfg.Host), Port: int(m.ClientPort)}
		go s.runDelegationPipeline(ctx, m, clientAddr, "")

	case wire.AckDelegated:
		s.pendingAcks.Notify(ackKey{ClientPort: m.ClientPort, OrderID: m.OrderID})

	case wire.Kill:
		if err := s.handleKill(ctx); err != nil {
			s.sender.Kill()
			return true, err
		}

	case wire.Revive:
		s.logger.Info("unexpected revive while live")

	default:
		s.logger.Info("dropped message of unknown type")
	}

	return false, nil
}

// errReviveBindFailed is returned by handleKill when either the
// secondary socket or the rebound primary socket cannot be bound.
var errReviveBindFailed = errors.New("store: revive bind failed")
