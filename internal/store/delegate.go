package store

import (
	"context"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/guardian"
	"github.com/timour/storefleet/internal/wire"
)

const (
	delegateAckTimeout = 500 * time.Millisecond
	resolveMinDelay    = 500 * time.Millisecond
	resolveJitter      = 1000 // ms, matches the [500,1500) window
	resolveThreshold   = 1000 * time.Millisecond
)

// runDelegationPipeline implements the per-order delegation algorithm:
// a store either resolves an order itself or walks it around the
// ring, one hop at a time, until some store reserves it or the trail
// wraps back to the order's origin. corrID is the correlation id
// minted the first time this store saw the order on the client path;
// it is empty for orders arriving already delegated from a neighbour.
func (s *Server) runDelegationPipeline(ctx context.Context, delegated wire.Delegated, clientAddr *net.UDPAddr, corrID string) {
	orderID := delegated.Inner.OrderID
	key := guardian.ReservationKey{OrderID: orderID, ClientPort: delegated.ClientPort}

	if delegated.InTrail(s.id) {
		s.replyToClient(clientAddr, wire.ServerReply{Subtype: wire.ReplyNoStock, OrderID: orderID})
		return
	}

	result, err := s.guardian.Reserve(ctx, key, delegated.Inner.Order)
	if err != nil {
		s.logger.Warn("guardian unavailable during reserve",
			zap.Uint16("order_id", orderID), corrIDField(corrID), zap.Error(err))
		return
	}

	if result == guardian.ResultOk {
		s.resolve(ctx, key, clientAddr, corrID)
		return
	}

	s.delegateToNext(ctx, delegated.WithTrailAppended(s.id), clientAddr, corrID)
}

// resolve implements the randomized delivery outcome: a uniform delay
// in [500,1500)ms, delivered iff the delay falls under 1000ms. It
// notifies the client first and only then confirms or cancels the
// reservation with the guardian — a conservative ordering: a crashed
// client leaves stock restored rather than silently consumed.
func (s *Server) resolve(ctx context.Context, key guardian.ReservationKey, clientAddr *net.UDPAddr, corrID string) {
	delay := resolveMinDelay + time.Duration(rand.Intn(resolveJitter))*time.Millisecond
	delivered := delay < resolveThreshold

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}

	subtype := wire.ReplyCancelled
	if delivered {
		subtype = wire.ReplySuccess
	}

	sendErr := s.replyToClient(clientAddr, wire.ServerReply{Subtype: subtype, OrderID: key.OrderID})

	if delivered && sendErr == nil {
		if err := s.guardian.Confirm(ctx, key); err != nil {
			s.logger.Warn("confirm failed after successful delivery",
				zap.Uint16("order_id", key.OrderID), corrIDField(corrID), zap.Error(err))
		}
		return
	}

	if err := s.guardian.Cancel(ctx, key); err != nil {
		s.logger.Warn("cancel failed after resolve",
			zap.Uint16("order_id", key.OrderID), corrIDField(corrID), zap.Error(err))
	}
}

// delegateToNext walks the ring starting at the hop right after s,
// trying each candidate in turn until one acks the delegation or the
// walk returns to s's own id, at which point the order is unsatisfiable
// anywhere and the client is told so directly.
func (s *Server) delegateToNext(ctx context.Context, delegated wire.Delegated, clientAddr *net.UDPAddr, corrID string) {
	key := ackKey{ClientPort: delegated.ClientPort, OrderID: delegated.Inner.OrderID}
	candidate := s.ringCfg.Next(s.id)

	for candidate != s.id {
		ch := s.pendingAcks.Register(key)

		target := s.ringCfg.PrimaryAddr(candidate)
		sendErr := s.send(wire.Delegated{
			Inner:      delegated.Inner,
			ClientPort: delegated.ClientPort,
			AckTrail:   delegated.AckTrail,
		}, target)

		if sendErr == nil {
			select {
			case <-ch:
				s.pendingAcks.Forget(key)
				return
			case <-time.After(delegateAckTimeout):
				s.pendingAcks.Forget(key)
			case <-ctx.Done():
				s.pendingAcks.Forget(key)
				return
			}
		} else {
			s.pendingAcks.Forget(key)
		}

		candidate = s.ringCfg.Next(candidate)
	}

	s.replyToClient(clientAddr, wire.ServerReply{Subtype: wire.ReplyNoStock, OrderID: delegated.Inner.OrderID})
}

// replyToClient encodes and sends rep to clientAddr, logging any send
// failure and returning it to the caller; resolve uses it to choose
// between Confirm and Cancel. A lost reply is recovered by the client's
// own outcome-timeout retry.
func (s *Server) replyToClient(clientAddr *net.UDPAddr, rep wire.ServerReply) error {
	return s.send(rep, clientAddr)
}

// send encodes msg and hands it to the messenger, logging failures.
func (s *Server) send(msg any, target *net.UDPAddr) error {
	b, err := encodeOrLog(s.logger, msg)
	if err != nil {
		return err
	}
	if err := s.sender.Send(b, target); err != nil {
		s.logger.Warn("send failed", zap.Stringer("target", target), zap.Error(err))
		return err
	}
	return nil
}

func encodeOrLog(logger *zap.Logger, msg any) ([]byte, error) {
	b, err := wire.Encode(msg)
	if err != nil {
		logger.Error("encode failed", zap.Error(err))
		return nil, err
	}
	return b, nil
}

// corrIDField renders corrID as a log field, omitting it entirely for
// delegated hops that were never the order's first store (corrID is
// only minted on the client path; see dispatch's ClientOrder case).
func corrIDField(corrID string) zap.Field {
	if corrID == "" {
		return zap.Skip()
	}
	return zap.String("correlation_id", corrID)
}
