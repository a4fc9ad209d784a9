package client

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/order"
	"github.com/timour/storefleet/internal/wire"
)

// SubmitOrder drives one order through the per-order protocol: pick a
// random starting store, await its ack up to
// ackTimeout (retrying the next store on timeout), then await a
// terminal ServerReply up to outcomeTimeout (restarting the whole
// protocol against the next store on timeout). It returns once a
// terminal reply is observed or ctx is cancelled.
func (c *Client) SubmitOrder(ctx context.Context, orderID uint16, o order.Order) (wire.ServerReply, error) {
	if o.Quantity == 0 {
		return wire.ServerReply{}, order.ErrZeroQuantity
	}

	store := uint16(rand.Intn(c.ringCfg.Size))

	for {
		select {
		case <-c.done:
			return wire.ServerReply{}, ErrClosed
		default:
		}

		if err := c.sendClientOrder(store, orderID, o); err != nil {
			c.logger.Warn("send ClientOrder failed", zap.Uint16("store_id", store), zap.Error(err))
		}

		ackCh := c.registerAck(orderID)
		select {
		case <-ackCh:
			c.forgetAck(orderID)

		case <-time.After(ackTimeout):
			c.forgetAck(orderID)
			store = c.ringCfg.Next(store)
			continue

		case <-ctx.Done():
			c.forgetAck(orderID)
			return wire.ServerReply{}, ctx.Err()

		case <-c.done:
			c.forgetAck(orderID)
			return wire.ServerReply{}, ErrClosed
		}

		outcomeCh := c.registerOutcome(orderID)
		select {
		case rep := <-outcomeCh:
			c.forgetOutcome(orderID)
			return rep, nil

		case <-time.After(outcomeTimeout):
			c.forgetOutcome(orderID)
			store = c.ringCfg.Next(store)
			continue

		case <-ctx.Done():
			c.forgetOutcome(orderID)
			return wire.ServerReply{}, ctx.Err()

		case <-c.done:
			c.forgetOutcome(orderID)
			return wire.ServerReply{}, ErrClosed
		}
	}
}
