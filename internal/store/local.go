package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/guardian"
	"github.com/timour/storefleet/internal/order"
)

// localOrderInterval paces walk-in order consumption, adapted from the
// 500ms sleep between dispatches in the original employee loop.
const localOrderInterval = 500 * time.Millisecond

// RunLocalOrders feeds orders one at a time straight into the
// guardian's Decrement op, standing in for the physical store's own
// walk-in order consumption running alongside the e-commerce dispatch
// loop in Run. Unlike a client order, a local order never reserves,
// delegates, or replies to anyone: it either decrements the shelf on
// the spot or is turned away. RunLocalOrders processes orders in
// sequence, one every localOrderInterval, until the list is exhausted
// or ctx is cancelled.
func (s *Server) RunLocalOrders(ctx context.Context, orders []order.Order) {
	for i, o := range orders {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := s.guardian.Decrement(ctx, o.ProductID, o.Quantity)
		switch {
		case err != nil:
			s.logger.Warn("local order aborted: guardian unavailable",
				zap.Int("local_order_id", i), zap.Error(err))

		case result == guardian.ResultOk:
			s.logger.Info("local order fulfilled",
				zap.Int("local_order_id", i),
				zap.Uint16("product_id", o.ProductID),
				zap.Uint8("quantity", o.Quantity),
			)

		case result == guardian.ResultNoStock:
			s.logger.Info("local order found product unavailable",
				zap.Int("local_order_id", i),
				zap.Uint16("product_id", o.ProductID),
			)

		case result == guardian.ResultInsufficient:
			s.logger.Info("local order found insufficient stock",
				zap.Int("local_order_id", i),
				zap.Uint16("product_id", o.ProductID),
				zap.Uint8("quantity", o.Quantity),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(localOrderInterval):
		}
	}
}
