package client

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/order"
	"github.com/timour/storefleet/internal/wire"
)

// Outcome pairs one submitted order with its terminal reply or the
// error that aborted it.
type Outcome struct {
	OrderID uint16
	Order   order.Order
	Reply   wire.ServerReply
	Err     error
}

// ProcessAll submits every order in orders concurrently across a
// worker pool sized to the available cores, each worker running the
// per-order protocol to completion before picking up the next job.
// The returned slice is ordered by order_id regardless of completion
// order. Returns once every order has a terminal outcome.
func (c *Client) ProcessAll(ctx context.Context, orders []order.Order) []Outcome {
	outcomes := make([]Outcome, len(orders))

	type job struct {
		id uint16
		o  order.Order
	}
	jobs := make(chan job, len(orders))
	for i, o := range orders {
		jobs <- job{id: uint16(i), o: o}
	}
	close(jobs)

	workers := runtime.NumCPU()
	if workers > len(orders) {
		workers = len(orders)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				rep, err := c.SubmitOrder(ctx, j.id, j.o)
				outcomes[j.id] = Outcome{OrderID: j.id, Order: j.o, Reply: rep, Err: err}
				c.logOutcome(j.id, j.o, rep, err)
			}
		}()
	}
	wg.Wait()

	return outcomes
}

func (c *Client) logOutcome(orderID uint16, o order.Order, rep wire.ServerReply, err error) {
	if err != nil {
		c.logger.Warn("order aborted",
			zap.Uint16("order_id", orderID),
			zap.Uint16("product_id", o.ProductID),
			zap.Error(err),
		)
		return
	}

	c.logger.Info("order resolved",
		zap.Uint16("order_id", orderID),
		zap.Uint16("product_id", o.ProductID),
		zap.Uint8("quantity", o.Quantity),
		zap.Int("outcome", int(rep.Subtype)),
	)
}
