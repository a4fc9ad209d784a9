// Package guardian implements the single-owner custodian of one
// store's inventory: the stock table and the in-flight reservation
// table. It is modeled as an actor with its own goroutine reading a
// request mailbox, so every operation is serialized without needing a
// mutex around the maps themselves — the same single-writer discipline
// a transactional stock store applies per call, generalized here from
// a database-transaction-per-call shape to an in-memory one.
package guardian

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/order"
)

// Result is the outcome of a decrement/reserve attempt.
type Result int

const (
	ResultOk Result = iota
	ResultNoStock
	ResultInsufficient
)

// ErrNotFound is returned by Confirm/Cancel when no reservation exists
// for the given key.
var ErrNotFound = errors.New("guardian: reservation not found")

// ErrClosed is returned when a request reaches a guardian whose
// mailbox has already shut down.
var ErrClosed = errors.New("guardian: closed")

// ReservationKey identifies a reservation by the client-scoped order id
// and the client's ephemeral port — order ids alone collide across
// clients, so both fields are required.
type ReservationKey struct {
	OrderID    uint16
	ClientPort uint16
}

type opKind int

const (
	opDecrement opKind = iota
	opReserve
	opConfirm
	opCancel
	opSnapshot
)

type request struct {
	kind  opKind
	key   ReservationKey
	order order.Order
	reply chan response
}

type response struct {
	result Result
	err    error
	shelf  map[uint16]uint32
}

// Guardian owns a store's stock table and reservation table. The zero
// value is not usable; construct with New.
type Guardian struct {
	mailbox chan request
	done    chan struct{}
	logger  *zap.Logger
}

// New starts a guardian actor seeded with the given initial stock
// table (product id -> quantity). The actor goroutine is started here;
// the caller must call Close when the store shuts down.
func New(initialStock map[uint16]uint32, logger *zap.Logger) *Guardian {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guardian{
		mailbox: make(chan request),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go g.run(cloneStock(initialStock))
	return g
}

func cloneStock(src map[uint16]uint32) map[uint16]uint32 {
	dst := make(map[uint16]uint32, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// run is the actor loop: the only goroutine ever allowed to touch
// shelf/reserved.
func (g *Guardian) run(shelf map[uint16]uint32) {
	reserved := make(map[ReservationKey]order.Order)
	defer close(g.done)

	for req := range g.mailbox {
		switch req.kind {
		case opDecrement:
			result := decrementShelf(shelf, req.order.ProductID, uint32(req.order.Quantity))
			g.logger.Debug("guardian decrement",
				zap.Uint16("product_id", req.order.ProductID),
				zap.Uint8("quantity", req.order.Quantity),
				zap.Int("result", int(result)),
			)
			req.reply <- response{result: result}

		case opReserve:
			result := decrementShelf(shelf, req.order.ProductID, uint32(req.order.Quantity))
			if result == ResultOk {
				reserved[req.key] = req.order
			}
			g.logger.Debug("guardian reserve",
				zap.Uint16("order_id", req.key.OrderID),
				zap.Uint16("client_port", req.key.ClientPort),
				zap.Uint16("product_id", req.order.ProductID),
				zap.Int("result", int(result)),
			)
			req.reply <- response{result: result}

		case opConfirm:
			if _, ok := reserved[req.key]; !ok {
				g.logger.Debug("guardian confirm",
					zap.Uint16("order_id", req.key.OrderID),
					zap.Uint16("client_port", req.key.ClientPort),
					zap.Error(ErrNotFound),
				)
				req.reply <- response{err: ErrNotFound}
				continue
			}
			delete(reserved, req.key)
			g.logger.Debug("guardian confirm",
				zap.Uint16("order_id", req.key.OrderID),
				zap.Uint16("client_port", req.key.ClientPort),
			)
			req.reply <- response{result: ResultOk}

		case opCancel:
			o, ok := reserved[req.key]
			if !ok {
				g.logger.Debug("guardian cancel",
					zap.Uint16("order_id", req.key.OrderID),
					zap.Uint16("client_port", req.key.ClientPort),
					zap.Error(ErrNotFound),
				)
				req.reply <- response{err: ErrNotFound}
				continue
			}
			delete(reserved, req.key)
			shelf[o.ProductID] += uint32(o.Quantity)
			g.logger.Debug("guardian cancel",
				zap.Uint16("order_id", req.key.OrderID),
				zap.Uint16("client_port", req.key.ClientPort),
				zap.Uint16("product_id", o.ProductID),
			)
			req.reply <- response{result: ResultOk}

		case opSnapshot:
			req.reply <- response{shelf: cloneStock(shelf)}
		}
	}
}

// decrementShelf applies the decrement rule in place and reports the
// outcome; it never mutates shelf on NoStock/Insufficient.
func decrementShelf(shelf map[uint16]uint32, productID uint16, qty uint32) Result {
	have, ok := shelf[productID]
	if !ok {
		return ResultNoStock
	}
	switch {
	case have > qty:
		shelf[productID] = have - qty
		return ResultOk
	case have == qty:
		delete(shelf, productID)
		return ResultOk
	default:
		return ResultInsufficient
	}
}

func (g *Guardian) call(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)

	// Once Close has returned the mailbox is closed; check done first so
	// the send below is never attempted on it.
	select {
	case <-g.done:
		return response{}, ErrClosed
	default:
	}

	select {
	case g.mailbox <- req:
	case <-g.done:
		return response{}, ErrClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// Decrement consumes qty of productID for local, non-delegated
// consumption; it never touches the reservation table.
func (g *Guardian) Decrement(ctx context.Context, productID uint16, qty uint8) (Result, error) {
	resp, err := g.call(ctx, request{kind: opDecrement, order: order.Order{ProductID: productID, Quantity: qty}})
	if err != nil {
		return 0, err
	}
	return resp.result, nil
}

// Reserve decrements the shelf for o and, on ResultOk, records the
// reservation under key.
func (g *Guardian) Reserve(ctx context.Context, key ReservationKey, o order.Order) (Result, error) {
	resp, err := g.call(ctx, request{kind: opReserve, key: key, order: o})
	if err != nil {
		return 0, err
	}
	return resp.result, nil
}

// Confirm removes the reservation under key without touching the
// shelf (the decrement already happened at Reserve time).
func (g *Guardian) Confirm(ctx context.Context, key ReservationKey) error {
	resp, err := g.call(ctx, request{kind: opConfirm, key: key})
	if err != nil {
		return err
	}
	return resp.err
}

// Cancel removes the reservation under key and returns its quantity to
// the shelf.
func (g *Guardian) Cancel(ctx context.Context, key ReservationKey) error {
	resp, err := g.call(ctx, request{kind: opCancel, key: key})
	if err != nil {
		return err
	}
	return resp.err
}

// Snapshot returns a point-in-time copy of the shelf, for tests and
// diagnostics only.
func (g *Guardian) Snapshot(ctx context.Context) (map[uint16]uint32, error) {
	resp, err := g.call(ctx, request{kind: opSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.shelf, nil
}

// Close stops the guardian actor. Calls issued after Close has returned
// observe ErrClosed.
func (g *Guardian) Close() {
	close(g.mailbox)
	<-g.done
}
