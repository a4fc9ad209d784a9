// Package client implements the e-commerce client handler: it submits
// orders concurrently to the store ring, tracks per-order ack and
// outcome timeouts, and retries against the next store on either
// timeout.
package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/order"
	"github.com/timour/storefleet/internal/ring"
	"github.com/timour/storefleet/internal/wire"
)

const (
	ackTimeout     = 500 * time.Millisecond
	outcomeTimeout = 3 * time.Second
)

// ErrClosed is returned by SubmitOrder once Close has been called.
var ErrClosed = errors.New("client: closed")

// Client owns one UDP socket shared by every in-flight order and the
// single listener goroutine that demultiplexes incoming AckClient and
// ServerReply datagrams to whichever order is waiting for them, using
// a mutex-guarded map-of-channels pattern per pending order.
type Client struct {
	conn    *net.UDPConn
	ringCfg ring.Config
	logger  *zap.Logger

	mu             sync.Mutex
	ackWaiters     map[uint16]chan struct{}
	outcomeWaiters map[uint16]chan wire.ServerReply

	closeOnce sync.Once
	done      chan struct{}
}

// New wraps an already-bound client socket. The caller must run
// Listen in its own goroutine before submitting any orders, and call
// Close when finished.
func New(conn *net.UDPConn, ringCfg ring.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		conn:           conn,
		ringCfg:        ringCfg,
		logger:         logger,
		ackWaiters:     make(map[uint16]chan struct{}),
		outcomeWaiters: make(map[uint16]chan wire.ServerReply),
		done:           make(chan struct{}),
	}
}

// Close stops Listen and makes in-progress and later SubmitOrder calls
// return ErrClosed. It does not close the underlying socket; the caller
// retains that ownership.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Listen runs the client's single receive loop until ctx is cancelled
// or Close is called. It decodes every incoming datagram and routes
// AckClient/ServerReply messages to whichever order_id is waiting.
func (c *Client) Listen(ctx context.Context) {
	buf := make([]byte, wire.MaxDatagram)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond)); err != nil {
			return
		}

		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			c.logger.Warn("client read failed", zap.Error(err))
			continue
		}

		msg, err := wire.Decode(buf[:n])
		if err != nil {
			c.logger.Info("dropped malformed datagram", zap.Error(err))
			continue
		}

		switch m := msg.(type) {
		case wire.AckClient:
			c.notifyAck(m.OrderID)
		case wire.ServerReply:
			c.notifyOutcome(m)
		default:
			c.logger.Info("client ignored unexpected message type")
		}
	}
}

func (c *Client) registerAck(orderID uint16) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan struct{}, 1)
	c.ackWaiters[orderID] = ch
	return ch
}

func (c *Client) forgetAck(orderID uint16) {
	c.mu.Lock()
	delete(c.ackWaiters, orderID)
	c.mu.Unlock()
}

func (c *Client) notifyAck(orderID uint16) {
	c.mu.Lock()
	ch, ok := c.ackWaiters[orderID]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (c *Client) registerOutcome(orderID uint16) chan wire.ServerReply {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan wire.ServerReply, 1)
	c.outcomeWaiters[orderID] = ch
	return ch
}

func (c *Client) forgetOutcome(orderID uint16) {
	c.mu.Lock()
	delete(c.outcomeWaiters, orderID)
	c.mu.Unlock()
}

// notifyOutcome delivers rep to orderID's waiter, if one is still
// registered. A reply for an order whose entry has already been
// cleared (a duplicate) is silently dropped.
func (c *Client) notifyOutcome(rep wire.ServerReply) {
	c.mu.Lock()
	ch, ok := c.outcomeWaiters[rep.OrderID]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- rep:
	default:
	}
}

func (c *Client) sendClientOrder(storeID uint16, orderID uint16, o order.Order) error {
	b, err := wire.Encode(wire.ClientOrder{OrderID: orderID, Order: o})
	if err != nil {
		return err
	}
	_, err = c.conn.WriteToUDP(b, c.ringCfg.PrimaryAddr(storeID))
	return err
}
