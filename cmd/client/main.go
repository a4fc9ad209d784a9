package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/catalog"
	"github.com/timour/storefleet/internal/client"
	"github.com/timour/storefleet/internal/logging"
	"github.com/timour/storefleet/internal/ring"
)

func main() {
	logger := logging.New("client")
	defer logger.Sync() //nolint:errcheck

	ringCfg, err := ring.Load("configs")
	if err != nil {
		logger.Fatal("failed to load ring config", zap.Error(err))
	}

	fixture, err := catalog.PickRandomEcommerceFile("configs/ecommerces")
	if err != nil {
		logger.Fatal("failed to pick an ecommerce fixture", zap.Error(err))
	}
	logger.Info("selected order fixture", zap.String("fixture", fixture))

	orders, err := catalog.LoadOrders(fixture)
	if err != nil {
		logger.Fatal("failed to load orders", zap.Error(err))
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(ringCfg.Host), Port: 0})
	if err != nil {
		logger.Fatal("failed to bind client socket", zap.Error(err))
	}
	defer conn.Close()

	c := client.New(conn, ringCfg, logger)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	go c.Listen(ctx)

	logger.Info("submitting orders", zap.Int("count", len(orders)))
	outcomes := c.ProcessAll(ctx, orders)

	for _, o := range outcomes {
		if o.Err != nil {
			logger.Warn("order did not complete", zap.Uint16("order_id", o.OrderID), zap.Error(o.Err))
			continue
		}
		logger.Info("order outcome",
			zap.Uint16("order_id", o.OrderID),
			zap.Int("subtype", int(o.Reply.Subtype)),
		)
	}
}
