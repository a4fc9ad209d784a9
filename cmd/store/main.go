package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/catalog"
	"github.com/timour/storefleet/internal/ids"
	"github.com/timour/storefleet/internal/logging"
	"github.com/timour/storefleet/internal/messenger"
	"github.com/timour/storefleet/internal/ring"
	"github.com/timour/storefleet/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: store <store-id>")
		os.Exit(1)
	}

	logger := logging.New("store")
	defer logger.Sync() //nolint:errcheck

	storeID, err := ring.ParseStoreID(os.Args[1])
	if err != nil {
		logger.Fatal("bad store id argument", zap.String("arg", os.Args[1]), zap.Error(err))
	}

	ringCfg, err := ring.Load("configs")
	if err != nil {
		logger.Fatal("failed to load ring config", zap.Error(err))
	}
	if err := ringCfg.Validate(storeID); err != nil {
		logger.Fatal("store id out of range for ring", zap.Error(err))
	}

	idGen, err := ids.NewInstanceIDGenerator(storeID)
	if err != nil {
		logger.Fatal("failed to create instance id generator", zap.Error(err))
	}
	logger = logger.With(zap.String("instance_id", idGen.Next()), zap.Uint16("store_id", storeID))

	stock, err := catalog.LoadStock(filepath.Join("configs", fmt.Sprintf("stock%d.json", storeID)))
	if err != nil {
		logger.Fatal("failed to load stock", zap.Error(err))
	}

	localOrders, err := catalog.LoadOrders(filepath.Join("configs", fmt.Sprintf("pedidos%d.json", storeID)))
	if err != nil {
		logger.Fatal("failed to load local orders", zap.Error(err))
	}

	primary, err := net.ListenUDP("udp", ringCfg.PrimaryAddr(storeID))
	if err != nil {
		logger.Fatal("failed to bind primary socket", zap.Error(err))
	}

	msgr := messenger.New(primary, logger)
	server := store.New(storeID, ringCfg, primary, msgr, stock, logger)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("processing local orders", zap.Int("count", len(localOrders)))
	go server.RunLocalOrders(ctx, localOrders)

	logger.Info("store listening", zap.Stringer("primary_addr", ringCfg.PrimaryAddr(storeID)))
	if err := server.Run(ctx); err != nil {
		logger.Error("store loop exited with error", zap.Error(err))
		os.Exit(1)
	}
}
