// Command signalsender is the external disconnect injector: it sends a
// bare Kill or Revive datagram to a store's primary or medical address,
// standing in for the fault-injection role a human operator or test
// harness plays against the ring.
package main

import (
	"net"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/logging"
	"github.com/timour/storefleet/internal/ring"
	"github.com/timour/storefleet/internal/wire"
)

func main() {
	var (
		id   uint16
		kill bool
	)
	pflag.Uint16Var(&id, "id", 0, "target store id")
	pflag.BoolVar(&kill, "kill", false, "send Kill to the primary address instead of Revive to the medical address")
	pflag.Parse()

	logger := logging.New("signalsender")
	defer logger.Sync() //nolint:errcheck

	ringCfg, err := ring.Load("configs")
	if err != nil {
		logger.Fatal("failed to load ring config", zap.Error(err))
	}
	if err := ringCfg.Validate(id); err != nil {
		logger.Fatal("store id out of range for ring", zap.Error(err))
	}

	var (
		target *net.UDPAddr
		msg    any
	)
	if kill {
		target = ringCfg.PrimaryAddr(id)
		msg = wire.Kill{}
	} else {
		target = ringCfg.SecondaryAddr(id)
		msg = wire.Revive{}
	}

	b, err := wire.Encode(msg)
	if err != nil {
		logger.Fatal("failed to encode control datagram", zap.Error(err))
	}

	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		logger.Fatal("failed to dial target store", zap.Stringer("target", target), zap.Error(err))
	}
	defer conn.Close()

	if _, err := conn.Write(b); err != nil {
		logger.Fatal("failed to send control datagram", zap.Error(err))
	}

	logger.Info("control datagram sent",
		zap.Uint16("store_id", id),
		zap.Bool("kill", kill),
		zap.Stringer("target", target),
	)
	os.Exit(0)
}
