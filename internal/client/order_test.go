package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timour/storefleet/internal/order"
	"github.com/timour/storefleet/internal/ring"
	"github.com/timour/storefleet/internal/wire"
)

// fakeStore answers exactly one ClientOrder datagram on conn with an
// AckClient followed, after a short pause, by rep, standing in for a
// real store server so the client protocol can be exercised end to end
// over real sockets. The client only listens for an outcome once the
// ack has been handled, and a real store's reply always trails its ack
// (resolve alone waits at least 500ms), hence the pause.
func fakeStore(t *testing.T, conn *net.UDPConn, rep wire.ServerReply) {
	t.Helper()
	buf := make([]byte, wire.MaxDatagram)
	n, from, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)

	msg, err := wire.Decode(buf[:n])
	require.NoError(t, err)
	co := msg.(wire.ClientOrder)

	ack, err := wire.Encode(wire.AckClient{OrderID: co.OrderID})
	require.NoError(t, err)
	_, err = conn.WriteToUDP(ack, from)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	rep.OrderID = co.OrderID
	body, err := wire.Encode(rep)
	require.NoError(t, err)
	_, err = conn.WriteToUDP(body, from)
	require.NoError(t, err)
}

func TestSubmitOrder_AckThenOutcomeResolvesTheOrder(t *testing.T) {
	storeConn := udpLoopback(t)
	clientConn := udpLoopback(t)

	storePort := storeConn.LocalAddr().(*net.UDPAddr).Port
	cfg := ring.Config{Size: 1, Host: "127.0.0.1", PrimaryBase: storePort, SecondaryBase: storePort + 1}

	c := New(clientConn, cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Listen(ctx)
	defer c.Close()

	go fakeStore(t, storeConn, wire.ServerReply{Subtype: wire.ReplySuccess})

	rep, err := c.SubmitOrder(ctx, 0, order.Order{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, wire.ReplySuccess, rep.Subtype)
}

func TestSubmitOrder_AckTimeoutAdvancesToNextStore(t *testing.T) {
	deadStore := udpLoopback(t) // bound, but never reads — simulates a killed primary
	deadPort := deadStore.LocalAddr().(*net.UDPAddr).Port

	liveStore, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: deadPort + 1})
	require.NoError(t, err)
	t.Cleanup(func() { liveStore.Close() })

	clientConn := udpLoopback(t)
	cfg := ring.Config{Size: 2, Host: "127.0.0.1", PrimaryBase: deadPort, SecondaryBase: deadPort + 1000}

	c := New(clientConn, cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Listen(ctx)
	defer c.Close()

	go fakeStore(t, liveStore, wire.ServerReply{Subtype: wire.ReplyCancelled})

	rep, err := c.SubmitOrder(ctx, 3, order.Order{ProductID: 2, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, wire.ReplyCancelled, rep.Subtype)
}
