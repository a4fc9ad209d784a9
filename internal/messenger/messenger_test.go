package messenger

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udpLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSendWhileConnected(t *testing.T) {
	sender := udpLoopback(t)
	receiver := udpLoopback(t)
	m := New(sender, nil)

	err := m.Send([]byte{1, 2, 3}, receiver.LocalAddr().(*net.UDPAddr))
	assert.NoError(t, err)
	assert.True(t, m.IsConnected())
}

func TestSendWhileDisconnectedIsOffline(t *testing.T) {
	sender := udpLoopback(t)
	m := New(sender, nil)
	m.Disconnect()

	err := m.Send([]byte{1}, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1})
	assert.ErrorIs(t, err, ErrOffline)
	assert.False(t, m.IsConnected())
}

func TestReconnectRestoresConnectedState(t *testing.T) {
	first := udpLoopback(t)
	second := udpLoopback(t)
	receiver := udpLoopback(t)

	m := New(first, nil)
	m.Disconnect()
	m.Reconnect(second)

	assert.True(t, m.IsConnected())
	assert.NoError(t, m.Send([]byte{9}, receiver.LocalAddr().(*net.UDPAddr)))
}

func TestKillIsTerminal(t *testing.T) {
	sender := udpLoopback(t)
	m := New(sender, nil)
	m.Kill()

	err := m.Send([]byte{1}, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1})
	assert.ErrorIs(t, err, ErrDead)

	// Reconnect after Kill must not resurrect the messenger.
	m.Reconnect(udpLoopback(t))
	assert.False(t, m.IsConnected())
}
