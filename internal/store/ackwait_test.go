package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckWaiters_NotifyWakesRegisteredWaiter(t *testing.T) {
	w := newAckWaiters()
	key := ackKey{ClientPort: 1, OrderID: 2}

	ch := w.Register(key)
	w.Notify(key)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("notify did not wake the waiter")
	}
}

func TestAckWaiters_NotifyWithoutRegisterIsANoop(t *testing.T) {
	w := newAckWaiters()
	require.NotPanics(t, func() { w.Notify(ackKey{ClientPort: 9, OrderID: 9}) })
}

func TestAckWaiters_ForgetDropsTheEntry(t *testing.T) {
	w := newAckWaiters()
	key := ackKey{ClientPort: 1, OrderID: 2}

	w.Register(key)
	w.Forget(key)

	assert.Empty(t, w.waiting)
}

func TestAckWaiters_RegisterIsIdempotentPerKey(t *testing.T) {
	w := newAckWaiters()
	key := ackKey{ClientPort: 1, OrderID: 2}

	first := w.Register(key)
	second := w.Register(key)

	assert.Same(t, first, second)
}
