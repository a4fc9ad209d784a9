package guardian

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timour/storefleet/internal/order"
)

func newTestGuardian(t *testing.T, stock map[uint16]uint32) *Guardian {
	t.Helper()
	g := New(stock, nil)
	t.Cleanup(g.Close)
	return g
}

func TestReserveOk(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 5})
	ctx := context.Background()

	result, err := g.Reserve(ctx, ReservationKey{OrderID: 0, ClientPort: 1111}, order.Order{ProductID: 1, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, ResultOk, result)

	shelf, err := g.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), shelf[1])
}

func TestReserveExactEmptiesKey(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 5})
	ctx := context.Background()

	result, err := g.Reserve(ctx, ReservationKey{OrderID: 0, ClientPort: 1}, order.Order{ProductID: 1, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, ResultOk, result)

	shelf, err := g.Snapshot(ctx)
	require.NoError(t, err)
	_, present := shelf[1]
	assert.False(t, present, "key should be absent once stock hits zero")
}

func TestReserveNoStock(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{})
	ctx := context.Background()

	result, err := g.Reserve(ctx, ReservationKey{OrderID: 0, ClientPort: 1}, order.Order{ProductID: 7, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, ResultNoStock, result)
}

func TestReserveInsufficient(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 2})
	ctx := context.Background()

	result, err := g.Reserve(ctx, ReservationKey{OrderID: 0, ClientPort: 1}, order.Order{ProductID: 1, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, ResultInsufficient, result)

	shelf, err := g.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), shelf[1], "shelf must be untouched on Insufficient")
}

func TestReserveThenCancelRestoresShelf(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 5})
	ctx := context.Background()
	key := ReservationKey{OrderID: 0, ClientPort: 1}

	_, err := g.Reserve(ctx, key, order.Order{ProductID: 1, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, g.Cancel(ctx, key))

	shelf, err := g.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), shelf[1])
}

func TestReserveThenConfirmLeavesShelfReduced(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 5})
	ctx := context.Background()
	key := ReservationKey{OrderID: 0, ClientPort: 1}

	_, err := g.Reserve(ctx, key, order.Order{ProductID: 1, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, g.Confirm(ctx, key))

	shelf, err := g.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), shelf[1])

	// Confirming again must fail: the reservation is gone.
	assert.ErrorIs(t, g.Confirm(ctx, key), ErrNotFound)
}

func TestCancelUnknownReservation(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{})
	ctx := context.Background()

	err := g.Cancel(ctx, ReservationKey{OrderID: 5, ClientPort: 9})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationKeyedByOrderIDAndClientPort(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 10})
	ctx := context.Background()

	// Two different clients sharing the same order_id must not collide.
	keyA := ReservationKey{OrderID: 0, ClientPort: 1111}
	keyB := ReservationKey{OrderID: 0, ClientPort: 2222}

	_, err := g.Reserve(ctx, keyA, order.Order{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	_, err = g.Reserve(ctx, keyB, order.Order{ProductID: 1, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, g.Confirm(ctx, keyA))
	assert.NoError(t, g.Confirm(ctx, keyB), "keyB confirm should independently succeed")

	shelf, err := g.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), shelf[1])
}

func TestDecrementDoesNotTouchReservations(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 5})
	ctx := context.Background()

	result, err := g.Decrement(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, ResultOk, result)

	// A confirm against a non-existent reservation must still fail,
	// proving Decrement never created one.
	assert.ErrorIs(t, g.Confirm(ctx, ReservationKey{OrderID: 0, ClientPort: 1}), ErrNotFound)
}

func TestConcurrentReservesForSameKeyOnlyOneSucceeds(t *testing.T) {
	g := newTestGuardian(t, map[uint16]uint32{1: 3})
	ctx := context.Background()
	key := ReservationKey{OrderID: 0, ClientPort: 1}

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]Result, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := g.Reserve(ctx, key, order.Order{ProductID: 1, Quantity: 3})
			require.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	oks := 0
	for _, r := range results {
		if r == ResultOk {
			oks++
		}
	}
	assert.Equal(t, 1, oks, "exactly one concurrent reserve for the same key may succeed")
}

func TestClosedGuardianRejectsCalls(t *testing.T) {
	g := New(map[uint16]uint32{1: 1}, nil)
	g.Close()

	_, err := g.Reserve(context.Background(), ReservationKey{}, order.Order{ProductID: 1, Quantity: 1})
	assert.ErrorIs(t, err, ErrClosed)
}
