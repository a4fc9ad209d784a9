// Package ids mints the non-protocol identifiers used purely for
// observability: one snowflake-based instance id per store process,
// and one uuid correlation id per order the first time a store
// observes it. Neither value ever travels on the wire — order_id and
// client_port alone identify a reservation there (see guardian.ReservationKey).
package ids

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// NewInstanceIDGenerator builds a generator for the given store id.
// Each store uses its own id as the snowflake node id so concurrently
// running stores never mint colliding instance ids.
func NewInstanceIDGenerator(storeID uint16) (*InstanceIDGenerator, error) {
	node, err := snowflake.NewNode(int64(storeID))
	if err != nil {
		return nil, fmt.Errorf("ids: new snowflake node: %w", err)
	}
	return &InstanceIDGenerator{node: node, storeID: storeID}, nil
}

// InstanceIDGenerator mints instance ids scoped to one store.
type InstanceIDGenerator struct {
	node    *snowflake.Node
	storeID uint16
}

// Next mints a fresh instance id string, e.g. "store-3-1234567890".
func (g *InstanceIDGenerator) Next() string {
	return fmt.Sprintf("store-%d-%s", g.storeID, g.node.Generate().String())
}

// NewCorrelationID mints a fresh per-order correlation id for log
// grepping across hops.
func NewCorrelationID() string {
	return uuid.NewString()
}
