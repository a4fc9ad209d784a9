// Package wire implements the byte-exact datagram codec shared by
// stores, clients and the disconnect injector: every message on the
// network begins with a one-byte tag followed by a tag-specific body,
// all multi-byte integers big-endian.
package wire

import "github.com/timour/storefleet/internal/order"

// Tag identifies the wire message variant.
type Tag uint8

const (
	TagServerReply   Tag = 0
	TagClientOrder   Tag = 1
	TagDelegated     Tag = 2
	TagAckDelegated  Tag = 3
	TagAckClient     Tag = 4
	TagKill          Tag = 5
	TagRevive        Tag = 6
)

// MaxDatagram is the largest datagram this protocol ever sends.
const MaxDatagram = 100

// ReplySubtype distinguishes the three possible outcomes of an order.
type ReplySubtype uint8

const (
	ReplySuccess   ReplySubtype = 0
	ReplyCancelled ReplySubtype = 1
	ReplyNoStock   ReplySubtype = 2
)

// ClientOrder is sent by a client to whichever store it first targets.
type ClientOrder struct {
	OrderID uint16
	Order   order.Order
}

// Delegated wraps a ClientOrder as it travels around the ring, carrying
// the client's reply port and the set of stores that have already
// refused it.
type Delegated struct {
	Inner      ClientOrder
	ClientPort uint16
	AckTrail   []uint16
}

// AckClient acknowledges receipt of a ClientOrder back to the client.
type AckClient struct {
	OrderID uint16
}

// AckDelegated acknowledges receipt of a Delegated message back to the
// delegating store.
type AckDelegated struct {
	OrderID    uint16
	ClientPort uint16
}

// ServerReply is the terminal outcome sent to a client for one order.
type ServerReply struct {
	Subtype ReplySubtype
	OrderID uint16
}

// Kill and Revive are bodiless control datagrams.
type Kill struct{}
type Revive struct{}

// InTrail reports whether storeID has already refused this delegation.
func (d Delegated) InTrail(storeID uint16) bool {
	for _, id := range d.AckTrail {
		if id == storeID {
			return true
		}
	}
	return false
}

// WithTrailAppended returns a copy of d with storeID appended to its
// trail. The caller must add its own id before delegating onward —
// never after — or two stores can delegate to each other forever.
func (d Delegated) WithTrailAppended(storeID uint16) Delegated {
	trail := make([]uint16, len(d.AckTrail), len(d.AckTrail)+1)
	copy(trail, d.AckTrail)
	trail = append(trail, storeID)
	return Delegated{Inner: d.Inner, ClientPort: d.ClientPort, AckTrail: trail}
}
