package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/timour/storefleet/internal/order"
)

// ErrInvalidMessage is returned when a datagram's tag is unrecognized
// or its body is shorter than the tag requires.
var ErrInvalidMessage = fmt.Errorf("wire: invalid message")

// maxTrailLen is the largest ack-trail the fixed datagram budget can
// hold, comfortably above any realistic ring size.
const maxTrailLen = (MaxDatagram - 1 /*tag*/ - 2 /*order_id*/ - order.EncodedSize - 2 /*client_port*/ - 2 /*trail_len*/) / 2

// Encode dispatches to the tag-specific encoder for msg, which must be
// one of the wire message types defined in this package.
func Encode(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case ClientOrder:
		return encodeClientOrder(m), nil
	case Delegated:
		return encodeDelegated(m)
	case AckClient:
		return encodeAckClient(m), nil
	case AckDelegated:
		return encodeAckDelegated(m), nil
	case ServerReply:
		return encodeServerReply(m), nil
	case Kill:
		return []byte{byte(TagKill)}, nil
	case Revive:
		return []byte{byte(TagRevive)}, nil
	default:
		return nil, fmt.Errorf("wire: encode: unsupported message type %T", msg)
	}
}

func encodeClientOrder(m ClientOrder) []byte {
	buf := make([]byte, 0, 1+2+order.EncodedSize)
	buf = append(buf, byte(TagClientOrder))
	buf = appendUint16(buf, m.OrderID)
	buf = m.Order.Encode(buf)
	return buf
}

func encodeDelegated(m Delegated) ([]byte, error) {
	if len(m.AckTrail) > maxTrailLen {
		return nil, fmt.Errorf("wire: encode: trail too long (%d > %d)", len(m.AckTrail), maxTrailLen)
	}
	buf := make([]byte, 0, MaxDatagram)
	buf = append(buf, byte(TagDelegated))
	buf = appendUint16(buf, m.Inner.OrderID)
	buf = m.Inner.Order.Encode(buf)
	buf = appendUint16(buf, m.ClientPort)
	buf = appendUint16(buf, uint16(len(m.AckTrail)))
	for _, id := range m.AckTrail {
		buf = appendUint16(buf, id)
	}
	return buf, nil
}

func encodeAckClient(m AckClient) []byte {
	buf := make([]byte, 0, 3)
	buf = append(buf, byte(TagAckClient))
	return appendUint16(buf, m.OrderID)
}

func encodeAckDelegated(m AckDelegated) []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, byte(TagAckDelegated))
	buf = appendUint16(buf, m.OrderID)
	return appendUint16(buf, m.ClientPort)
}

func encodeServerReply(m ServerReply) []byte {
	buf := make([]byte, 0, 4)
	buf = append(buf, byte(TagServerReply))
	buf = append(buf, byte(m.Subtype))
	return appendUint16(buf, m.OrderID)
}

// Decode parses a single datagram into one of the wire message types.
// It returns ErrInvalidMessage (wrapped with detail) for unknown tags
// or truncated bodies.
func Decode(buf []byte) (any, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("%w: empty datagram", ErrInvalidMessage)
	}

	switch Tag(buf[0]) {
	case TagServerReply:
		return decodeServerReply(buf[1:])
	case TagClientOrder:
		return decodeClientOrder(buf[1:])
	case TagDelegated:
		return decodeDelegated(buf[1:])
	case TagAckDelegated:
		return decodeAckDelegated(buf[1:])
	case TagAckClient:
		return decodeAckClient(buf[1:])
	case TagKill:
		return Kill{}, nil
	case TagRevive:
		return Revive{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrInvalidMessage, buf[0])
	}
}

func decodeServerReply(body []byte) (ServerReply, error) {
	if len(body) < 3 {
		return ServerReply{}, fmt.Errorf("%w: ServerReply short body", ErrInvalidMessage)
	}
	return ServerReply{
		Subtype: ReplySubtype(body[0]),
		OrderID: binary.BigEndian.Uint16(body[1:3]),
	}, nil
}

func decodeClientOrder(body []byte) (ClientOrder, error) {
	if len(body) < 2+order.EncodedSize {
		return ClientOrder{}, fmt.Errorf("%w: ClientOrder short body", ErrInvalidMessage)
	}
	orderID := binary.BigEndian.Uint16(body[0:2])
	o, _, err := order.Decode(body[2:])
	if err != nil {
		return ClientOrder{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return ClientOrder{OrderID: orderID, Order: o}, nil
}

func decodeAckClient(body []byte) (AckClient, error) {
	if len(body) < 2 {
		return AckClient{}, fmt.Errorf("%w: AckClient short body", ErrInvalidMessage)
	}
	return AckClient{OrderID: binary.BigEndian.Uint16(body[0:2])}, nil
}

func decodeAckDelegated(body []byte) (AckDelegated, error) {
	if len(body) < 4 {
		return AckDelegated{}, fmt.Errorf("%w: AckDelegated short body", ErrInvalidMessage)
	}
	return AckDelegated{
		OrderID:    binary.BigEndian.Uint16(body[0:2]),
		ClientPort: binary.BigEndian.Uint16(body[2:4]),
	}, nil
}

func decodeDelegated(body []byte) (Delegated, error) {
	const fixed = 2 + order.EncodedSize + 2 + 2
	if len(body) < fixed {
		return Delegated{}, fmt.Errorf("%w: Delegated short header", ErrInvalidMessage)
	}

	orderID := binary.BigEndian.Uint16(body[0:2])
	o, n, err := order.Decode(body[2:])
	if err != nil {
		return Delegated{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	offset := 2 + n

	clientPort := binary.BigEndian.Uint16(body[offset : offset+2])
	offset += 2

	trailLen := int(binary.BigEndian.Uint16(body[offset : offset+2]))
	offset += 2

	if len(body) < offset+trailLen*2 {
		return Delegated{}, fmt.Errorf("%w: Delegated short trail", ErrInvalidMessage)
	}

	var trail []uint16
	if trailLen > 0 {
		trail = make([]uint16, trailLen)
		for i := 0; i < trailLen; i++ {
			trail[i] = binary.BigEndian.Uint16(body[offset : offset+2])
			offset += 2
		}
	}

	return Delegated{
		Inner:      ClientOrder{OrderID: orderID, Order: o},
		ClientPort: clientPort,
		AckTrail:   trail,
	}, nil
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}
