// Package order defines the Order value object shared by every wire
// message that carries a product request.
package order

import (
	"encoding/binary"
	"fmt"
)

// EncodedSize is the fixed wire size of an Order body: u16 product id,
// u8 quantity.
const EncodedSize = 3

// Order is an immutable product request: a product id and a quantity.
type Order struct {
	ProductID uint16
	Quantity  uint8
}

// New constructs an Order, rejecting the zero quantity the client
// boundary must never forward onto the wire.
func New(productID uint16, quantity uint8) (Order, error) {
	if quantity == 0 {
		return Order{}, ErrZeroQuantity
	}
	return Order{ProductID: productID, Quantity: quantity}, nil
}

// ErrZeroQuantity is returned by New when quantity is zero.
var ErrZeroQuantity = fmt.Errorf("order: quantity must be non-zero")

// Encode appends the wire representation of o to buf and returns the
// extended slice.
func (o Order) Encode(buf []byte) []byte {
	var hdr [EncodedSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], o.ProductID)
	hdr[2] = o.Quantity
	return append(buf, hdr[:]...)
}

// Decode reads an Order from the front of buf, returning the order and
// the number of bytes consumed.
func Decode(buf []byte) (Order, int, error) {
	if len(buf) < EncodedSize {
		return Order{}, 0, fmt.Errorf("order: short buffer (%d bytes, need %d)", len(buf), EncodedSize)
	}
	return Order{
		ProductID: binary.BigEndian.Uint16(buf[0:2]),
		Quantity:  buf[2],
	}, EncodedSize, nil
}
