// Package ring holds the ring-wide constants and address derivation
// rules shared by stores, clients and the disconnect injector.
package ring

import (
	"fmt"
	"net"
)

// DefaultSize is the ring size used when no override is configured.
const DefaultSize = 4

// DefaultPrimaryBase and DefaultSecondaryBase are the base ports for a
// store's primary and medical sockets; store id adds onto each.
const (
	DefaultPrimaryBase   = 9000
	DefaultSecondaryBase = 10000
)

// DefaultHost is the loopback address every store and client binds to
// in the reference deployment.
const DefaultHost = "127.0.0.1"

// Config describes one ring's addressing scheme. Zero-value fields are
// not valid; use Load or NewDefaultConfig.
type Config struct {
	Size          int
	Host          string
	PrimaryBase   int
	SecondaryBase int
}

// NewDefaultConfig returns the compiled-in ring configuration.
func NewDefaultConfig() Config {
	return Config{
		Size:          DefaultSize,
		Host:          DefaultHost,
		PrimaryBase:   DefaultPrimaryBase,
		SecondaryBase: DefaultSecondaryBase,
	}
}

// PrimaryAddr returns the primary bind/dial address for storeID.
func (c Config) PrimaryAddr(storeID uint16) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.Host), Port: c.PrimaryBase + int(storeID)}
}

// SecondaryAddr returns the medical bind/dial address for storeID.
func (c Config) SecondaryAddr(storeID uint16) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.Host), Port: c.SecondaryBase + int(storeID)}
}

// Next returns the next store id clockwise around the ring from id.
func (c Config) Next(id uint16) uint16 {
	return uint16((int(id) + 1) % c.Size)
}

// Validate reports whether id is a legal store id for this ring.
func (c Config) Validate(id uint16) error {
	if int(id) >= c.Size {
		return fmt.Errorf("ring: store id %d out of range [0,%d)", id, c.Size)
	}
	return nil
}
