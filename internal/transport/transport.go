// Package transport defines the datagram I/O interface and provides
// implementations for production (UDP) and testing (in-memory).
package transport

import "time"

// Transport abstracts addressed, unreliable datagram I/O.
// The reliability layer uses this interface exclusively so that tests can
// inject an in-memory transport — with controlled loss — instead of sockets.
//
// Delivery guarantees are deliberately weak: a datagram may be lost,
// duplicated, or reordered. Everything above this interface must cope.
type Transport interface {
	// Send transmits data to addr. Returns false on failure; callers treat
	// a failed send like a lost datagram.
	Send(data []byte, addr string) bool

	// Receive blocks up to timeout for one datagram. ok is false on timeout
	// or when the transport is closed.
	Receive(timeout time.Duration) (data []byte, addr string, ok bool)

	// LocalAddr returns the address peers should send to.
	LocalAddr() string

	// Close shuts the transport down; a blocked Receive returns ok=false.
	Close() error
}
