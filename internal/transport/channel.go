package transport

import "errors"

var (
	// ErrBadStatus is returned when the ground station answers a request
	// with a non-2xx status.
	ErrBadStatus = errors.New("unexpected response status")

	// ErrClosed is returned when sending over a channel that has been
	// closed or has lost its connection.
	ErrClosed = errors.New("channel closed")
)

// Channel transmits one wire message to the ground station.
type Channel interface {
	// Send transmits payload. An error means this payload was not
	// delivered over this channel; the caller decides whether to fall back.
	Send(payload []byte) error

	// Name identifies the transport for snapshots and logs.
	Name() string
}

// Secondary is the persistent low-latency channel. Besides sending it
// delivers inbound operator messages through a bounded queue.
type Secondary interface {
	Channel

	// Inbound returns the queue of received messages. The queue is closed
	// when the connection is lost.
	Inbound() <-chan []byte

	// Close tears the connection down. Safe to call multiple times.
	Close() error
}
