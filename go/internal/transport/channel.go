package transport

import "errors"

// ErrChannelClosed is returned by Send once the channel is no longer usable.
var ErrChannelClosed = errors.New("event channel is closed")

// Channel is an asynchronous duplex event stream to the server of record.
// Implementations guarantee FIFO delivery per direction; Inbound is closed
// when the underlying transport closes, however that happens.
type Channel interface {
	// Send enqueues an event for delivery. It never blocks on the network.
	Send(event string, payload any) error
	// Inbound returns the stream of server events.
	Inbound() <-chan Envelope
	// Close tears the transport down. Safe to call more than once.
	Close() error
}
