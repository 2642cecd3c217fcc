// Package negotiation holds the per-participant state of the teleport
// protocol: the single outgoing request (Outbox), the ordered set of incoming
// requests (Inbox), and the countdown timer bound to a pending outgoing
// request.
package negotiation

import "github.com/townlink/townlink/go/internal/models"

// Inbox is the ordered sequence of teleport requests addressed to the local
// participant. Records are matched by value (fromId, toId, createdAt), never
// by reference; duplicates are silently ignored.
type Inbox struct {
	requests []models.TeleportRequest
}

// Add appends a request unless a value-equal record is already present.
// It reports whether the inbox changed.
func (b *Inbox) Add(req models.TeleportRequest) bool {
	if b.Contains(req) {
		return false
	}
	b.requests = append(b.requests, req)
	return true
}

// Contains reports whether a value-equal record is present.
func (b *Inbox) Contains(req models.TeleportRequest) bool {
	for _, r := range b.requests {
		if r.Equal(req) {
			return true
		}
	}
	return false
}

// Remove deletes the value-equal record, preserving insertion order of the
// rest. It reports whether a record was removed.
func (b *Inbox) Remove(req models.TeleportRequest) bool {
	for i, r := range b.requests {
		if r.Equal(req) {
			b.requests = append(b.requests[:i], b.requests[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the pending requests in insertion order.
func (b *Inbox) List() []models.TeleportRequest {
	out := make([]models.TeleportRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// Drain empties the inbox and returns what it held, in insertion order.
// Used at teardown to synthesize a deny for every waiting peer.
func (b *Inbox) Drain() []models.TeleportRequest {
	out := b.requests
	b.requests = nil
	return out
}

// Len returns the number of pending incoming requests.
func (b *Inbox) Len() int {
	return len(b.requests)
}
