package negotiation

import (
	"errors"

	"github.com/townlink/townlink/go/internal/models"
)

// ErrRequestActive is returned when a new outgoing request is attempted
// while another is still pending.
var ErrRequestActive = errors.New("an outgoing teleport request is already pending")

// Outbox tracks the local participant's single outgoing negotiation. At most
// one request is active at a time; a new one may begin only while the current
// value is idle or any terminal status.
type Outbox struct {
	current models.Outgoing
}

// Current returns the outgoing variant: the pending request or the terminal
// status of the most recently resolved one.
func (o *Outbox) Current() models.Outgoing {
	return o.current
}

// Active returns the pending request, if any.
func (o *Outbox) Active() (models.TeleportRequest, bool) {
	if o.current.Status == models.OutgoingPending {
		return o.current.Request, true
	}
	return models.TeleportRequest{}, false
}

// Begin makes req the active outgoing request. It fails with
// ErrRequestActive if another request is still pending.
func (o *Outbox) Begin(req models.TeleportRequest) error {
	if !o.current.Terminal() {
		return ErrRequestActive
	}
	o.current = models.Outgoing{Status: models.OutgoingPending, Request: req}
	return nil
}

// Resolve moves the pending request to a terminal status, but only if its
// target matches targetID; a mismatch means the event refers to a stale or
// previous request and is ignored. It reports whether the transition applied.
func (o *Outbox) Resolve(targetID string, status models.OutgoingStatus) bool {
	if o.current.Status != models.OutgoingPending {
		return false
	}
	if o.current.Request.ToPlayerID != targetID {
		return false
	}
	o.current = models.Outgoing{Status: status}
	return true
}

// Fail records a terminal failure without the request ever reaching the
// pending state (target absent from the roster at request time).
func (o *Outbox) Fail() {
	o.current = models.Outgoing{Status: models.OutgoingFailed}
}

// Reset returns the outbox to idle.
func (o *Outbox) Reset() {
	o.current = models.Outgoing{Status: models.OutgoingIdle}
}
