package models

import "time"

// TeleportRequest is the wire record of one teleport negotiation between two
// participants. Two records refer to the same request iff all three fields
// are equal; reconciliation must use Equal, never pointer identity, because
// the same request can arrive via a local optimistic copy and a server echo.
type TeleportRequest struct {
	FromPlayerID string    `json:"fromPlayerId"`
	ToPlayerID   string    `json:"toPlayerId"`
	Time         time.Time `json:"time"`
}

// Equal reports whether two records identify the same teleport request.
func (r TeleportRequest) Equal(other TeleportRequest) bool {
	return r.FromPlayerID == other.FromPlayerID &&
		r.ToPlayerID == other.ToPlayerID &&
		r.Time.Equal(other.Time)
}

// OutgoingStatus defines the state of a participant's outgoing teleport
// negotiation.
type OutgoingStatus string

const (
	OutgoingIdle      OutgoingStatus = "IDLE"
	OutgoingPending   OutgoingStatus = "PENDING"
	OutgoingAccepted  OutgoingStatus = "ACCEPTED"
	OutgoingDenied    OutgoingStatus = "DENIED"
	OutgoingCancelled OutgoingStatus = "CANCELLED"
	OutgoingTimedOut  OutgoingStatus = "TIMED_OUT"
	OutgoingFailed    OutgoingStatus = "FAILED"
)

// Outgoing is the tagged variant holding a participant's outgoing
// negotiation: either the pending request, or the terminal status of the
// most recently resolved one. Request is meaningful only while Status is
// OutgoingPending.
type Outgoing struct {
	Status  OutgoingStatus  `json:"status"`
	Request TeleportRequest `json:"request,omitzero"`
}

// Active reports whether a request is currently in flight.
func (o Outgoing) Active() bool {
	return o.Status == OutgoingPending
}

// Terminal reports whether a new outgoing request may be created. Idle and
// every resolved status permit one; only a pending request blocks it.
func (o Outgoing) Terminal() bool {
	return o.Status != OutgoingPending
}
