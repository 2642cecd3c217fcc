package models

// Participant is one connected identity in a town session. Exactly one
// participant per session is local (the controller's own identity); remote
// participants are mutated only by server events.
type Participant struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"userName"`
	Location     Location `json:"location"`
	DoNotDisturb bool     `json:"doNotDisturb"`

	// Local negotiation state. Not sent on the wire; the teleport protocol
	// carries TeleportRequest records instead.
	Outgoing Outgoing          `json:"-"`
	Incoming []TeleportRequest `json:"-"`

	// Seconds remaining on the participant's outgoing countdown, nil when no
	// countdown is running. Relayed by outgoingTeleportTimerChange events.
	TimerSecondsRemaining *int `json:"-"`
}
