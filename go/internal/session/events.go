package session

// Event channel message names. Outbound and inbound directions share the
// teleport-family and chat names; payload shapes differ per direction where
// noted below.
const (
	// Inbound only.
	EventInitialize          = "initialize"
	EventPlayerJoined        = "playerJoined"
	EventPlayerMoved         = "playerMoved"
	EventPlayerDisconnect    = "playerDisconnect"
	EventTownSettingsUpdated = "townSettingsUpdated"
	EventTownClosing         = "townClosing"

	// Outbound only.
	EventPlayerMovement = "playerMovement"

	// Both directions.
	EventChatMessage        = "chatMessage"
	EventInteractableUpdate = "interactableUpdate"
	EventTeleportRequest    = "teleportRequest"
	EventTeleportCanceled   = "teleportCanceled"
	EventTeleportAccepted   = "teleportAccepted"
	EventTeleportDenied     = "teleportDenied"
	EventTeleportTimeout    = "teleportTimeout"
	EventTeleportSuccess    = "teleportSuccess"
	EventTeleportFailed     = "teleportFailed"

	// Outbound payload is the bare value (bool, number or null); inbound
	// payload is the participant-scoped form below.
	EventDoNotDisturbChange  = "doNotDisturbChange"
	EventOutgoingTimerChange = "outgoingTeleportTimerChange"
)

// SettingsUpdate is the townSettingsUpdated payload; nil fields are
// unchanged.
type SettingsUpdate struct {
	FriendlyName     *string `json:"friendlyName,omitempty"`
	IsPubliclyListed *bool   `json:"isPubliclyListed,omitempty"`
}

// FlagChange is the inbound doNotDisturbChange payload.
type FlagChange struct {
	ParticipantID string `json:"participantId"`
	State         bool   `json:"state"`
}

// TimerChange is the inbound outgoingTeleportTimerChange payload; a nil
// State means the countdown stopped.
type TimerChange struct {
	ParticipantID string `json:"participantId"`
	State         *int   `json:"state"`
}
