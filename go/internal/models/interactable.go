package models

// InteractableType defines the kind of shared zone object.
type InteractableType string

const (
	InteractableConversationArea InteractableType = "ConversationArea"
	InteractableViewingArea      InteractableType = "ViewingArea"
)

// Interactable is a shared zone object with server-governed state. The
// variant fields after Type apply to one kind only: Topic and OccupantIDs to
// conversation areas, MediaRef/IsPlaying/ElapsedSec to viewing areas.
// Entries are created and destroyed only by server snapshot/update events.
type Interactable struct {
	ID   string           `json:"id"`
	Type InteractableType `json:"type"`

	// Conversation area fields.
	Topic       string   `json:"topic,omitempty"`
	OccupantIDs []string `json:"occupantIds,omitempty"`

	// Viewing area fields.
	MediaRef   string  `json:"mediaRef,omitempty"`
	IsPlaying  bool    `json:"isPlaying,omitempty"`
	ElapsedSec float64 `json:"elapsedSec,omitempty"`
}

// Empty reports whether a conversation area has no occupants.
func (i Interactable) Empty() bool {
	return len(i.OccupantIDs) == 0
}
