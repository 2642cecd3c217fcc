package models

// Direction defines which way a participant's avatar is facing.
type Direction string

const (
	DirectionFront Direction = "front"
	DirectionBack  Direction = "back"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Location is a participant's position within the town map.
// ZoneID is set while the participant stands inside an interactable zone.
type Location struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Facing   Direction `json:"facing"`
	IsMoving bool      `json:"isMoving"`
	ZoneID   string    `json:"zoneId,omitempty"`
}
