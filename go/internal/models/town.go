package models

// TownSettings holds the mutable session metadata delivered on join and
// patched by townSettingsUpdated events.
type TownSettings struct {
	FriendlyName     string `json:"friendlyName"`
	IsPubliclyListed bool   `json:"isPubliclyListed"`
}

// Snapshot is the full initial state delivered by the server's initialize
// event. A connection attempt resolves only once a snapshot has been applied
// in full.
type Snapshot struct {
	PlayerID         string         `json:"playerId"`
	FriendlyName     string         `json:"friendlyName"`
	IsPubliclyListed bool           `json:"isPubliclyListed"`
	Participants     []Participant  `json:"currentPlayers"`
	Interactables    []Interactable `json:"interactables"`
}
