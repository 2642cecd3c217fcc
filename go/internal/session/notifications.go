package session

import (
	"github.com/townlink/townlink/go/internal/models"
	"github.com/townlink/townlink/go/internal/pubsub"
)

// Events is the controller's notification surface. Each topic carries
// exactly one payload type; subscriptions return a cancel func (see pubsub).
// Teleport topics are scoped to the local participant's own negotiations.
type Events struct {
	Connected    pubsub.Topic[models.Snapshot]
	Disconnected pubsub.Topic[struct{}]

	SettingsUpdated  pubsub.Topic[models.TownSettings]
	RosterChanged    pubsub.Topic[[]models.Participant]
	ParticipantMoved pubsub.Topic[models.Participant]
	ChatMessage      pubsub.Topic[models.ChatMessage]

	// ZonesChanged fires only on emptiness flips of a conversation area; the
	// zone-scoped topics below fire per changed field.
	ZonesChanged         pubsub.Topic[[]models.Interactable]
	ZoneTopicChanged     pubsub.Topic[models.Interactable]
	ZoneOccupantsChanged pubsub.Topic[models.Interactable]
	ZonePlaybackChanged  pubsub.Topic[models.Interactable]
	ZoneProgressChanged  pubsub.Topic[models.Interactable]
	ZoneMediaChanged     pubsub.Topic[models.Interactable]

	Paused           pubsub.Topic[struct{}]
	Unpaused         pubsub.Topic[struct{}]
	InteractionBegan pubsub.Topic[string]
	InteractionEnded pubsub.Topic[string]

	TeleportRequested pubsub.Topic[models.TeleportRequest]
	TeleportCanceled  pubsub.Topic[models.TeleportRequest]
	TeleportAccepted  pubsub.Topic[models.TeleportRequest]
	TeleportDenied    pubsub.Topic[models.TeleportRequest]
	TeleportTimeout   pubsub.Topic[models.TeleportRequest]
	TeleportSuccess   pubsub.Topic[models.TeleportRequest]
	TeleportFailed    pubsub.Topic[models.TeleportRequest]

	DoNotDisturbChanged  pubsub.Topic[FlagChange]
	OutgoingTimerChanged pubsub.Topic[TimerChange]
	NearbyChanged        pubsub.Topic[[]string]
}

// pending defers notification publishing until after the controller lock is
// released, so a subscriber may call back into the controller.
type pending struct {
	fns []func()
}

func (p *pending) add(fn func()) {
	p.fns = append(p.fns, fn)
}

func (p *pending) flush() {
	for _, fn := range p.fns {
		fn()
	}
}
