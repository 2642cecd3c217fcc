// Package interactables holds the local replica of the town's shared zone
// objects and reconciles server zone-update events into minimal change sets.
package interactables

import (
	"errors"

	"github.com/samber/lo"

	"github.com/townlink/townlink/go/internal/models"
)

// ErrUnknownInteractable is returned when a zone-update event references an
// id not present in the registry. Entries are created only by the initialize
// snapshot; an unknown id is a lookup failure, not an implicit create.
var ErrUnknownInteractable = errors.New("no interactable with that id")

// Change describes what a zone update actually changed, so the controller
// can emit the minimal correct set of notifications.
type Change struct {
	// Area is the post-update value.
	Area models.Interactable

	// EmptinessFlipped is set when a conversation area transitioned between
	// zero and non-zero occupants. Occupant churn among non-empty states does
	// not set it; that bounds town-level notifications to topologically
	// meaningful transitions.
	EmptinessFlipped bool
	// TopicChanged and OccupantsChanged fire independently of the flip.
	TopicChanged     bool
	OccupantsChanged bool

	// Viewing area field diffs, one per wire field.
	PlayingChanged bool
	ElapsedChanged bool
	MediaChanged   bool
}

// Any reports whether the update changed anything observable.
func (c Change) Any() bool {
	return c.EmptinessFlipped || c.TopicChanged || c.OccupantsChanged ||
		c.PlayingChanged || c.ElapsedChanged || c.MediaChanged
}

// Registry is the set of shared zone objects keyed by id, preserving
// snapshot order for stable listings.
type Registry struct {
	zones map[string]*models.Interactable
	order []string
}

// New builds a registry from the initialize snapshot.
func New(zones []models.Interactable) *Registry {
	r := &Registry{zones: make(map[string]*models.Interactable, len(zones))}
	for _, z := range zones {
		if _, exists := r.zones[z.ID]; exists {
			continue
		}
		cp := z
		r.zones[z.ID] = &cp
		r.order = append(r.order, z.ID)
	}
	return r
}

// Get returns a copy of the zone with the given id.
func (r *Registry) Get(id string) (models.Interactable, bool) {
	z, ok := r.zones[id]
	if !ok {
		return models.Interactable{}, false
	}
	return *z, true
}

// All returns copies of every zone in snapshot order.
func (r *Registry) All() []models.Interactable {
	out := make([]models.Interactable, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.zones[id])
	}
	return out
}

// ConversationAreas returns copies of the conversation-area zones only.
func (r *Registry) ConversationAreas() []models.Interactable {
	return lo.Filter(r.All(), func(z models.Interactable, _ int) bool {
		return z.Type == models.InteractableConversationArea
	})
}

// ApplyUpdate patches the existing entry matched by the update's id and
// reports field-level changes. Updates for unknown ids fail with
// ErrUnknownInteractable and leave the registry untouched.
func (r *Registry) ApplyUpdate(update models.Interactable) (Change, error) {
	existing, ok := r.zones[update.ID]
	if !ok {
		return Change{}, ErrUnknownInteractable
	}

	change := Change{}
	switch existing.Type {
	case models.InteractableConversationArea:
		wasEmpty := existing.Empty()
		change.TopicChanged = existing.Topic != update.Topic
		change.OccupantsChanged = !sameIDSet(existing.OccupantIDs, update.OccupantIDs)
		existing.Topic = update.Topic
		existing.OccupantIDs = update.OccupantIDs
		change.EmptinessFlipped = wasEmpty != existing.Empty()

	case models.InteractableViewingArea:
		change.PlayingChanged = existing.IsPlaying != update.IsPlaying
		change.ElapsedChanged = existing.ElapsedSec != update.ElapsedSec
		change.MediaChanged = existing.MediaRef != update.MediaRef
		existing.IsPlaying = update.IsPlaying
		existing.ElapsedSec = update.ElapsedSec
		existing.MediaRef = update.MediaRef
	}

	change.Area = *existing
	return change, nil
}

// sameIDSet compares occupant id sets order-independently.
func sameIDSet(a, b []string) bool {
	left, right := lo.Difference(a, b)
	return len(left) == 0 && len(right) == 0
}
