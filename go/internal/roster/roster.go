// Package roster holds the local replica of who is in the town session.
// It is pure data plus invariants: participant ids are unique, the local
// participant is always present once the session has initialized, and remote
// participants are mutated only by server events.
package roster

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/townlink/townlink/go/internal/models"
)

// MoveOutcome describes what a playerMoved event did to the roster.
type MoveOutcome int

const (
	// MoveIgnored means nothing changed (local participant, zone unchanged).
	MoveIgnored MoveOutcome = iota
	// MoveApplied means a remote participant's location was patched.
	MoveApplied
	// MoveInserted means the moved participant was unknown and was inserted
	// from the event payload as a recovery path.
	MoveInserted
	// MoveZonePatched means the event was about the local participant: the
	// zone id was applied but the client-predicted x/y was retained.
	MoveZonePatched
)

// Roster is the set of session participants keyed by id, preserving join
// order for stable listings.
type Roster struct {
	localID      string
	participants map[string]*models.Participant
	order        []string
}

// New builds a roster from the initialize snapshot. It fails if any id is
// duplicated or the local participant is missing, in which case the snapshot
// must be treated as unusable in full.
func New(localID string, participants []models.Participant) (*Roster, error) {
	r := &Roster{
		localID:      localID,
		participants: make(map[string]*models.Participant, len(participants)),
	}
	for _, p := range participants {
		if _, exists := r.participants[p.ID]; exists {
			return nil, fmt.Errorf("duplicate participant id %q in snapshot", p.ID)
		}
		r.insert(p)
	}
	if _, ok := r.participants[localID]; !ok {
		return nil, fmt.Errorf("local participant %q missing from snapshot", localID)
	}
	return r, nil
}

func (r *Roster) insert(p models.Participant) {
	cp := p
	r.participants[p.ID] = &cp
	r.order = append(r.order, p.ID)
}

// LocalID returns the id of the local participant.
func (r *Roster) LocalID() string {
	return r.localID
}

// Local returns the local participant.
func (r *Roster) Local() *models.Participant {
	return r.participants[r.localID]
}

// Get returns the participant with the given id.
func (r *Roster) Get(id string) (*models.Participant, bool) {
	p, ok := r.participants[id]
	return p, ok
}

// All returns copies of every participant in join order.
func (r *Roster) All() []models.Participant {
	out := make([]models.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.participants[id])
	}
	return out
}

// Others returns copies of every remote participant in join order.
func (r *Roster) Others() []models.Participant {
	out := make([]models.Participant, 0, len(r.order))
	for _, id := range r.order {
		if id == r.localID {
			continue
		}
		out = append(out, *r.participants[id])
	}
	return out
}

// Add inserts a newly joined participant. Joins for an id already present
// are ignored; it reports whether the roster changed.
func (r *Roster) Add(p models.Participant) bool {
	if _, exists := r.participants[p.ID]; exists {
		log.Debug().Str("player_id", p.ID).Msg("join for participant already in roster")
		return false
	}
	r.insert(p)
	return true
}

// Remove deletes a departed participant. The local participant is never
// removed by a server event. It reports whether the roster changed.
func (r *Roster) Remove(id string) bool {
	if id == r.localID {
		log.Warn().Str("player_id", id).Msg("ignoring disconnect event for local participant")
		return false
	}
	if _, exists := r.participants[id]; !exists {
		return false
	}
	delete(r.participants, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// ApplyMove patches the location of the matching participant from a
// playerMoved event. For the local participant only the zone id is applied;
// x/y stays client-predicted until the server view matters for zone
// membership. An unknown mover is inserted from the payload as a recovery
// path.
func (r *Roster) ApplyMove(p models.Participant) MoveOutcome {
	existing, ok := r.participants[p.ID]
	if !ok {
		log.Warn().Str("player_id", p.ID).Msg("move for unknown participant; inserting from event payload")
		r.insert(p)
		return MoveInserted
	}
	if p.ID == r.localID {
		if existing.Location.ZoneID == p.Location.ZoneID {
			return MoveIgnored
		}
		existing.Location.ZoneID = p.Location.ZoneID
		return MoveZonePatched
	}
	existing.Location = p.Location
	return MoveApplied
}

// SetDoNotDisturb patches a remote participant's do-not-disturb flag.
// Events about the local participant are ignored to prevent feedback loops.
func (r *Roster) SetDoNotDisturb(id string, state bool) bool {
	if id == r.localID {
		return false
	}
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.DoNotDisturb = state
	return true
}

// SetOutgoingTimer patches a remote participant's relayed countdown value;
// nil clears it. Events about the local participant are ignored.
func (r *Roster) SetOutgoingTimer(id string, seconds *int) bool {
	if id == r.localID {
		return false
	}
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.TimerSecondsRemaining = seconds
	return true
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	return len(r.participants)
}
