package session

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/townlink/townlink/go/internal/interactables"
	"github.com/townlink/townlink/go/internal/models"
	"github.com/townlink/townlink/go/internal/roster"
	"github.com/townlink/townlink/go/internal/transport"
)

// handle routes one inbound envelope. Called with the controller lock held.
func (c *Controller) handle(env transport.Envelope, out *pending) {
	switch env.Event {
	case EventInitialize:
		log.Warn().Msg("ignoring initialize event on an already joined session")

	case EventPlayerJoined:
		var p models.Participant
		if !c.decode(env, &p) {
			return
		}
		if c.roster.Add(p) {
			all := c.roster.All()
			out.add(func() { c.events.RosterChanged.Publish(all) })
		}
		c.refreshNearbyLocked(out)

	case EventPlayerMoved:
		var p models.Participant
		if !c.decode(env, &p) {
			return
		}
		c.handlePlayerMoved(p, out)

	case EventPlayerDisconnect:
		var p models.Participant
		if !c.decode(env, &p) {
			return
		}
		if c.roster.Remove(p.ID) {
			all := c.roster.All()
			out.add(func() { c.events.RosterChanged.Publish(all) })
		}
		c.refreshNearbyLocked(out)

	case EventTownSettingsUpdated:
		var u SettingsUpdate
		if !c.decode(env, &u) {
			return
		}
		if u.FriendlyName != nil {
			c.settings.FriendlyName = *u.FriendlyName
		}
		if u.IsPubliclyListed != nil {
			c.settings.IsPubliclyListed = *u.IsPubliclyListed
		}
		settings := c.settings
		out.add(func() { c.events.SettingsUpdated.Publish(settings) })

	case EventTownClosing:
		log.Info().Msg("town is closing; tearing session down")
		c.teardownLocked(out)

	case EventChatMessage:
		var m models.ChatMessage
		if !c.decode(env, &m) {
			return
		}
		out.add(func() { c.events.ChatMessage.Publish(m) })

	case EventInteractableUpdate:
		var z models.Interactable
		if !c.decode(env, &z) {
			return
		}
		c.handleInteractableUpdate(z, out)

	case EventTeleportRequest:
		var req models.TeleportRequest
		if !c.decode(env, &req) {
			return
		}
		if req.ToPlayerID != c.roster.LocalID() {
			return
		}
		if c.inbox.Add(req) {
			out.add(func() { c.events.TeleportRequested.Publish(req) })
		}

	case EventTeleportCanceled:
		var req models.TeleportRequest
		if !c.decode(env, &req) {
			return
		}
		if req.ToPlayerID != c.roster.LocalID() {
			return
		}
		if c.inbox.Remove(req) {
			out.add(func() { c.events.TeleportCanceled.Publish(req) })
		}

	case EventTeleportAccepted:
		var req models.TeleportRequest
		if !c.decode(env, &req) {
			return
		}
		c.handleTeleportAccepted(req, out)

	case EventTeleportDenied:
		var req models.TeleportRequest
		if !c.decode(env, &req) {
			return
		}
		if req.FromPlayerID != c.roster.LocalID() {
			return
		}
		if c.outbox.Resolve(req.ToPlayerID, models.OutgoingDenied) {
			c.clearCountdownLocked(out)
			out.add(func() { c.events.TeleportDenied.Publish(req) })
		}

	case EventTeleportTimeout:
		var req models.TeleportRequest
		if !c.decode(env, &req) {
			return
		}
		localID := c.roster.LocalID()
		switch {
		case req.ToPlayerID == localID:
			// The requester's countdown expired while we sat on the request.
			if c.inbox.Remove(req) {
				out.add(func() { c.events.TeleportTimeout.Publish(req) })
			}
		case req.FromPlayerID == localID:
			// Relay echo of our own timeout; normally the local countdown
			// already resolved this.
			if c.outbox.Resolve(req.ToPlayerID, models.OutgoingTimedOut) {
				c.clearCountdownLocked(out)
				out.add(func() { c.events.TeleportTimeout.Publish(req) })
			}
		}

	case EventTeleportFailed:
		var req models.TeleportRequest
		if !c.decode(env, &req) {
			return
		}
		if req.FromPlayerID != c.roster.LocalID() {
			return
		}
		if c.outbox.Resolve(req.ToPlayerID, models.OutgoingFailed) {
			c.clearCountdownLocked(out)
			out.add(func() { c.events.TeleportFailed.Publish(req) })
		}

	case EventTeleportSuccess:
		var req models.TeleportRequest
		if !c.decode(env, &req) {
			return
		}
		// The target's side of a completed negotiation; the requester already
		// resolved it in handleTeleportAccepted.
		if req.ToPlayerID == c.roster.LocalID() {
			out.add(func() { c.events.TeleportSuccess.Publish(req) })
		}

	case EventDoNotDisturbChange:
		var fc FlagChange
		if !c.decode(env, &fc) {
			return
		}
		if c.roster.SetDoNotDisturb(fc.ParticipantID, fc.State) {
			out.add(func() { c.events.DoNotDisturbChanged.Publish(fc) })
		}

	case EventOutgoingTimerChange:
		var tc TimerChange
		if !c.decode(env, &tc) {
			return
		}
		if c.roster.SetOutgoingTimer(tc.ParticipantID, tc.State) {
			out.add(func() { c.events.OutgoingTimerChanged.Publish(tc) })
		}

	default:
		log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

func (c *Controller) handlePlayerMoved(p models.Participant, out *pending) {
	switch c.roster.ApplyMove(p) {
	case roster.MoveInserted:
		all := c.roster.All()
		out.add(func() { c.events.RosterChanged.Publish(all) })
	case roster.MoveApplied, roster.MoveZonePatched:
		moved, _ := c.roster.Get(p.ID)
		cp := *moved
		out.add(func() { c.events.ParticipantMoved.Publish(cp) })
	case roster.MoveIgnored:
	}
	c.refreshNearbyLocked(out)
}

func (c *Controller) handleInteractableUpdate(z models.Interactable, out *pending) {
	change, err := c.zones.ApplyUpdate(z)
	if err != nil {
		if errors.Is(err, interactables.ErrUnknownInteractable) {
			// Lookup failure: membership is snapshot-governed, so an unknown
			// id is surfaced and dropped rather than created.
			log.Warn().Str("interactable_id", z.ID).Msg("zone update for unknown interactable")
			return
		}
		log.Error().Err(err).Str("interactable_id", z.ID).Msg("failed to apply zone update")
		return
	}

	if change.EmptinessFlipped {
		areas := c.zones.ConversationAreas()
		out.add(func() { c.events.ZonesChanged.Publish(areas) })
	}
	area := change.Area
	if change.TopicChanged {
		out.add(func() { c.events.ZoneTopicChanged.Publish(area) })
	}
	if change.OccupantsChanged {
		out.add(func() { c.events.ZoneOccupantsChanged.Publish(area) })
	}
	if change.PlayingChanged {
		out.add(func() { c.events.ZonePlaybackChanged.Publish(area) })
	}
	if change.ElapsedChanged {
		out.add(func() { c.events.ZoneProgressChanged.Publish(area) })
	}
	if change.MediaChanged {
		out.add(func() { c.events.ZoneMediaChanged.Publish(area) })
	}
}

// handleTeleportAccepted resolves the requester's side of an accepted
// negotiation: adopt the target's location if the target is still
// resolvable, otherwise fail. Every anomaly here is an expected outcome of a
// best-effort negotiation and becomes a terminal state plus notification,
// never a fault.
func (c *Controller) handleTeleportAccepted(req models.TeleportRequest, out *pending) {
	if req.FromPlayerID != c.roster.LocalID() {
		return
	}
	active, ok := c.outbox.Active()
	if !ok || active.ToPlayerID != req.ToPlayerID {
		// Refers to a stale or previous request.
		return
	}

	target, found := c.roster.Get(req.ToPlayerID)
	if !found {
		c.outbox.Resolve(req.ToPlayerID, models.OutgoingFailed)
		c.clearCountdownLocked(out)
		c.send(EventTeleportFailed, req)
		out.add(func() { c.events.TeleportFailed.Publish(req) })
		return
	}

	dest := target.Location
	local := c.roster.Local()
	oldZone := local.Location.ZoneID
	local.Location = dest

	c.outbox.Resolve(req.ToPlayerID, models.OutgoingAccepted)
	c.clearCountdownLocked(out)
	c.send(EventPlayerMovement, dest)
	c.send(EventTeleportSuccess, req)

	out.add(func() { c.events.TeleportAccepted.Publish(req) })
	out.add(func() { c.events.TeleportSuccess.Publish(req) })
	c.queueZoneTransition(oldZone, dest.ZoneID, out)
	c.refreshNearbyLocked(out)
}

// queueZoneTransition emits interaction begin/end when the local zone id
// changes.
func (c *Controller) queueZoneTransition(oldZone, newZone string, out *pending) {
	if oldZone == newZone {
		return
	}
	if oldZone != "" {
		out.add(func() { c.events.InteractionEnded.Publish(oldZone) })
	}
	if newZone != "" {
		out.add(func() { c.events.InteractionBegan.Publish(newZone) })
	}
}

// decode unmarshals an envelope payload, logging and dropping malformed
// frames.
func (c *Controller) decode(env transport.Envelope, v any) bool {
	if err := env.Decode(v); err != nil {
		log.Warn().Err(err).Str("event", env.Event).Msg("discarding malformed event payload")
		return false
	}
	return true
}
