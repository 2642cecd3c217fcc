package session

import (
	"github.com/google/uuid"

	"github.com/townlink/townlink/go/internal/models"
	"github.com/townlink/townlink/go/internal/negotiation"
)

// RequestTeleport starts a teleport negotiation with the given participant.
// If the target is absent from the roster, the request transitions directly
// to Failed: exactly one failure notification fires and nothing is sent.
// A request while another is pending fails with negotiation.ErrRequestActive.
func (c *Controller) RequestTeleport(targetID string) error {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return ErrNotConnected
	}
	if _, active := c.outbox.Active(); active {
		return negotiation.ErrRequestActive
	}

	req := models.TeleportRequest{
		FromPlayerID: c.roster.LocalID(),
		ToPlayerID:   targetID,
		Time:         c.clock.Now(),
	}

	if _, ok := c.roster.Get(targetID); !ok {
		c.outbox.Fail()
		out.add(func() { c.events.TeleportFailed.Publish(req) })
		return nil
	}

	if err := c.outbox.Begin(req); err != nil {
		return err
	}
	c.send(EventTeleportRequest, req)

	secs := c.countdownSeconds
	local := c.roster.Local()
	local.TimerSecondsRemaining = &secs
	c.send(EventOutgoingTimerChange, &secs)
	change := TimerChange{ParticipantID: local.ID, State: &secs}
	out.add(func() { c.events.OutgoingTimerChanged.Publish(change) })
	out.add(func() { c.events.TeleportRequested.Publish(req) })

	c.startCountdownLocked(req)
	return nil
}

// CancelTeleport withdraws the active outgoing request if its target matches
// targetID. Anything else is a no-op: no event is sent.
func (c *Controller) CancelTeleport(targetID string) error {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return ErrNotConnected
	}
	active, ok := c.outbox.Active()
	if !ok || active.ToPlayerID != targetID {
		return nil
	}
	c.outbox.Resolve(targetID, models.OutgoingCancelled)
	c.send(EventTeleportCanceled, active)
	c.clearCountdownLocked(&out)
	out.add(func() { c.events.TeleportCanceled.Publish(active) })
	return nil
}

// AcceptTeleport answers an incoming request positively. If the record is no
// longer present (already cancelled, already handled, or from a departed
// peer) a teleportFailed event is sent instead: staleness is an expected
// outcome, never an error.
func (c *Controller) AcceptTeleport(req models.TeleportRequest) error {
	return c.answerTeleport(req, EventTeleportAccepted, &c.events.TeleportAccepted)
}

// DenyTeleport answers an incoming request negatively, with the same
// staleness semantics as AcceptTeleport.
func (c *Controller) DenyTeleport(req models.TeleportRequest) error {
	return c.answerTeleport(req, EventTeleportDenied, &c.events.TeleportDenied)
}

func (c *Controller) answerTeleport(req models.TeleportRequest, event string, topic interface{ Publish(models.TeleportRequest) }) error {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return ErrNotConnected
	}
	if !c.inbox.Remove(req) {
		c.send(EventTeleportFailed, req)
		return nil
	}
	c.send(event, req)
	out.add(func() { topic.Publish(req) })
	return nil
}

// MoveTo updates the local participant's position optimistically and sends
// the movement to the server. Zone transitions emit interaction begin/end.
func (c *Controller) MoveTo(loc models.Location) error {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return ErrNotConnected
	}
	local := c.roster.Local()
	oldZone := local.Location.ZoneID
	local.Location = loc
	c.send(EventPlayerMovement, loc)

	cp := *local
	out.add(func() { c.events.ParticipantMoved.Publish(cp) })
	c.queueZoneTransition(oldZone, loc.ZoneID, &out)
	c.refreshNearbyLocked(&out)
	return nil
}

// SendChat publishes a message on the town chat channel and returns the
// record that was sent; delivery back to observers happens via the server
// echo.
func (c *Controller) SendChat(body string) (models.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return models.ChatMessage{}, ErrNotConnected
	}
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		AuthorID:  c.roster.LocalID(),
		Body:      body,
		CreatedAt: c.clock.Now(),
	}
	c.send(EventChatMessage, msg)
	return msg, nil
}

// UpdateInteractable sends a zone update for an existing interactable. The
// local registry is reconciled from the server echo, keeping one code path
// for zone mutations.
func (c *Controller) UpdateInteractable(z models.Interactable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return ErrNotConnected
	}
	c.send(EventInteractableUpdate, z)
	return nil
}

// SetDoNotDisturb toggles the local do-not-disturb flag. Enabling it denies
// every pending incoming request and cancels the active outgoing request,
// each exactly once, before announcing the change.
func (c *Controller) SetDoNotDisturb(state bool) error {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return ErrNotConnected
	}
	local := c.roster.Local()
	if local.DoNotDisturb == state {
		return nil
	}
	local.DoNotDisturb = state

	if state {
		for _, req := range c.inbox.Drain() {
			req := req
			c.send(EventTeleportDenied, req)
			out.add(func() { c.events.TeleportDenied.Publish(req) })
		}
		if active, ok := c.outbox.Active(); ok {
			c.outbox.Resolve(active.ToPlayerID, models.OutgoingCancelled)
			c.send(EventTeleportCanceled, active)
			c.clearCountdownLocked(&out)
			out.add(func() { c.events.TeleportCanceled.Publish(active) })
		}
	}

	c.send(EventDoNotDisturbChange, state)
	change := FlagChange{ParticipantID: local.ID, State: state}
	out.add(func() { c.events.DoNotDisturbChanged.Publish(change) })
	return nil
}

// Pause and Unpause surface local UI pauses to observers (the render loop,
// typically). They touch no session state.
func (c *Controller) Pause() {
	c.events.Paused.Publish(struct{}{})
}

// Unpause reverses Pause.
func (c *Controller) Unpause() {
	c.events.Unpaused.Publish(struct{}{})
}

// Settings returns the current town settings.
func (c *Controller) Settings() models.TownSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// LocalParticipant returns a copy of the local participant with its live
// negotiation state attached.
func (c *Controller) LocalParticipant() (models.Participant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roster == nil {
		return models.Participant{}, false
	}
	p := *c.roster.Local()
	p.Outgoing = c.outbox.Current()
	p.Incoming = c.inbox.List()
	return p, true
}

// Participants returns copies of every session participant in join order.
func (c *Controller) Participants() []models.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roster == nil {
		return nil
	}
	return c.roster.All()
}

// Interactables returns copies of every shared zone in snapshot order.
func (c *Controller) Interactables() []models.Interactable {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.zones == nil {
		return nil
	}
	return c.zones.All()
}

// IncomingRequests returns the pending incoming teleport requests.
func (c *Controller) IncomingRequests() []models.TeleportRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inbox.List()
}

// OutgoingNegotiation returns the outgoing variant: the pending request or
// the last terminal status.
func (c *Controller) OutgoingNegotiation() models.Outgoing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbox.Current()
}

// Nearby returns the most recently computed nearby participant ids.
func (c *Controller) Nearby() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prox.Current()
}
