// Package session implements the town session controller: it owns the event
// channel connection, applies authoritative server events to the local
// replicas (roster, negotiation state, interactable registry), and exposes
// intent methods plus a typed notification surface to decoupled observers.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/townlink/townlink/go/internal/interactables"
	"github.com/townlink/townlink/go/internal/models"
	"github.com/townlink/townlink/go/internal/negotiation"
	"github.com/townlink/townlink/go/internal/proximity"
	"github.com/townlink/townlink/go/internal/roster"
	"github.com/townlink/townlink/go/internal/transport"
)

// ConnState is the connection lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "DISCONNECTED"
	StateConnecting   ConnState = "CONNECTING"
	StateJoined       ConnState = "JOINED"
)

// Dialer opens the event channel. The default dials the configured URL over
// websocket; tests substitute an in-memory channel.
type Dialer func(ctx context.Context) (transport.Channel, error)

// Config holds controller configuration.
type Config struct {
	// URL of the town server's join endpoint (websocket).
	URL string
	// Channel tunes the websocket transport.
	Channel transport.Config
	// CountdownSeconds is the outgoing teleport timeout; 0 selects the
	// default of 30.
	CountdownSeconds int
	// ProximityThreshold and ProximityInterval tune the nearby calculator;
	// zero values select the package defaults.
	ProximityThreshold float64
	ProximityInterval  time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// Dialer overrides the websocket dialer.
	Dialer Dialer
}

// Controller is the client-side session controller. All state mutation
// happens under one mutex, taken by the event loop, timer callbacks, and
// intent methods alike, so no two handlers ever run concurrently.
type Controller struct {
	clock            clockwork.Clock
	dialer           Dialer
	countdownSeconds int

	mu       sync.Mutex
	state    ConnState
	channel  transport.Channel
	roster   *roster.Roster
	zones    *interactables.Registry
	settings models.TownSettings
	inbox    negotiation.Inbox
	outbox   negotiation.Outbox
	prox     *proximity.Calculator

	countdown    *negotiation.Countdown
	countdownGen int

	disconnectEmitted bool

	events Events
}

// New creates a controller in the Disconnected state.
func New(config Config) *Controller {
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	seconds := config.CountdownSeconds
	if seconds <= 0 {
		seconds = negotiation.DefaultCountdownSeconds
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = func(ctx context.Context) (transport.Channel, error) {
			return transport.Dial(ctx, config.URL, config.Channel)
		}
	}
	return &Controller{
		clock:            clock,
		dialer:           dialer,
		countdownSeconds: seconds,
		state:            StateDisconnected,
		prox:             proximity.NewCalculator(clock, config.ProximityThreshold, config.ProximityInterval),
	}
}

// Events returns the notification surface.
func (c *Controller) Events() *Events {
	return &c.events
}

// State returns the connection lifecycle state.
func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the event channel and resolves only once the initialize
// snapshot has been received and applied in full. A transport close before
// the snapshot fails with ErrJoinRejected; a snapshot that cannot be applied
// fails with ErrBadSnapshot. On success the controller is Joined and the
// event loop is running.
func (c *Controller) Connect(ctx context.Context) (models.Snapshot, error) {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return models.Snapshot{}, ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	snap, ch, err := c.join(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return models.Snapshot{}, err
	}

	// Build the replicas off to the side so the session state flips over
	// atomically; a half-applied snapshot never becomes visible.
	ros, err := roster.New(snap.PlayerID, snap.Participants)
	if err != nil {
		ch.Close()
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	zones := interactables.New(snap.Interactables)

	c.mu.Lock()
	c.channel = ch
	c.roster = ros
	c.zones = zones
	c.settings = models.TownSettings{
		FriendlyName:     snap.FriendlyName,
		IsPubliclyListed: snap.IsPubliclyListed,
	}
	c.inbox = negotiation.Inbox{}
	c.outbox.Reset()
	c.disconnectEmitted = false
	c.state = StateJoined
	c.mu.Unlock()

	go c.run(ch)

	log.Info().
		Str("player_id", snap.PlayerID).
		Str("town", snap.FriendlyName).
		Int("participants", len(snap.Participants)).
		Msg("joined town session")

	c.events.Connected.Publish(snap)
	return snap, nil
}

// join dials the channel and waits for the initialize snapshot.
func (c *Controller) join(ctx context.Context) (models.Snapshot, transport.Channel, error) {
	ch, err := c.dialer(ctx)
	if err != nil {
		return models.Snapshot{}, nil, fmt.Errorf("open event channel: %w", err)
	}

	for {
		select {
		case env, ok := <-ch.Inbound():
			if !ok {
				ch.Close()
				return models.Snapshot{}, nil, ErrJoinRejected
			}
			if env.Event != EventInitialize {
				// Nothing before the snapshot is meaningful to us yet.
				log.Debug().Str("event", env.Event).Msg("ignoring pre-initialize event")
				continue
			}
			var snap models.Snapshot
			if err := env.Decode(&snap); err != nil {
				ch.Close()
				return models.Snapshot{}, nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
			}
			return snap, ch, nil

		case <-ctx.Done():
			ch.Close()
			return models.Snapshot{}, nil, ctx.Err()
		}
	}
}

// run is the session event loop: one inbound envelope at a time until the
// channel closes.
func (c *Controller) run(ch transport.Channel) {
	for env := range ch.Inbound() {
		c.dispatch(env)
	}
	c.transportClosed(ch)
}

func (c *Controller) dispatch(env transport.Envelope) {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return
	}
	c.handle(env, &out)
}

// transportClosed handles an unexpected channel close: peers cannot be
// notified anymore, so negotiation state is simply discarded.
func (c *Controller) transportClosed(ch transport.Channel) {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != ch {
		// A deliberate disconnect already ran teardown for this channel.
		return
	}
	log.Warn().Msg("event channel closed unexpectedly")

	c.inbox.Drain()
	if active, ok := c.outbox.Active(); ok {
		c.outbox.Resolve(active.ToPlayerID, models.OutgoingCancelled)
	}
	c.stopCountdownLocked()
	c.channel = nil
	c.state = StateDisconnected
	c.emitDisconnectedLocked(&out)
}

// Disconnect leaves the session deliberately: every pending incoming request
// is denied and any active outgoing request cancelled, so peers are not left
// waiting on a vanished participant, then the channel is closed.
func (c *Controller) Disconnect() error {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateJoined {
		return ErrNotConnected
	}
	c.teardownLocked(&out)
	return nil
}

// teardownLocked implements the negotiation teardown plus disconnect
// transition shared by Disconnect and townClosing.
func (c *Controller) teardownLocked(out *pending) {
	for _, req := range c.inbox.Drain() {
		c.send(EventTeleportDenied, req)
	}
	if active, ok := c.outbox.Active(); ok {
		c.outbox.Resolve(active.ToPlayerID, models.OutgoingCancelled)
		c.send(EventTeleportCanceled, active)
	}
	c.clearCountdownLocked(out)

	ch := c.channel
	c.channel = nil
	c.state = StateDisconnected
	c.emitDisconnectedLocked(out)
	if ch != nil {
		out.add(func() { ch.Close() })
	}
}

func (c *Controller) emitDisconnectedLocked(out *pending) {
	if c.disconnectEmitted {
		return
	}
	c.disconnectEmitted = true
	out.add(func() { c.events.Disconnected.Publish(struct{}{}) })
}

// send enqueues an outbound event, logging rather than failing on a dead
// channel; protocol sends are best-effort by design.
func (c *Controller) send(event string, payload any) {
	if c.channel == nil {
		return
	}
	if err := c.channel.Send(event, payload); err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to send on event channel")
	}
}

// startCountdownLocked binds a fresh countdown to the pending outgoing
// request, invalidating any prior one.
func (c *Controller) startCountdownLocked(req models.TeleportRequest) {
	c.stopCountdownLocked()
	c.countdownGen++
	gen := c.countdownGen
	c.countdown = negotiation.StartCountdown(c.clock, c.countdownSeconds,
		func(remaining int) { c.countdownTick(gen, remaining) },
		func() { c.countdownExpired(gen, req) },
	)
}

// stopCountdownLocked releases the timer without touching the relayed value.
func (c *Controller) stopCountdownLocked() {
	if c.countdown != nil {
		c.countdown.Stop()
		c.countdown = nil
	}
	c.countdownGen++
}

// clearCountdownLocked stops the timer and sets the relayed value to none,
// as happens on every negotiation-terminal transition.
func (c *Controller) clearCountdownLocked(out *pending) {
	hadTimer := c.countdown != nil
	c.stopCountdownLocked()
	if !hadTimer {
		return
	}
	local := c.roster.Local()
	local.TimerSecondsRemaining = nil
	c.send(EventOutgoingTimerChange, (*int)(nil))
	change := TimerChange{ParticipantID: local.ID}
	out.add(func() { c.events.OutgoingTimerChanged.Publish(change) })
}

// countdownTick runs on the timer goroutine; it re-validates that this
// countdown is still the active one before mutating, because state may have
// changed while the tick was in flight.
func (c *Controller) countdownTick(gen int, remaining int) {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.countdownGen || c.state != StateJoined {
		return
	}
	secs := remaining
	local := c.roster.Local()
	local.TimerSecondsRemaining = &secs
	c.send(EventOutgoingTimerChange, &secs)
	change := TimerChange{ParticipantID: local.ID, State: &secs}
	out.add(func() { c.events.OutgoingTimerChanged.Publish(change) })
}

// countdownExpired fires after the zero tick: the outgoing negotiation times
// out and the peer is told.
func (c *Controller) countdownExpired(gen int, req models.TeleportRequest) {
	var out pending
	defer out.flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.countdownGen || c.state != StateJoined {
		return
	}
	c.countdown = nil
	c.countdownGen++

	if c.outbox.Resolve(req.ToPlayerID, models.OutgoingTimedOut) {
		c.send(EventTeleportTimeout, req)
		out.add(func() { c.events.TeleportTimeout.Publish(req) })
	}
	local := c.roster.Local()
	local.TimerSecondsRemaining = nil
	c.send(EventOutgoingTimerChange, (*int)(nil))
	change := TimerChange{ParticipantID: local.ID}
	out.add(func() { c.events.OutgoingTimerChanged.Publish(change) })
}

// refreshNearbyLocked recomputes the nearby set (throttled) and queues a
// notification when the set changed.
func (c *Controller) refreshNearbyLocked(out *pending) {
	if c.roster == nil {
		return
	}
	ids, changed := c.prox.Update(*c.roster.Local(), c.roster.Others())
	if changed {
		out.add(func() { c.events.NearbyChanged.Publish(ids) })
	}
}
