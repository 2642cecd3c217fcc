package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/townlink/townlink/go/internal/models"
	"github.com/townlink/townlink/go/internal/transport"
)

// fakeChannel is an in-memory transport.Channel driven by tests.
type fakeChannel struct {
	mu        sync.Mutex
	sent      []transport.Envelope
	inbound   chan transport.Envelope
	closeOnce sync.Once
	closed    bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{inbound: make(chan transport.Envelope, 64)}
}

func (f *fakeChannel) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return transport.ErrChannelClosed
	}
	env, err := transport.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeChannel) Inbound() <-chan transport.Envelope {
	return f.inbound
}

func (f *fakeChannel) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.inbound)
	})
	return nil
}

// sentEvents returns the names of everything sent so far.
func (f *fakeChannel) sentEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, env := range f.sent {
		out[i] = env.Event
	}
	return out
}

// countSent returns how many envelopes carry the given event name.
func (f *fakeChannel) countSent(event string) int {
	n := 0
	for _, name := range f.sentEvents() {
		if name == event {
			n++
		}
	}
	return n
}

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		PlayerID:         "me",
		FriendlyName:     "test town",
		IsPubliclyListed: true,
		Participants: []models.Participant{
			{ID: "me", DisplayName: "Me", Location: models.Location{X: 0, Y: 0, Facing: models.DirectionFront}},
			{ID: "p2", DisplayName: "Pat", Location: models.Location{X: 10, Y: 10, Facing: models.DirectionBack}},
			{ID: "p3", DisplayName: "Quinn", Location: models.Location{X: 500, Y: 500, Facing: models.DirectionLeft}},
		},
		Interactables: []models.Interactable{
			{ID: "conv-1", Type: models.InteractableConversationArea},
			{ID: "view-1", Type: models.InteractableViewingArea, MediaRef: "intro.mp4"},
		},
	}
}

// connected builds a joined controller over a fake channel with a fake clock.
func connected(t *testing.T) (*Controller, *fakeChannel, *clockwork.FakeClock) {
	t.Helper()
	ch := newFakeChannel()
	clock := clockwork.NewFakeClock()

	env, err := transport.NewEnvelope(EventInitialize, testSnapshot())
	require.NoError(t, err)
	ch.inbound <- env

	c := New(Config{
		Clock:            clock,
		CountdownSeconds: 3,
		Dialer: func(context.Context) (transport.Channel, error) {
			return ch, nil
		},
	})
	snap, err := c.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, "me", snap.PlayerID)
	require.Equal(t, StateJoined, c.State())
	return c, ch, clock
}

func mustEnvelope(t *testing.T, event string, payload any) transport.Envelope {
	t.Helper()
	env, err := transport.NewEnvelope(event, payload)
	require.NoError(t, err)
	return env
}

func TestConnectResolvesOnSnapshot(t *testing.T) {
	c, _, _ := connected(t)
	defer c.Disconnect()

	require.Len(t, c.Participants(), 3)
	require.Len(t, c.Interactables(), 2)
	require.Equal(t, "test town", c.Settings().FriendlyName)

	local, ok := c.LocalParticipant()
	require.True(t, ok)
	require.Equal(t, "me", local.ID)
}

func TestConnectFailsWhenChannelClosesBeforeSnapshot(t *testing.T) {
	ch := newFakeChannel()
	ch.Close()

	c := New(Config{Dialer: func(context.Context) (transport.Channel, error) {
		return ch, nil
	}})
	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrJoinRejected)
	require.Equal(t, StateDisconnected, c.State())
}

func TestConnectFailsOnPartialSnapshot(t *testing.T) {
	ch := newFakeChannel()
	// Local participant missing from the roster: the snapshot cannot be
	// applied in full, so the attempt fails.
	snap := testSnapshot()
	snap.Participants = snap.Participants[1:]
	ch.inbound <- mustEnvelope(t, EventInitialize, snap)

	c := New(Config{Dialer: func(context.Context) (transport.Channel, error) {
		return ch, nil
	}})
	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrBadSnapshot)
	require.Equal(t, StateDisconnected, c.State())
}

func TestConnectIgnoresPreSnapshotNoise(t *testing.T) {
	ch := newFakeChannel()
	ch.inbound <- mustEnvelope(t, EventChatMessage, models.ChatMessage{Body: "early"})
	ch.inbound <- mustEnvelope(t, EventInitialize, testSnapshot())

	c := New(Config{Dialer: func(context.Context) (transport.Channel, error) {
		return ch, nil
	}})
	_, err := c.Connect(context.Background())
	require.NoError(t, err)
	defer c.Disconnect()
	require.Equal(t, StateJoined, c.State())
}

func TestConnectTwiceFails(t *testing.T) {
	c, _, _ := connected(t)
	defer c.Disconnect()
	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestTownClosingNotifiesExactlyOnce(t *testing.T) {
	c, ch, _ := connected(t)

	disconnects := 0
	c.Events().Disconnected.Subscribe(func(struct{}) { disconnects++ })

	c.dispatch(mustEnvelope(t, EventTownClosing, nil))
	require.Equal(t, StateDisconnected, c.State())
	require.Equal(t, 1, disconnects)

	// The run loop observing the closed channel must not notify again.
	require.Eventually(t, func() bool {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return ch.closed
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, disconnects)
}

func TestDisconnectSynthesizesDenyAndCancel(t *testing.T) {
	c, ch, _ := connected(t)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c.dispatch(mustEnvelope(t, EventTeleportRequest,
		models.TeleportRequest{FromPlayerID: "p2", ToPlayerID: "me", Time: now}))
	c.dispatch(mustEnvelope(t, EventTeleportRequest,
		models.TeleportRequest{FromPlayerID: "p3", ToPlayerID: "me", Time: now}))
	require.NoError(t, c.RequestTeleport("p2"))

	require.NoError(t, c.Disconnect())

	require.Equal(t, 2, ch.countSent(EventTeleportDenied))
	require.Equal(t, 1, ch.countSent(EventTeleportCanceled))
	require.Equal(t, StateDisconnected, c.State())
	require.Empty(t, c.IncomingRequests())

	require.ErrorIs(t, c.Disconnect(), ErrNotConnected)
	require.ErrorIs(t, c.MoveTo(models.Location{}), ErrNotConnected)
}

func TestPauseUnpauseNotify(t *testing.T) {
	c, _, _ := connected(t)
	defer c.Disconnect()

	paused, unpaused := 0, 0
	c.Events().Paused.Subscribe(func(struct{}) { paused++ })
	c.Events().Unpaused.Subscribe(func(struct{}) { unpaused++ })

	c.Pause()
	c.Unpause()
	require.Equal(t, 1, paused)
	require.Equal(t, 1, unpaused)
}

func TestUnexpectedTransportCloseTearsDown(t *testing.T) {
	c, ch, _ := connected(t)

	// Notified from the run loop goroutine, so synchronize via channel.
	disconnects := make(chan struct{}, 4)
	c.Events().Disconnected.Subscribe(func(struct{}) { disconnects <- struct{}{} })

	ch.Close()
	select {
	case <-disconnects:
	case <-time.After(time.Second):
		t.Fatal("no disconnect notification after transport close")
	}
	require.Equal(t, StateDisconnected, c.State())

	select {
	case <-disconnects:
		t.Fatal("duplicate disconnect notification")
	case <-time.After(50 * time.Millisecond):
	}
}
