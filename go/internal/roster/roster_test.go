package roster

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/townlink/townlink/go/internal/models"
)

func participant(id string, x, y float64) models.Participant {
	return models.Participant{
		ID:          id,
		DisplayName: "user-" + id,
		Location:    models.Location{X: x, Y: y, Facing: models.DirectionFront},
	}
}

func newRoster(t *testing.T) *Roster {
	t.Helper()
	r, err := New("me", []models.Participant{
		participant("me", 0, 0),
		participant("p2", 10, 10),
	})
	require.NoError(t, err)
	return r
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New("me", []models.Participant{
		participant("me", 0, 0),
		participant("me", 1, 1),
	})
	require.Error(t, err)
}

func TestNewRequiresLocalParticipant(t *testing.T) {
	_, err := New("me", []models.Participant{participant("p2", 0, 0)})
	require.Error(t, err)
}

func TestAddIgnoresExistingID(t *testing.T) {
	r := newRoster(t)
	require.True(t, r.Add(participant("p3", 5, 5)))
	require.False(t, r.Add(participant("p3", 9, 9)))
	require.Equal(t, 3, r.Len())

	p3, ok := r.Get("p3")
	require.True(t, ok)
	require.Equal(t, 5.0, p3.Location.X)
}

func TestRemove(t *testing.T) {
	r := newRoster(t)
	require.True(t, r.Remove("p2"))
	require.False(t, r.Remove("p2"))
	// The local participant is never removed by a server event.
	require.False(t, r.Remove("me"))
	require.Equal(t, 1, r.Len())
}

func TestApplyMoveRemoteIsIdempotent(t *testing.T) {
	r := newRoster(t)
	moved := participant("p2", 42, 7)
	moved.Location.IsMoving = true

	require.Equal(t, MoveApplied, r.ApplyMove(moved))
	require.Equal(t, MoveApplied, r.ApplyMove(moved))

	p2, _ := r.Get("p2")
	require.Equal(t, 42.0, p2.Location.X)
	require.Equal(t, 7.0, p2.Location.Y)
	require.True(t, p2.Location.IsMoving)
}

func TestApplyMoveLocalRetainsXY(t *testing.T) {
	r := newRoster(t)
	moved := participant("me", 99, 99)
	moved.Location.ZoneID = "conv-1"

	require.Equal(t, MoveZonePatched, r.ApplyMove(moved))
	// Re-applying the same event is a no-op on the local participant.
	require.Equal(t, MoveIgnored, r.ApplyMove(moved))

	local := r.Local()
	require.Equal(t, 0.0, local.Location.X)
	require.Equal(t, 0.0, local.Location.Y)
	require.Equal(t, "conv-1", local.Location.ZoneID)
}

func TestApplyMoveInsertsUnknownParticipant(t *testing.T) {
	r := newRoster(t)
	require.Equal(t, MoveInserted, r.ApplyMove(participant("ghost", 3, 4)))

	p, ok := r.Get("ghost")
	require.True(t, ok)
	require.Equal(t, 3.0, p.Location.X)
}

func TestDoNotDisturbPatchesRemoteOnly(t *testing.T) {
	r := newRoster(t)
	require.True(t, r.SetDoNotDisturb("p2", true))
	require.False(t, r.SetDoNotDisturb("me", true))
	require.False(t, r.SetDoNotDisturb("nobody", true))

	p2, _ := r.Get("p2")
	require.True(t, p2.DoNotDisturb)
	require.False(t, r.Local().DoNotDisturb)
}

func TestOutgoingTimerPatchesRemoteOnly(t *testing.T) {
	r := newRoster(t)
	secs := 12
	require.True(t, r.SetOutgoingTimer("p2", &secs))
	require.False(t, r.SetOutgoingTimer("me", &secs))

	p2, _ := r.Get("p2")
	require.NotNil(t, p2.TimerSecondsRemaining)
	require.Equal(t, 12, *p2.TimerSecondsRemaining)

	require.True(t, r.SetOutgoingTimer("p2", nil))
	require.Nil(t, p2.TimerSecondsRemaining)
}

func TestOrderingStableAcrossMutations(t *testing.T) {
	r := newRoster(t)
	r.Add(participant("p3", 0, 0))
	r.Add(participant("p4", 0, 0))
	r.Remove("p2")

	var ids []string
	for _, p := range r.All() {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"me", "p3", "p4"}, ids)

	var others []string
	for _, p := range r.Others() {
		others = append(others, p.ID)
	}
	require.Equal(t, []string{"p3", "p4"}, others)
}
