package proximity

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/townlink/townlink/go/internal/models"
)

func at(id string, x, y float64, zone string) models.Participant {
	return models.Participant{
		ID:       id,
		Location: models.Location{X: x, Y: y, ZoneID: zone},
	}
}

func TestNearbyByDistance(t *testing.T) {
	local := at("me", 0, 0, "")
	others := []models.Participant{
		at("close", 30, 40, ""),   // distance 50
		at("edge", 80, 0, ""),     // exactly the threshold: not nearby
		at("far", 200, 200, ""),   // way out
		at("inside", 79.9, 0, ""), // just under
	}

	ids := Nearby(local, others, DefaultThreshold)
	require.Equal(t, []string{"close", "inside"}, ids)
}

func TestNearbyBySharedZone(t *testing.T) {
	local := at("me", 0, 0, "conv-1")
	others := []models.Participant{
		at("same-zone", 500, 500, "conv-1"),
		at("other-zone", 500, 500, "conv-2"),
	}

	ids := Nearby(local, others, DefaultThreshold)
	require.Equal(t, []string{"same-zone"}, ids)
}

func TestEmptyZoneIDNeverMatches(t *testing.T) {
	local := at("me", 0, 0, "")
	others := []models.Participant{at("p2", 500, 500, "")}
	require.Empty(t, Nearby(local, others, DefaultThreshold))
}

func TestCalculatorThrottles(t *testing.T) {
	clock := clockwork.NewFakeClock()
	calc := NewCalculator(clock, 0, 0)

	local := at("me", 0, 0, "")
	_, changed := calc.Update(local, []models.Participant{at("p2", 10, 0, "")})
	require.True(t, changed)

	// Within the interval the computation is skipped entirely.
	clock.Advance(100 * time.Millisecond)
	ids, changed := calc.Update(local, nil)
	require.False(t, changed)
	require.Equal(t, []string{"p2"}, ids)

	clock.Advance(DefaultInterval)
	ids, changed = calc.Update(local, nil)
	require.True(t, changed)
	require.Empty(t, ids)
}

func TestCalculatorReportsSetChangesOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	calc := NewCalculator(clock, 0, 0)
	local := at("me", 0, 0, "")

	_, changed := calc.Update(local, []models.Participant{
		at("a", 1, 0, ""), at("b", 2, 0, ""),
	})
	require.True(t, changed)

	// Same members in a different order: not a change.
	clock.Advance(time.Second)
	_, changed = calc.Update(local, []models.Participant{
		at("b", 2, 0, ""), at("a", 1, 0, ""),
	})
	require.False(t, changed)

	clock.Advance(time.Second)
	_, changed = calc.Update(local, []models.Participant{
		at("a", 1, 0, ""), at("c", 3, 0, ""),
	})
	require.True(t, changed)
}
