package raffle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Unix(1_700_000_000, 0)

func newRaffle(id string, end time.Time) Raffle {
	return Raffle{
		ID:          id,
		Name:        "Raffle " + id,
		TicketPrice: 50_000_000,
		EndTime:     end.Unix(),
		MaxTickets:  100,
	}
}

func TestRegistryTrackDoesNotReset(t *testing.T) {
	reg := NewRegistry(10 * time.Minute)

	require.True(t, reg.Track(newRaffle("7F-SOL-001", baseTime.Add(time.Hour))))
	require.True(t, reg.RecordPurchase("7F-SOL-001", 3))

	assert.False(t, reg.Track(newRaffle("7F-SOL-001", baseTime.Add(2*time.Hour))))

	r, ok := reg.Active("7F-SOL-001")
	require.True(t, ok)
	assert.Equal(t, 3, r.TicketsSold)
	assert.Equal(t, baseTime.Add(time.Hour).Unix(), r.EndTime)
}

func TestRegistryExpireAndCollect(t *testing.T) {
	reg := NewRegistry(10 * time.Minute)
	reg.Track(newRaffle("7F-SOL-042", baseTime.Add(-2*time.Minute)))
	reg.Track(newRaffle("7F-SOL-043", baseTime.Add(time.Hour)))

	moved := reg.Expire(baseTime)

	require.Len(t, moved, 1)
	assert.Equal(t, "7F-SOL-042", moved[0].ID)
	assert.Equal(t, baseTime.Add(8*time.Minute).Unix(), moved[0].Deadline)

	_, active := reg.Active("7F-SOL-042")
	assert.False(t, active)
	_, ended := reg.Ended("7F-SOL-042")
	assert.True(t, ended)

	// deadline reached but not passed
	assert.Empty(t, reg.Collect(baseTime.Add(8*time.Minute)))
	assert.Equal(t, []string{"7F-SOL-042"}, reg.Collect(baseTime.Add(8*time.Minute+time.Second)))

	_, ended = reg.Ended("7F-SOL-042")
	assert.False(t, ended)

	a, e := reg.Counts()
	assert.Equal(t, 1, a)
	assert.Equal(t, 0, e)
}

func TestRegistryEndTimeBoundary(t *testing.T) {
	reg := NewRegistry(time.Minute)
	reg.Track(newRaffle("edge", baseTime))

	assert.Empty(t, reg.Expire(baseTime))
	assert.Len(t, reg.Expire(baseTime.Add(time.Second)), 1)
}

func TestRegistryEndedIDIsNotResurrected(t *testing.T) {
	reg := NewRegistry(10 * time.Minute)
	reg.Track(newRaffle("7F-SOL-009", baseTime.Add(-time.Minute)))
	reg.Expire(baseTime)

	assert.False(t, reg.Track(newRaffle("7F-SOL-009", baseTime.Add(time.Hour))))
	_, active := reg.Active("7F-SOL-009")
	assert.False(t, active)
}

func TestRegistryDisambiguationOrder(t *testing.T) {
	reg := NewRegistry(10 * time.Minute)
	reg.Track(newRaffle("older", baseTime.Add(-5*time.Minute)))
	reg.Track(newRaffle("newer", baseTime.Add(-1*time.Minute)))
	reg.Track(newRaffle("late", baseTime.Add(3*time.Hour)))
	reg.Track(newRaffle("soon", baseTime.Add(time.Hour)))
	reg.Expire(baseTime)

	recent, ok := reg.MostRecentlyEnded()
	require.True(t, ok)
	assert.Equal(t, "newer", recent.ID)

	soon, ok := reg.SoonestEnding()
	require.True(t, ok)
	assert.Equal(t, "soon", soon.ID)

	_, ok = reg.SoleActive()
	assert.False(t, ok)
}

func TestRegistryPurchaseIgnoresUnknownAndCaps(t *testing.T) {
	reg := NewRegistry(time.Minute)
	r := newRaffle("capped", baseTime.Add(time.Hour))
	r.MaxTickets = 2
	reg.Track(r)

	assert.False(t, reg.RecordPurchase("missing", 1))
	assert.True(t, reg.RecordPurchase("capped", 1))
	assert.True(t, reg.RecordPurchase("capped", 5))

	got, _ := reg.Active("capped")
	assert.Equal(t, 2, got.TicketsSold)

	sole, ok := reg.SoleActive()
	require.True(t, ok)
	assert.Equal(t, "capped", sole.ID)
}

func TestRegistryFindByName(t *testing.T) {
	reg := NewRegistry(10 * time.Minute)
	a := newRaffle("7F-SOL-001", baseTime.Add(-time.Minute))
	a.Name = "Summer Splash"
	b := newRaffle("7F-SOL-002", baseTime.Add(time.Hour))
	b.Name = "Summer Splash"
	c := newRaffle("7F-SOL-003", baseTime.Add(time.Hour))
	c.Name = "Twin"
	d := newRaffle("7F-SOL-004", baseTime.Add(2*time.Hour))
	d.Name = "Twin"
	for _, r := range []Raffle{a, b, c, d} {
		reg.Track(r)
	}
	reg.Expire(baseTime)

	// ended entries win over active ones
	id, ok := reg.FindByName("Summer Splash")
	require.True(t, ok)
	assert.Equal(t, "7F-SOL-001", id)

	_, ok = reg.FindByName("Twin")
	assert.False(t, ok, "ambiguous names must not resolve")

	_, ok = reg.FindByName("")
	assert.False(t, ok)
}

func TestPotSurvivesExpiry(t *testing.T) {
	reg := NewRegistry(10 * time.Minute)
	reg.Track(newRaffle("7F-SOL-050", baseTime.Add(-time.Minute)))
	require.True(t, reg.RecordPurchase("7F-SOL-050", 4))

	r, ok := reg.Active("7F-SOL-050")
	require.True(t, ok)
	assert.Equal(t, uint64(200_000_000), r.Pot())

	reg.Expire(baseTime)
	e, ok := reg.Ended("7F-SOL-050")
	require.True(t, ok)
	assert.Equal(t, r.Pot(), e.Pot())
}
