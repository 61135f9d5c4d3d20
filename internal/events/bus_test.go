package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func created(id string) RaffleCreatedEvent {
	return RaffleCreatedEvent{BaseEvent: NewBase(RaffleCreated, time.Now()), RaffleID: id, Name: "Summer"}
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	var mu sync.Mutex
	var got []string
	bus.SubscribeFunc(RaffleCreated, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(RaffleCreatedEvent).RaffleID)
		return nil
	})

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(created(id)))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBusWildcardAndUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	var all, specific int
	bus.SubscribeFunc(AllEvents, func(context.Context, Event) error { all++; return nil })
	sub := bus.SubscribeFunc(CycleFailed, func(context.Context, Event) error { specific++; return nil })

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, created("x")))
	require.NoError(t, bus.PublishSync(ctx, CycleFailedEvent{BaseEvent: NewBase(CycleFailed, time.Now())}))
	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(ctx, CycleFailedEvent{BaseEvent: NewBase(CycleFailed, time.Now())}))

	assert.Equal(t, 3, all)
	assert.Equal(t, 1, specific)
}

func TestBusHandlerErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(RaffleCreated, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), created("x"))
	assert.ErrorIs(t, err, boom)
}

func TestBusFullAndClosed(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.SubscribeFunc(RaffleCreated, func(context.Context, Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	})

	require.NoError(t, bus.Publish(created("first")))
	<-started
	require.NoError(t, bus.Publish(created("queued")))
	assert.ErrorIs(t, bus.Publish(created("dropped")), ErrBusFull)

	close(block)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(created("late")), ErrBusClosed)

	stats := bus.Stats()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestFeedKeepsNewestFirst(t *testing.T) {
	feed := NewFeed(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, feed.Handle(context.Background(), created(id)))
	}

	recent := feed.Recent(0)
	require.Len(t, recent, 3)
	assert.Contains(t, recent[0].Summary, "raffle d")
	assert.Contains(t, recent[2].Summary, "raffle b")

	assert.Len(t, feed.Recent(2), 2)
	assert.Empty(t, NewFeed(5).Recent(10))
}

func TestFeedAttach(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	feed := NewFeed(10)
	feed.Attach(bus)

	require.NoError(t, bus.Publish(CycleCompletedEvent{
		BaseEvent: NewBase(CycleCompleted, time.Now()),
		CycleID:   "0123456789abcdef",
		Listed:    5, New: 2, Processed: 2,
	}))
	require.NoError(t, bus.Shutdown(context.Background()))

	recent := feed.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, CycleCompleted, recent[0].Type)
	assert.Contains(t, recent[0].Summary, "cycle 01234567: 5 listed, 2 new")
}
