// internal/events/feed.go
package events

import (
	"context"
	"sync"
	"time"
)

// Record is the serialisable form of an event kept by Feed.
type Record struct {
	Type    EventType `json:"type"`
	Time    time.Time `json:"time"`
	Summary string    `json:"summary"`
	Event   Event     `json:"-"`
}

// NewRecord captures event for display.
func NewRecord(event Event) Record {
	return Record{
		Type:    event.Type(),
		Time:    event.Timestamp(),
		Summary: event.Summary(),
		Event:   event,
	}
}

// Feed keeps the most recent events for the status endpoint and dashboard.
type Feed struct {
	mu      sync.RWMutex
	records []Record
	next    int
	full    bool
}

// NewFeed creates a feed holding up to size records.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 1
	}
	return &Feed{records: make([]Record, size)}
}

// Attach subscribes the feed to every event on bus.
func (f *Feed) Attach(bus *Bus) Subscription {
	return bus.SubscribeFunc(AllEvents, f.Handle)
}

// Handle implements Handler.
func (f *Feed) Handle(_ context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.records[f.next] = NewRecord(event)
	f.next = (f.next + 1) % len(f.records)
	if f.next == 0 {
		f.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (f *Feed) Recent(limit int) []Record {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := f.next
	if f.full {
		count = len(f.records)
	}
	if limit > 0 && limit < count {
		count = limit
	}

	out := make([]Record, 0, count)
	for i := 1; i <= count; i++ {
		idx := (f.next - i + len(f.records)) % len(f.records)
		out = append(out, f.records[idx])
	}
	return out
}
