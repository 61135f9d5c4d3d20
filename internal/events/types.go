// internal/events/types.go
package events

import (
	"fmt"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// AllEvents subscribes a handler to every event type.
	AllEvents EventType = "*"

	// Lifecycle events
	RaffleCreated    EventType = "raffle.created"
	RaffleEnded      EventType = "raffle.ended"
	RaffleCollected  EventType = "raffle.collected"
	PurchaseObserved EventType = "raffle.purchase"

	// Announcement events
	WinnerAnnounced    EventType = "winner.announced"
	AnnouncementFailed EventType = "announcement.failed"

	// Cycle events
	CycleCompleted EventType = "cycle.completed"
	CycleFailed    EventType = "cycle.failed"

	// Monitoring events
	MonitoringStarted EventType = "monitoring.started"
	MonitoringStopped EventType = "monitoring.stopped"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	// Summary is a one-line human readable description.
	Summary() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType, at time.Time) BaseEvent {
	return BaseEvent{EventType: t, EventTime: at}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// RaffleCreatedEvent is emitted when a new raffle starts being tracked.
type RaffleCreatedEvent struct {
	BaseEvent
	RaffleID    string
	Name        string
	TicketPrice uint64
	EndTime     int64
	Signature   string
	Announced   bool
}

func (e RaffleCreatedEvent) Summary() string {
	return fmt.Sprintf("raffle %s (%s) created", e.RaffleID, e.Name)
}

// RaffleEndedEvent is emitted when an active raffle passes its end time.
type RaffleEndedEvent struct {
	BaseEvent
	RaffleID    string
	Name        string
	TicketsSold int
	Deadline    int64
}

func (e RaffleEndedEvent) Summary() string {
	return fmt.Sprintf("raffle %s ended with %d tickets sold", e.RaffleID, e.TicketsSold)
}

// RaffleCollectedEvent is emitted when an ended raffle leaves the grace window.
type RaffleCollectedEvent struct {
	BaseEvent
	RaffleID string
}

func (e RaffleCollectedEvent) Summary() string {
	return fmt.Sprintf("raffle %s dropped after grace period", e.RaffleID)
}

// PurchaseObservedEvent is emitted for a ticket purchase on a tracked raffle.
type PurchaseObservedEvent struct {
	BaseEvent
	RaffleID  string
	Tickets   int
	Signature string
}

func (e PurchaseObservedEvent) Summary() string {
	return fmt.Sprintf("%d ticket(s) bought for raffle %s", e.Tickets, e.RaffleID)
}

// WinnerAnnouncedEvent is emitted after a winner announcement is dispatched.
type WinnerAnnouncedEvent struct {
	BaseEvent
	RaffleID     string
	RaffleName   string
	Winner       string
	Prize        uint64
	Signature    string
	Unattributed bool
}

func (e WinnerAnnouncedEvent) Summary() string {
	return fmt.Sprintf("winner %s for raffle %s", e.Winner, e.RaffleID)
}

// AnnouncementFailedEvent is emitted when a notifier rejects an announcement.
type AnnouncementFailedEvent struct {
	BaseEvent
	Kind string
	Key  string
	Err  error
}

func (e AnnouncementFailedEvent) Summary() string {
	return fmt.Sprintf("%s announcement %s failed: %v", e.Kind, e.Key, e.Err)
}

// CycleCompletedEvent is emitted at the end of every successful poll cycle.
type CycleCompletedEvent struct {
	BaseEvent
	CycleID     string
	WindowStart time.Time
	WindowEnd   time.Time
	Listed      int
	New         int
	Processed   int
	Duration    time.Duration
}

func (e CycleCompletedEvent) Summary() string {
	return fmt.Sprintf("cycle %s: %d listed, %d new, %d processed in %s",
		shortID(e.CycleID), e.Listed, e.New, e.Processed, e.Duration.Round(time.Millisecond))
}

// CycleFailedEvent is emitted when a cycle aborts.
type CycleFailedEvent struct {
	BaseEvent
	CycleID string
	Err     error
}

func (e CycleFailedEvent) Summary() string {
	return fmt.Sprintf("cycle %s failed: %v", shortID(e.CycleID), e.Err)
}

// MonitoringStartedEvent is emitted once when polling begins.
type MonitoringStartedEvent struct {
	BaseEvent
	ProgramID string
	Network   string
	Interval  time.Duration
}

func (e MonitoringStartedEvent) Summary() string {
	return fmt.Sprintf("monitoring %s on %s every %s", e.ProgramID, e.Network, e.Interval)
}

// MonitoringStoppedEvent is emitted when polling stops.
type MonitoringStoppedEvent struct {
	BaseEvent
	Reason string
}

func (e MonitoringStoppedEvent) Summary() string {
	return "monitoring stopped: " + e.Reason
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
