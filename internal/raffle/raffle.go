// internal/raffle/raffle.go
package raffle

import "time"

// LamportsPerSOL is the fixed multiplier between SOL and lamports.
const LamportsPerSOL = 1_000_000_000

// Raffle is an active raffle known to the monitor.
type Raffle struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TicketPrice uint64 `json:"ticket_price"` // lamports
	EndTime     int64  `json:"end_time"`     // unix seconds
	TicketsSold int    `json:"tickets_sold"`
	MaxTickets  int    `json:"max_tickets"`
}

// Ended reports whether the raffle's end time has passed at now.
func (r Raffle) Ended(now time.Time) bool {
	return now.Unix() > r.EndTime
}

// EndedRaffle is kept for a grace window after a raffle ends so that a late
// winner-draw transaction can still be attributed to it.
type EndedRaffle struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TicketPrice uint64 `json:"ticket_price"`
	TicketsSold int    `json:"tickets_sold"`
	EndTime     int64  `json:"end_time"`
	Deadline    int64  `json:"deadline"`
}

// Expired reports whether the processing deadline has elapsed at now.
func (e EndedRaffle) Expired(now time.Time) bool {
	return now.Unix() > e.Deadline
}

// Pot returns the gross ticket revenue in lamports.
func (r Raffle) Pot() uint64 {
	return r.TicketPrice * uint64(r.TicketsSold)
}

// Pot returns the gross ticket revenue at the time the raffle ended.
func (e EndedRaffle) Pot() uint64 {
	return e.TicketPrice * uint64(e.TicketsSold)
}
