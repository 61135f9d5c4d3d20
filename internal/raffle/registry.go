// internal/raffle/registry.go
package raffle

import (
	"sort"
	"sync"
	"time"
)

// Registry tracks raffle lifecycle: Active -> Ended -> dropped.
// An id lives in at most one of the two maps at any instant.
//
// The monitor cycle is the only writer; the mutex exists for status readers.
type Registry struct {
	mu     sync.RWMutex
	active map[string]*Raffle
	ended  map[string]*EndedRaffle
	grace  time.Duration
}

// NewRegistry creates a registry whose ended entries survive for grace.
func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		active: make(map[string]*Raffle),
		ended:  make(map[string]*EndedRaffle),
		grace:  grace,
	}
}

// Track adds r to the active registry. An id that is already active or
// recently ended is left untouched and Track returns false.
func (reg *Registry) Track(r Raffle) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.active[r.ID]; ok {
		return false
	}
	if _, ok := reg.ended[r.ID]; ok {
		return false
	}
	cp := r
	reg.active[r.ID] = &cp
	return true
}

// RecordPurchase increments tickets sold for an active raffle.
func (reg *Registry) RecordPurchase(id string, tickets int) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.active[id]
	if !ok || tickets <= 0 {
		return false
	}
	r.TicketsSold += tickets
	if r.MaxTickets > 0 && r.TicketsSold > r.MaxTickets {
		r.TicketsSold = r.MaxTickets
	}
	return true
}

// Expire moves every active raffle whose end time has passed into the ended
// tracker and returns the transitioned entries.
func (reg *Registry) Expire(now time.Time) []EndedRaffle {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var moved []EndedRaffle
	for id, r := range reg.active {
		if !r.Ended(now) {
			continue
		}
		e := &EndedRaffle{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			TicketPrice: r.TicketPrice,
			TicketsSold: r.TicketsSold,
			EndTime:     r.EndTime,
			Deadline:    r.EndTime + int64(reg.grace/time.Second),
		}
		delete(reg.active, id)
		reg.ended[id] = e
		moved = append(moved, *e)
	}
	sortEndedDesc(moved)
	return moved
}

// Collect drops ended entries whose deadline has elapsed, announced or not.
func (reg *Registry) Collect(now time.Time) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var dropped []string
	for id, e := range reg.ended {
		if e.Expired(now) {
			delete(reg.ended, id)
			dropped = append(dropped, id)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// Active returns a copy of the active raffle with the given id.
func (reg *Registry) Active(id string) (Raffle, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.active[id]
	if !ok {
		return Raffle{}, false
	}
	return *r, true
}

// Ended returns a copy of the ended entry with the given id.
func (reg *Registry) Ended(id string) (EndedRaffle, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	e, ok := reg.ended[id]
	if !ok {
		return EndedRaffle{}, false
	}
	return *e, true
}

// MostRecentlyEnded returns the ended entry with the latest end time.
func (reg *Registry) MostRecentlyEnded() (EndedRaffle, bool) {
	list := reg.EndedRaffles()
	if len(list) == 0 {
		return EndedRaffle{}, false
	}
	return list[0], true
}

// SoonestEnding returns the active raffle with the earliest end time.
func (reg *Registry) SoonestEnding() (Raffle, bool) {
	list := reg.ActiveRaffles()
	if len(list) == 0 {
		return Raffle{}, false
	}
	return list[0], true
}

// FindByName returns the id of the only tracked raffle named name. Ended
// entries are searched first; an ambiguous name yields no match.
func (reg *Registry) FindByName(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var found []string
	for id, e := range reg.ended {
		if e.Name == name {
			found = append(found, id)
		}
	}
	if len(found) == 0 {
		for id, r := range reg.active {
			if r.Name == name {
				found = append(found, id)
			}
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

// SoleActive returns the only active raffle, if exactly one exists.
func (reg *Registry) SoleActive() (Raffle, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	if len(reg.active) != 1 {
		return Raffle{}, false
	}
	for _, r := range reg.active {
		return *r, true
	}
	return Raffle{}, false
}

// ActiveRaffles returns active raffles ordered by end time, soonest first.
func (reg *Registry) ActiveRaffles() []Raffle {
	reg.mu.RLock()
	out := make([]Raffle, 0, len(reg.active))
	for _, r := range reg.active {
		out = append(out, *r)
	}
	reg.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndTime != out[j].EndTime {
			return out[i].EndTime < out[j].EndTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// EndedRaffles returns ended entries ordered by end time, most recent first.
func (reg *Registry) EndedRaffles() []EndedRaffle {
	reg.mu.RLock()
	out := make([]EndedRaffle, 0, len(reg.ended))
	for _, e := range reg.ended {
		out = append(out, *e)
	}
	reg.mu.RUnlock()

	sortEndedDesc(out)
	return out
}

// Counts returns the sizes of the active and ended registries.
func (reg *Registry) Counts() (active, ended int) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.active), len(reg.ended)
}

func sortEndedDesc(list []EndedRaffle) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].EndTime != list[j].EndTime {
			return list[i].EndTime > list[j].EndTime
		}
		return list[i].ID < list[j].ID
	})
}
