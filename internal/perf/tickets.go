package perf

import (
	"sync"
	"time"
)

// Ticket is a pending latency measurement for one API call.
type Ticket struct {
	ID        string
	API       string
	StartedAt time.Time
}

// Observation is a completed measurement handed to the Aggregator.
type Observation struct {
	API      string
	Duration time.Duration
}

// TicketStore correlates fn_start and fn_end through ticket ids.
type TicketStore struct {
	mu      sync.Mutex
	tickets map[string]Ticket
}

// NewTicketStore creates an empty TicketStore.
func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]Ticket)}
}

// Begin records a ticket. An existing ticket with the same id is replaced.
func (s *TicketStore) Begin(id, api string, startedAt time.Time) {
	s.mu.Lock()
	s.tickets[id] = Ticket{ID: id, API: api, StartedAt: startedAt}
	s.mu.Unlock()
}

// End consumes the ticket for id and returns the elapsed time.
// It returns false when no ticket is pending for id.
func (s *TicketStore) End(id string, endedAt time.Time) (Observation, bool) {
	s.mu.Lock()
	ticket, ok := s.tickets[id]
	if ok {
		delete(s.tickets, id)
	}
	s.mu.Unlock()

	if !ok {
		return Observation{}, false
	}

	d := endedAt.Sub(ticket.StartedAt)
	if d < 0 {
		d = 0
	}
	return Observation{API: ticket.API, Duration: d}, true
}

// Clear drops every pending ticket and returns how many were dropped.
func (s *TicketStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.tickets)
	s.tickets = make(map[string]Ticket)
	return n
}

// Len returns the number of pending tickets.
func (s *TicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}
