package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TicketStore owns the ticket collection. It is the only writer of the
// persisted collection record and keeps memory authoritative when a durable
// write fails.
type TicketStore struct {
	storage     Storage
	idGenerator func() int64
	now         func() time.Time
	logger      *slog.Logger

	mu      sync.Mutex
	tickets []Ticket
	loaded  bool
	pending bool
}

// NewTicketStore constructs a TicketStore with the provided dependencies.
func NewTicketStore(storage Storage, idGenerator func() int64, now func() time.Time) *TicketStore {
	return NewTicketStoreWithLogger(storage, idGenerator, now, nil)
}

// NewTicketStoreWithLogger constructs a TicketStore with a specified logger.
func NewTicketStoreWithLogger(storage Storage, idGenerator func() int64, now func() time.Time, logger *slog.Logger) *TicketStore {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewTimeIDs(now)
	}
	return &TicketStore{
		storage:     storage,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TicketStore) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TicketStore", operation, attrs...)
}

// Load reads the persisted collection and replaces the in-memory copy. Missing
// data yields an empty collection; corrupt or unreadable data yields an empty
// collection and a *LoadError. When earlier writes are still pending, Load
// retries them instead of reading, so unsaved tickets are not thrown away.
func (s *TicketStore) Load(ctx context.Context) (tickets []Ticket, err error) {
	if s == nil {
		err = fmt.Errorf("TicketStore is nil")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.loggerWith(ctx, "Load")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load tickets", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(tickets)).DebugContext(ctx, "tickets loaded")
	}()

	if s.pending {
		err = s.persistLocked(ctx, "flush")
		tickets = cloneTickets(s.tickets)
		return
	}

	err = s.readLocked(ctx)
	tickets = cloneTickets(s.tickets)
	return
}

func (s *TicketStore) readLocked(ctx context.Context) error {
	s.loaded = true
	if s.storage == nil {
		return nil
	}

	s.tickets = nil
	raw, err := s.storage.Get(ctx, TicketsKey)
	if err != nil {
		if isAbsent(err) {
			return nil
		}
		return &LoadError{Key: TicketsKey, Err: err}
	}

	tickets, err := decodeTickets(raw)
	if err != nil {
		return &LoadError{Key: TicketsKey, Err: err}
	}
	s.tickets = tickets
	return nil
}

func (s *TicketStore) ensureLoadedLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	if err := s.readLocked(ctx); err != nil {
		s.loggerWith(ctx, "Load").ErrorContext(ctx, "failed to load tickets", "error", err, "error_kind", ErrorKind(err))
	}
}

// Create validates the input and appends a new ticket. A *PersistenceError is
// returned together with the ticket when only the durable write failed.
func (s *TicketStore) Create(ctx context.Context, input TicketInput) (ticket Ticket, err error) {
	if s == nil {
		err = fmt.Errorf("TicketStore is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create")
	defer func() {
		if err != nil {
			logger.With("ticket_id", ticket.ID).ErrorContext(ctx, "failed to create ticket", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("ticket_id", ticket.ID).InfoContext(ctx, "ticket created")
	}()

	input = normalizeTicketInput(input)
	if vErr := validateTicketInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	now := stamp(s.now())
	ticket = Ticket{
		ID:          s.nextIDLocked(),
		Title:       input.Title,
		Description: input.Description,
		Status:      Status(input.Status),
		Priority:    Priority(input.Priority),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tickets = append(s.tickets, ticket)

	err = s.persistLocked(ctx, "save")
	return
}

// Update replaces every mutable field of the ticket with the given id while
// preserving its id and creation time.
func (s *TicketStore) Update(ctx context.Context, id int64, input TicketInput) (ticket Ticket, err error) {
	if s == nil {
		err = fmt.Errorf("TicketStore is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update", "ticket_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update ticket", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "ticket updated")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	index := s.indexLocked(id)
	if index < 0 {
		err = ErrNotFound
		return
	}

	input = normalizeTicketInput(input)
	if vErr := validateTicketInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	existing := s.tickets[index]
	updatedAt := stamp(s.now())
	if updatedAt.Before(existing.UpdatedAt) {
		updatedAt = existing.UpdatedAt
	}
	ticket = Ticket{
		ID:          existing.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      Status(input.Status),
		Priority:    Priority(input.Priority),
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   updatedAt,
	}
	s.tickets[index] = ticket

	err = s.persistLocked(ctx, "save")
	return
}

// Delete removes the ticket with the given id. Unknown ids yield ErrNotFound
// and leave the collection untouched.
func (s *TicketStore) Delete(ctx context.Context, id int64) (err error) {
	if s == nil {
		return fmt.Errorf("TicketStore is nil")
	}

	logger := s.loggerWith(ctx, "Delete", "ticket_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete ticket", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "ticket deleted")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(ctx)

	index := s.indexLocked(id)
	if index < 0 {
		err = ErrNotFound
		return
	}

	remaining := make([]Ticket, 0, len(s.tickets)-1)
	remaining = append(remaining, s.tickets[:index]...)
	remaining = append(remaining, s.tickets[index+1:]...)
	s.tickets = remaining

	err = s.persistLocked(ctx, "save")
	return
}

// Get returns the ticket with the given id from memory.
func (s *TicketStore) Get(id int64) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexLocked(id)
	if index < 0 {
		return Ticket{}, ErrNotFound
	}
	return s.tickets[index], nil
}

// List returns a copy of the in-memory collection in insertion order.
func (s *TicketStore) List() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTickets(s.tickets)
}

// Stats aggregates the in-memory collection by status.
func (s *TicketStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Total: len(s.tickets)}
	for _, ticket := range s.tickets {
		switch ticket.Status {
		case StatusOpen:
			stats.Open++
		case StatusInProgress:
			stats.InProgress++
		case StatusClosed:
			stats.Closed++
		}
	}
	return stats
}

// Pending reports whether the durable copy lags behind memory.
func (s *TicketStore) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Flush retries a durable write left pending by an earlier failure.
func (s *TicketStore) Flush(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("TicketStore is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return nil
	}
	if err := s.persistLocked(ctx, "flush"); err != nil {
		s.loggerWith(ctx, "Flush").ErrorContext(ctx, "failed to flush tickets", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.loggerWith(ctx, "Flush").InfoContext(ctx, "pending tickets flushed", "count", len(s.tickets))
	return nil
}

func (s *TicketStore) persistLocked(ctx context.Context, op string) error {
	if s.storage == nil {
		s.pending = false
		return nil
	}

	records := s.tickets
	if records == nil {
		records = []Ticket{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		s.pending = true
		return &PersistenceError{Op: "encode", Key: TicketsKey, Err: err}
	}
	if err := s.storage.Set(ctx, TicketsKey, string(payload)); err != nil {
		s.pending = true
		return &PersistenceError{Op: op, Key: TicketsKey, Err: err}
	}
	s.pending = false
	return nil
}

func (s *TicketStore) indexLocked(id int64) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

// nextIDLocked draws from the generator and falls past the largest known id
// when the draw collides with an existing ticket.
func (s *TicketStore) nextIDLocked() int64 {
	id := s.idGenerator()
	if s.indexLocked(id) < 0 {
		return id
	}
	var highest int64
	for _, ticket := range s.tickets {
		if ticket.ID > highest {
			highest = ticket.ID
		}
	}
	return highest + 1
}

func decodeTickets(raw string) ([]Ticket, error) {
	var tickets []Ticket
	if err := json.Unmarshal([]byte(raw), &tickets); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		if _, dup := seen[ticket.ID]; dup {
			return nil, fmt.Errorf("duplicate ticket id %d", ticket.ID)
		}
		seen[ticket.ID] = struct{}{}

		// An omitted priority reads as medium.
		if ticket.Priority == "" {
			ticket.Priority = PriorityMedium
		}
		if err := checkStoredTicket(*ticket); err != nil {
			return nil, fmt.Errorf("ticket %d: %w", ticket.ID, err)
		}
	}
	return tickets, nil
}

// checkStoredTicket rejects decoded tickets that Create and Update could
// never have produced.
func checkStoredTicket(ticket Ticket) error {
	switch {
	case !ticket.Status.Valid():
		return fmt.Errorf("invalid status %q", ticket.Status)
	case !ticket.Priority.Valid():
		return fmt.Errorf("invalid priority %q", ticket.Priority)
	case strings.TrimSpace(ticket.Title) == "":
		return errors.New("empty title")
	case ticket.UpdatedAt.Before(ticket.CreatedAt):
		return errors.New("updatedAt precedes createdAt")
	}
	return nil
}

func cloneTickets(tickets []Ticket) []Ticket {
	out := make([]Ticket, len(tickets))
	copy(out, tickets)
	return out
}
