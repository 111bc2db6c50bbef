package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/ticketdesk/internal/persistence"
)

// Record keys shared by every storage backend.
const (
	SessionKey = "ticketapp_session"
	TicketsKey = "ticketapp_tickets"
)

// Storage is the keyed record store both managers persist into. Get reports
// an absent key with persistence.ErrNotFound; Remove of an absent key succeeds.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

func isAbsent(err error) bool {
	return errors.Is(err, persistence.ErrNotFound)
}

// NewTimeIDs returns a generator of time-derived identifiers. Values are the
// clock reading in Unix milliseconds, bumped when needed so that every value
// is strictly greater than the previous one.
func NewTimeIDs(now func() time.Time) func() int64 {
	if now == nil {
		now = time.Now
	}
	var (
		mu   sync.Mutex
		last int64
	)
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		id := now().UnixMilli()
		if id <= last {
			id = last + 1
		}
		last = id
		return id
	}
}

// stamp normalises a clock reading to the precision stored in records.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
