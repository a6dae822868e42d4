package usecase

import (
	"context"
	"time"

	"github.com/matchcal/matchcal/internal/domain/match"
	"github.com/matchcal/matchcal/internal/domain/syncstate"
)

// RemoteEvent is one event as it currently exists on the remote calendar.
// EventID is opaque and assigned by the provider.
type RemoteEvent struct {
	EventID     string
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	Location    string
	Description string
}

// Reminder is a minutes-before-start notification attached to created events.
type Reminder struct {
	Method  string
	Minutes int
}

// EventPayload is the full event body sent on create and update. Updates
// re-send everything so drift in any field self-heals.
type EventPayload struct {
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	Location    string
	Description string
	Reminders   []Reminder
}

// MatchSource supplies the raw scraped fixture list. No ordering guarantee is
// assumed; canonicalization happens downstream.
type MatchSource interface {
	FetchMatches(ctx context.Context) ([]match.Raw, error)
}

// CalendarProvider is the remote calendar API surface. ListEvents must drain
// pagination internally; partial listings are not acceptable.
type CalendarProvider interface {
	ListEvents(ctx context.Context, calendarID string) ([]RemoteEvent, error)
	CreateEvent(ctx context.Context, calendarID string, payload EventPayload) (string, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, payload EventPayload) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// StateStore persists the last completed run's fingerprint across restarts.
type StateStore interface {
	Load(ctx context.Context) (syncstate.State, error)
	Save(ctx context.Context, state syncstate.State) error
}

// RunLock serializes runs against the same state store and calendar.
type RunLock interface {
	// Acquire returns a release func, or ErrConcurrencyConflict when another
	// live run holds the lock.
	Acquire(runID string) (release func() error, err error)
}
