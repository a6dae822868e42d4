package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/matchcal/matchcal/internal/domain/match"
)

type stubSource struct {
	raws []match.Raw
	err  error
}

func (s *stubSource) FetchMatches(context.Context) ([]match.Raw, error) {
	return s.raws, s.err
}

// stubProvider records every call and serves a canned listing. failOn marks
// event titles (creates) or event IDs (updates, deletes) that must fail.
type stubProvider struct {
	mu      sync.Mutex
	events  []RemoteEvent
	listErr error
	failOn  map[string]error

	calls   []string
	created []EventPayload
	updated map[string]EventPayload
	deleted []string
	nextID  int
}

func newStubProvider(events ...RemoteEvent) *stubProvider {
	return &stubProvider{
		events:  events,
		failOn:  map[string]error{},
		updated: map[string]EventPayload{},
	}
}

func (p *stubProvider) ListEvents(context.Context, string) ([]RemoteEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "list")
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.events, nil
}

func (p *stubProvider) CreateEvent(_ context.Context, _ string, payload EventPayload) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "create")
	if err, ok := p.failOn[payload.Title]; ok {
		return "", err
	}
	p.created = append(p.created, payload)
	p.nextID++
	return fmt.Sprintf("ev-%d", p.nextID), nil
}

func (p *stubProvider) UpdateEvent(_ context.Context, _ string, eventID string, payload EventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "update")
	if err, ok := p.failOn[eventID]; ok {
		return err
	}
	p.updated[eventID] = payload
	return nil
}

func (p *stubProvider) DeleteEvent(_ context.Context, _ string, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "delete")
	if err, ok := p.failOn[eventID]; ok {
		return err
	}
	p.deleted = append(p.deleted, eventID)
	return nil
}

func (p *stubProvider) callOrder() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type stubLock struct {
	conflict bool
	acquired int
	released int
}

func (l *stubLock) Acquire(string) (func() error, error) {
	if l.conflict {
		return nil, crerr.Mark(crerr.New("lock held"), ErrConcurrencyConflict)
	}
	l.acquired++
	return func() error {
		l.released++
		return nil
	}, nil
}

func testTemplate() EventTemplate {
	return EventTemplate{
		ProvisionalTag:  "(provisional)",
		OwnershipMarker: "Synced by matchcal",
		Reminders:       []Reminder{{Method: "email", Minutes: 1440}, {Method: "popup", Minutes: 60}},
	}
}

func testRecord(home, away string, start time.Time) match.Record {
	return match.Record{
		StartTime:   start,
		Duration:    match.DefaultDuration,
		HomeTeam:    home,
		AwayTeam:    away,
		Competition: "ליגה",
		Venue:       "סמי עופר",
	}
}

// remoteFor renders the event the template would have created for a record,
// with the given provider-assigned ID.
func remoteFor(t EventTemplate, r match.Record, eventID string) RemoteEvent {
	p := t.Payload(r)
	return RemoteEvent{
		EventID:     eventID,
		Title:       p.Title,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Location:    p.Location,
		Description: p.Description,
	}
}
