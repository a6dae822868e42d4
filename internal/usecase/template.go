package usecase

import (
	"strings"
	"time"

	"github.com/matchcal/matchcal/internal/domain/match"
)

// keyLinePrefix tags the derived fixture key inside the event description so
// the state reader can correlate events with fixtures without parsing titles.
const keyLinePrefix = "fixture-key: "

// EventTemplate renders fixtures into calendar event payloads. The same
// template drives both the planner's field comparison and the executor's
// writes, so "differs" and "what gets written" can never drift apart.
type EventTemplate struct {
	ProvisionalTag  string
	OwnershipMarker string
	Reminders       []Reminder
}

// Payload builds the full event body for a fixture.
func (t EventTemplate) Payload(r match.Record) EventPayload {
	return EventPayload{
		Title:       r.Title(t.ProvisionalTag),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime(),
		Location:    r.Venue,
		Description: t.Description(r),
		Reminders:   t.Reminders,
	}
}

// Description embeds the fixture key and the ownership marker. Events without
// the marker are never touched by the engine.
func (t EventTemplate) Description(r match.Record) string {
	var b strings.Builder
	b.WriteString("Football match: ")
	b.WriteString(r.Title(t.ProvisionalTag))
	b.WriteString("\n\n")
	b.WriteString(keyLinePrefix)
	b.WriteString(string(r.Key()))
	b.WriteString("\n")
	b.WriteString(t.OwnershipMarker)
	return b.String()
}

// Differs compares every user-visible field of an existing event against what
// the template would write for the record. Start and end times compare to the
// minute as instants, so a provider echoing times in UTC still matches.
func (t EventTemplate) Differs(ev RemoteEvent, r match.Record) bool {
	p := t.Payload(r)
	if ev.Title != p.Title {
		return true
	}
	if !sameMinute(ev.StartTime, p.StartTime) || !sameMinute(ev.EndTime, p.EndTime) {
		return true
	}
	if ev.Location != p.Location {
		return true
	}
	return ev.Description != p.Description
}

func sameMinute(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}
