package match

import (
	"fmt"
	"strings"
	"time"
)

// NotFinalMarker is the substring the club site places next to a kickoff time
// that has not been confirmed yet.
const NotFinalMarker = "לא סופי"

// DefaultDuration is assumed for every fixture; the source never publishes one.
const DefaultDuration = 2 * time.Hour

// Key identifies a fixture across runs: home team, away team and the calendar
// date of the kickoff. The time of day is deliberately excluded so a
// provisional kickoff that gets finalized on the same date keeps its identity.
type Key string

// Record is one normalized fixture. Immutable once built; only its hash and
// the calendar events derived from it outlive a sync run.
type Record struct {
	StartTime   time.Time
	Duration    time.Duration
	HomeTeam    string
	AwayTeam    string
	Competition string
	Venue       string
	Provisional bool
}

// Key derives the change-tracking identity of the record. Two fixtures between
// the same teams on the same date collapse to one key; the last record wins.
func (r Record) Key() Key {
	return NewKey(r.HomeTeam, r.AwayTeam, r.StartTime)
}

func NewKey(homeTeam, awayTeam string, start time.Time) Key {
	return Key(fmt.Sprintf("%s|%s|%s",
		strings.TrimSpace(homeTeam),
		strings.TrimSpace(awayTeam),
		start.Format("2006-01-02"),
	))
}

// Title renders the calendar event title. provisionalTag is prepended only
// while the kickoff time is not final, so removing the flag later shows up as
// a field difference and heals through a plan update.
func (r Record) Title(provisionalTag string) string {
	var b strings.Builder
	if r.Provisional && provisionalTag != "" {
		b.WriteString(provisionalTag)
		b.WriteString(" ")
	}
	b.WriteString(r.HomeTeam)
	b.WriteString(" vs ")
	b.WriteString(r.AwayTeam)
	if r.Competition != "" {
		b.WriteString(" - ")
		b.WriteString(r.Competition)
	}
	return b.String()
}

// EndTime is the fixed-duration end of the calendar window.
func (r Record) EndTime() time.Time {
	d := r.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	return r.StartTime.Add(d)
}
