package usecase

import (
	"strings"
	"time"

	"github.com/matchcal/matchcal/internal/domain/match"
)

// OwnedEventIndex filters a raw event listing down to engine-owned events and
// keys them for the planner. Events lacking the ownership marker in title and
// description belong to someone else and are invisible to the engine.
//
// Keys are read from the description line written at create time; events from
// before that line existed fall back to deriving the key from the title text
// and start date. Extra events that collapse onto an already-seen key are
// returned separately so the run can clear them, keeping re-runs duplicate
// free.
func OwnedEventIndex(events []RemoteEvent, tmpl EventTemplate, loc *time.Location) (map[match.Key]RemoteEvent, []RemoteEvent) {
	index := make(map[match.Key]RemoteEvent, len(events))
	var duplicates []RemoteEvent

	for _, ev := range events {
		if !owned(ev, tmpl.OwnershipMarker) {
			continue
		}

		key := keyFromDescription(ev.Description)
		if key == "" {
			key = keyFromTitle(ev, tmpl.ProvisionalTag, loc)
		}
		if key == "" {
			continue
		}

		if _, seen := index[match.Key(key)]; seen {
			duplicates = append(duplicates, ev)
			continue
		}
		index[match.Key(key)] = ev
	}

	return index, duplicates
}

func owned(ev RemoteEvent, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(ev.Description, marker) || strings.Contains(ev.Title, marker)
}

func keyFromDescription(description string) string {
	for _, line := range strings.Split(description, "\n") {
		if rest, ok := strings.CutPrefix(line, keyLinePrefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// keyFromTitle reverses the title template: "[tag ]home vs away[ - competition]".
// The first " - " after the team pair starts the competition, which may itself
// contain dashes.
func keyFromTitle(ev RemoteEvent, provisionalTag string, loc *time.Location) string {
	title := strings.TrimSpace(ev.Title)
	if provisionalTag != "" {
		title = strings.TrimSpace(strings.TrimPrefix(title, provisionalTag))
	}

	home, rest, ok := strings.Cut(title, " vs ")
	if !ok {
		return ""
	}
	away, _, _ := strings.Cut(rest, " - ")

	home = strings.TrimSpace(home)
	away = strings.TrimSpace(away)
	if home == "" || away == "" {
		return ""
	}

	return string(match.NewKey(home, away, ev.StartTime.In(loc)))
}
