package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchcal/matchcal/internal/domain/match"
)

func TestOwnedEventIndexFiltersForeignEvents(t *testing.T) {
	tmpl := testTemplate()
	record := testRecord("מכבי", "הפועל", time.Date(2026, 9, 12, 20, 30, 0, 0, loc))

	foreign := RemoteEvent{
		EventID:     "dentist",
		Title:       "תור לרופא שיניים",
		StartTime:   record.StartTime,
		Description: "private appointment",
	}

	index, duplicates := OwnedEventIndex([]RemoteEvent{foreign, remoteFor(tmpl, record, "ev-1")}, tmpl, loc)

	require.Len(t, index, 1)
	assert.Empty(t, duplicates)
	_, ok := index[record.Key()]
	assert.True(t, ok, "owned event must be keyed by its fixture key")
}

func TestOwnedEventIndexReadsKeyFromDescription(t *testing.T) {
	tmpl := testTemplate()
	record := testRecord("מכבי", "הפועל", time.Date(2026, 9, 12, 20, 30, 0, 0, loc))

	ev := remoteFor(tmpl, record, "ev-1")
	// A hand-edited title must not break correlation.
	ev.Title = "BIG MATCH!!!"

	index, _ := OwnedEventIndex([]RemoteEvent{ev}, tmpl, loc)
	got, ok := index[record.Key()]
	require.True(t, ok)
	assert.Equal(t, "ev-1", got.EventID)
}

func TestOwnedEventIndexFallsBackToTitleParsing(t *testing.T) {
	tmpl := testTemplate()
	start := time.Date(2026, 9, 12, 20, 30, 0, 0, loc)

	legacy := RemoteEvent{
		EventID:     "ev-legacy",
		Title:       "(provisional) מכבי vs הפועל - ליגה - פלייאוף",
		StartTime:   start.UTC(),
		Description: "Synced by matchcal",
	}

	index, _ := OwnedEventIndex([]RemoteEvent{legacy}, tmpl, loc)
	got, ok := index[match.NewKey("מכבי", "הפועל", start)]
	require.True(t, ok, "legacy events keyed via title and local start date")
	assert.Equal(t, "ev-legacy", got.EventID)
}

func TestOwnedEventIndexCollectsDuplicates(t *testing.T) {
	tmpl := testTemplate()
	record := testRecord("מכבי", "הפועל", time.Date(2026, 9, 12, 20, 30, 0, 0, loc))

	first := remoteFor(tmpl, record, "ev-1")
	second := remoteFor(tmpl, record, "ev-2")

	index, duplicates := OwnedEventIndex([]RemoteEvent{first, second}, tmpl, loc)

	require.Len(t, index, 1)
	assert.Equal(t, "ev-1", index[record.Key()].EventID)
	require.Len(t, duplicates, 1)
	assert.Equal(t, "ev-2", duplicates[0].EventID)
}

func TestOwnedEventIndexSkipsUnparseableOwnedEvent(t *testing.T) {
	tmpl := testTemplate()

	mangled := RemoteEvent{
		EventID:     "ev-broken",
		Title:       "Synced by matchcal",
		StartTime:   time.Date(2026, 9, 12, 20, 30, 0, 0, loc),
		Description: "Synced by matchcal",
	}

	index, duplicates := OwnedEventIndex([]RemoteEvent{mangled}, tmpl, loc)
	assert.Empty(t, index)
	assert.Empty(t, duplicates)
}
