package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	loc := time.FixedZone("IDT", 3*3600)
	return []Record{
		{
			StartTime: time.Date(2026, 9, 12, 20, 30, 0, 0, loc),
			HomeTeam:  "מכבי", AwayTeam: "הפועל באר שבע",
			Competition: "ליגה", Venue: "סמי עופר",
		},
		{
			StartTime: time.Date(2026, 9, 20, 18, 0, 0, 0, loc),
			HomeTeam:  "מכבי", AwayTeam: "מכבי תל אביב",
			Competition: "גביע המדינה", Venue: "בלומפילד",
			Provisional: true,
		},
	}
}

func TestFingerprintStableAcrossOrderAndClock(t *testing.T) {
	records := sampleRecords()
	reversed := []Record{records[1], records[0]}

	a := NewFingerprint(records, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))
	b := NewFingerprint(reversed, time.Date(2026, 9, 2, 23, 0, 0, 0, time.UTC))

	assert.Equal(t, a.Hash, b.Hash, "hash must not depend on ordering or computation time")
	assert.Equal(t, 2, a.MatchCount)
	require.Len(t, a.Hash, 64)
}

func TestFingerprintSensitiveToEveryTrackedField(t *testing.T) {
	base := NewFingerprint(sampleRecords(), time.Now())

	mutations := map[string]func([]Record){
		"kickoff time": func(rs []Record) { rs[0].StartTime = rs[0].StartTime.Add(30 * time.Minute) },
		"venue":        func(rs []Record) { rs[0].Venue = "אצטדיון אחר" },
		"competition":  func(rs []Record) { rs[0].Competition = "ליגת האלופות" },
		"provisional":  func(rs []Record) { rs[1].Provisional = false },
		"home team":    func(rs []Record) { rs[0].HomeTeam = "בני סכנין" },
		"removed game": nil,
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			records := sampleRecords()
			if mutate == nil {
				records = records[:1]
			} else {
				mutate(records)
			}
			assert.NotEqual(t, base.Hash, NewFingerprint(records, time.Now()).Hash)
		})
	}
}

func TestFingerprintMatches(t *testing.T) {
	fp := NewFingerprint(sampleRecords(), time.Now())

	assert.True(t, fp.Matches(fp.Hash))
	assert.False(t, fp.Matches(""), "an absent stored hash must never gate a run")
	assert.False(t, fp.Matches("deadbeef"))
}

func TestFingerprintEmptyList(t *testing.T) {
	fp := NewFingerprint(nil, time.Now())
	assert.Equal(t, 0, fp.MatchCount)
	assert.NotEmpty(t, fp.Hash, "an empty schedule still hashes, distinct from never-synced")
}
