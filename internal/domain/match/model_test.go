package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyIgnoresTimeOfDay(t *testing.T) {
	early := Record{HomeTeam: "מכבי", AwayTeam: "הפועל", StartTime: time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)}
	late := Record{HomeTeam: "מכבי", AwayTeam: "הפועל", StartTime: time.Date(2026, 9, 12, 21, 30, 0, 0, time.UTC)}

	assert.Equal(t, early.Key(), late.Key())
	assert.Equal(t, Key("מכבי|הפועל|2026-09-12"), early.Key())
}

func TestKeyChangesWithDateAndTeams(t *testing.T) {
	base := Record{HomeTeam: "מכבי", AwayTeam: "הפועל", StartTime: time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)}

	nextDay := base
	nextDay.StartTime = base.StartTime.AddDate(0, 0, 1)
	assert.NotEqual(t, base.Key(), nextDay.Key())

	swapped := base
	swapped.HomeTeam, swapped.AwayTeam = base.AwayTeam, base.HomeTeam
	assert.NotEqual(t, base.Key(), swapped.Key())
}

func TestTitleVariants(t *testing.T) {
	record := Record{HomeTeam: "מכבי", AwayTeam: "הפועל", Competition: "ליגה"}
	assert.Equal(t, "מכבי vs הפועל - ליגה", record.Title("(provisional)"))

	record.Competition = ""
	assert.Equal(t, "מכבי vs הפועל", record.Title("(provisional)"))

	record.Provisional = true
	assert.Equal(t, "(provisional) מכבי vs הפועל", record.Title("(provisional)"))
	assert.Equal(t, "מכבי vs הפועל", record.Title(""))
}

func TestEndTimeFallsBackToDefaultDuration(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	record := Record{StartTime: start}
	assert.True(t, record.EndTime().Equal(start.Add(DefaultDuration)))

	record.Duration = time.Hour
	assert.True(t, record.EndTime().Equal(start.Add(time.Hour)))
}
