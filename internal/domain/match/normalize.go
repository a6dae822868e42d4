package match

import (
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
)

// ErrNormalization marks a single raw record that could not be turned into a
// Record. It is always a per-record failure, never a batch one.
var ErrNormalization = crerr.New("record normalization failed")

// SourceTimezone is the region the club publishes wall-clock times in.
const SourceTimezone = "Asia/Jerusalem"

// hebrewMonths maps the site's month abbreviations, with and without the
// trailing geresh, to month numbers.
var hebrewMonths = map[string]time.Month{
	"ינו": time.January, "פבר": time.February, "מרץ": time.March,
	"אפר": time.April, "מאי": time.May, "יונ": time.June,
	"יול": time.July, "אוג": time.August, "ספט": time.September,
	"אוק": time.October, "נוב": time.November, "דצמ": time.December,
	"ינו'": time.January, "פבר'": time.February, "מרץ'": time.March,
	"אפר'": time.April, "מאי'": time.May, "יונ'": time.June,
	"יול'": time.July, "אוג'": time.August, "ספט'": time.September,
	"אוק'": time.October, "נוב'": time.November, "דצמ'": time.December,
}

// Raw is the untyped field mapping the scraper hands over, strings only.
type Raw struct {
	DateDay      string `json:"date_day"`
	DateMonth    string `json:"date_month"`
	Time         string `json:"time"`
	Competition  string `json:"competition"`
	Venue        string `json:"venue"`
	HomeTeam     string `json:"home_team"`
	AwayTeam     string `json:"away_team"`
	NotFinalTime string `json:"not_final_time"`
}

// Normalizer turns raw scraped fields into canonical Records. It is pure apart
// from reading the clock for year inference.
type Normalizer struct {
	loc      *time.Location
	duration time.Duration
	now      func() time.Time
}

// NewNormalizer builds a Normalizer for the source region. duration <= 0 falls
// back to DefaultDuration, now == nil falls back to time.Now.
func NewNormalizer(loc *time.Location, duration time.Duration, now func() time.Time) *Normalizer {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{loc: loc, duration: duration, now: now}
}

// Normalize converts one raw record. Failures are wrapped with
// ErrNormalization and never abort the batch.
func (n *Normalizer) Normalize(raw Raw) (Record, error) {
	month, ok := hebrewMonths[strings.TrimSpace(raw.DateMonth)]
	if !ok {
		return Record{}, crerr.Wrapf(ErrNormalization, "unrecognized month %q", raw.DateMonth)
	}

	day, err := parseDay(raw.DateDay)
	if err != nil {
		return Record{}, crerr.Wrapf(ErrNormalization, "day %q", raw.DateDay)
	}

	clock, err := time.Parse("15:04", strings.TrimSpace(raw.Time))
	if err != nil {
		return Record{}, crerr.Wrapf(ErrNormalization, "time %q", raw.Time)
	}

	homeTeam := strings.TrimSpace(raw.HomeTeam)
	awayTeam := strings.TrimSpace(raw.AwayTeam)
	if homeTeam == "" || awayTeam == "" {
		return Record{}, crerr.Wrap(ErrNormalization, "missing team name")
	}

	// The schedule spans a season without a year field; a month already behind
	// the current one belongs to next year.
	now := n.now().In(n.loc)
	year := now.Year()
	if month < now.Month() {
		year++
	}

	// Attaching the location (not a fixed offset) keeps summer and winter
	// kickoffs both correct under Israel DST.
	start := time.Date(year, month, day, clock.Hour(), clock.Minute(), 0, 0, n.loc)

	return Record{
		StartTime:   start,
		Duration:    n.duration,
		HomeTeam:    homeTeam,
		AwayTeam:    awayTeam,
		Competition: strings.TrimSpace(raw.Competition),
		Venue:       strings.TrimSpace(raw.Venue),
		Provisional: strings.Contains(raw.NotFinalTime, NotFinalMarker),
	}, nil
}

func parseDay(value string) (int, error) {
	value = strings.TrimSpace(value)
	day := 0
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, crerr.Newf("non-digit in day %q", value)
		}
		day = day*10 + int(r-'0')
	}
	if day < 1 || day > 31 {
		return 0, crerr.Newf("day %d out of range", day)
	}
	return day, nil
}
