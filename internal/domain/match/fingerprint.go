package match

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"github.com/valyala/bytebufferpool"
)

// Fingerprint is a content hash over a canonicalized fixture list. Equal
// hashes let a run skip reconciliation entirely; they never replace the
// per-event diff once a run proceeds.
type Fingerprint struct {
	Hash       string    `json:"hash"`
	MatchCount int       `json:"match_count"`
	ComputedAt time.Time `json:"computed_at"`
}

// NewFingerprint hashes every displayed or scheduled field of the records.
// The list is sorted by Key first so the hash ignores upstream ordering;
// volatile fields (scrape time and the like) never enter the digest.
func NewFingerprint(records []Record, at time.Time) Fingerprint {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, r := range sorted {
		_, _ = buf.WriteString(r.HomeTeam)
		_, _ = buf.WriteString("|")
		_, _ = buf.WriteString(r.AwayTeam)
		_, _ = buf.WriteString("|")
		_, _ = buf.WriteString(r.StartTime.Format(time.RFC3339))
		_, _ = buf.WriteString("|")
		_, _ = buf.WriteString(r.Venue)
		_, _ = buf.WriteString("|")
		_, _ = buf.WriteString(r.Competition)
		_, _ = buf.WriteString("|")
		_, _ = buf.WriteString(strconv.FormatBool(r.Provisional))
		_, _ = buf.WriteString("\n")
	}

	sum := sha256.Sum256(buf.Bytes())

	return Fingerprint{
		Hash:       hex.EncodeToString(sum[:]),
		MatchCount: len(records),
		ComputedAt: at,
	}
}

// Matches reports whether the stored hash gates out a reconciliation pass.
func (f Fingerprint) Matches(storedHash string) bool {
	return storedHash != "" && f.Hash == storedHash
}
