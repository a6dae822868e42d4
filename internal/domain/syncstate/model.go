package syncstate

import (
	"time"

	"github.com/matchcal/matchcal/internal/domain/match"
)

// State is the per-calendar record persisted between runs. It is the only
// thing that survives a run besides the calendar events themselves.
type State struct {
	Hash       string    `json:"last_hash"`
	MatchCount int       `json:"last_match_count"`
	LastSyncAt time.Time `json:"last_sync"`
}

// FromFingerprint captures a completed run's fingerprint as persistable state.
func FromFingerprint(fp match.Fingerprint) State {
	return State{
		Hash:       fp.Hash,
		MatchCount: fp.MatchCount,
		LastSyncAt: fp.ComputedAt,
	}
}

// Empty reports whether no previous run has persisted state, forcing a full
// reconciliation pass.
func (s State) Empty() bool {
	return s.Hash == ""
}
