package usecase

import crerr "github.com/cockroachdb/errors"

var (
	// ErrFatalAPI marks read-phase or auth failures that abort the run before
	// any calendar write. The stored fingerprint is left untouched so the next
	// run performs a full reconciliation.
	ErrFatalAPI = crerr.New("calendar api unavailable")

	// ErrTransientAPI marks a single failed plan operation. The batch
	// continues and the failure is surfaced in the run report.
	ErrTransientAPI = crerr.New("transient api failure")

	// ErrConcurrencyConflict is returned when another run already holds the
	// lock. Nothing is read or written.
	ErrConcurrencyConflict = crerr.New("another sync run is in progress")
)
