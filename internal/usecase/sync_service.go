package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/matchcal/matchcal/internal/domain/match"
	"github.com/matchcal/matchcal/internal/domain/syncstate"
	"github.com/matchcal/matchcal/internal/platform/logging"
)

// SyncConfig carries the engine options threaded in from configuration.
type SyncConfig struct {
	CalendarID    string
	Template      EventTemplate
	Location      *time.Location
	CreateWorkers int
}

// SkippedRecord is a scraped record that failed normalization and was
// excluded from the run. It never merges into another entry.
type SkippedRecord struct {
	Raw match.Raw
	Err error
}

// Report is the outcome of one sync run.
type Report struct {
	RunID      string
	Gated      bool
	DryRun     bool
	MatchCount int
	Skipped    []SkippedRecord
	Plan       Plan
	Applied    []Operation
	Failed     []OperationError
	StateSaved bool
}

// Partial reports whether some operations failed while the run itself
// completed.
func (r Report) Partial() bool {
	return len(r.Failed) > 0
}

type RunOptions struct {
	// DryRun computes and reports the plan without writing to the calendar or
	// the state store.
	DryRun bool
}

// SyncService is the single-shot reconciliation engine: scrape result in,
// calendar mutations and updated fingerprint out. It holds no state between
// runs beyond what StateStore persists.
type SyncService struct {
	source     MatchSource
	provider   CalendarProvider
	store      StateStore
	lock       RunLock
	normalizer *match.Normalizer
	cfg        SyncConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewSyncService(
	source MatchSource,
	provider CalendarProvider,
	store StateStore,
	lock RunLock,
	normalizer *match.Normalizer,
	cfg SyncConfig,
	logger *logging.Logger,
) *SyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CreateWorkers < 1 {
		cfg.CreateWorkers = 1
	}
	return &SyncService{
		source:     source,
		provider:   provider,
		store:      store,
		lock:       lock,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs one full sync pass. Fatal errors (lock conflict, scrape
// failure, calendar listing failure) abort before any write and leave the
// stored fingerprint untouched; per-record and per-operation failures are
// collected into the report instead.
func (s *SyncService) Run(ctx context.Context, opts RunOptions) (Report, error) {
	report := Report{RunID: uuid.NewString(), DryRun: opts.DryRun}

	release, err := s.lock.Acquire(report.RunID)
	if err != nil {
		return report, err
	}
	defer func() {
		if releaseErr := release(); releaseErr != nil {
			s.logger.WarnContext(ctx, "release run lock", "error", releaseErr)
		}
	}()

	logger := s.logger.With("run_id", report.RunID, "calendar_id", s.cfg.CalendarID)
	logger.InfoContext(ctx, "sync run starting")

	raws, err := s.source.FetchMatches(ctx)
	if err != nil {
		return report, crerr.Wrap(err, "fetch matches")
	}
	if len(raws) == 0 {
		logger.WarnContext(ctx, "source returned no matches, owned events will be cleared if any exist")
	}

	records := make([]match.Record, 0, len(raws))
	for _, raw := range raws {
		record, normErr := s.normalizer.Normalize(raw)
		if normErr != nil {
			logger.WarnContext(ctx, "skipping record",
				"home_team", raw.HomeTeam,
				"away_team", raw.AwayTeam,
				"error", normErr,
			)
			report.Skipped = append(report.Skipped, SkippedRecord{Raw: raw, Err: normErr})
			continue
		}
		records = append(records, record)
	}
	report.MatchCount = len(records)

	fp := match.NewFingerprint(records, s.now())

	state, err := s.store.Load(ctx)
	if err != nil {
		// A corrupt or unreadable state file forces a full pass, same as a
		// first run.
		logger.WarnContext(ctx, "load sync state, proceeding with full reconciliation", "error", err)
		state = syncstate.State{}
	}

	if fp.Matches(state.Hash) {
		logger.InfoContext(ctx, "no changes detected", "hash", fp.Hash, "match_count", fp.MatchCount)
		report.Gated = true
		return report, nil
	}

	events, err := s.provider.ListEvents(ctx, s.cfg.CalendarID)
	if err != nil {
		return report, crerr.Mark(crerr.Wrap(err, "list calendar events"), ErrFatalAPI)
	}

	existing, duplicates := OwnedEventIndex(events, s.cfg.Template, s.cfg.Location)
	logger.InfoContext(ctx, "calendar state read",
		"owned_events", len(existing),
		"duplicate_events", len(duplicates),
	)

	report.Plan = BuildPlan(records, existing, s.cfg.Template)
	for _, ev := range duplicates {
		report.Plan.Deletes = append(report.Plan.Deletes, Operation{Type: OpDelete, Event: ev})
	}

	if report.Plan.FullWipe() {
		logger.WarnContext(ctx, "plan removes every owned event",
			"deletes", len(report.Plan.Deletes),
		)
	}
	logger.InfoContext(ctx, "plan built",
		"creates", len(report.Plan.Creates),
		"updates", len(report.Plan.Updates),
		"deletes", len(report.Plan.Deletes),
	)

	if opts.DryRun {
		return report, nil
	}

	if !report.Plan.Empty() {
		executor := NewExecutor(s.provider, s.cfg.CalendarID, s.cfg.Template, s.cfg.CreateWorkers, logger)
		result := executor.Execute(ctx, report.Plan)
		report.Applied = result.Applied
		report.Failed = result.Failed
	}

	// A terminated run must force full reconciliation next time.
	if ctx.Err() != nil {
		logger.WarnContext(ctx, "run interrupted, fingerprint not persisted", "error", ctx.Err())
		return report, nil
	}

	// The planner was reached, so the fingerprint is persisted even when some
	// operations failed; a later run converges the leftovers because the diff
	// is recomputed against the live calendar, not the hash.
	if err := s.store.Save(ctx, syncstate.FromFingerprint(fp)); err != nil {
		logger.ErrorContext(ctx, "persist sync state", "error", err)
	} else {
		report.StateSaved = true
	}

	logger.InfoContext(ctx, "sync run finished",
		"applied", len(report.Applied),
		"failed", len(report.Failed),
		"skipped_records", len(report.Skipped),
	)

	return report, nil
}
