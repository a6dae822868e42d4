// Package app assembles the sync engine from configuration: OAuth transport,
// calendar client, fixtures scraper, state store, run lock.
package app

import (
	"context"
	"net/http"
	"time"

	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matchcal/matchcal/external/gcal"
	"github.com/matchcal/matchcal/external/mhfc"
	"github.com/matchcal/matchcal/internal/config"
	"github.com/matchcal/matchcal/internal/domain/match"
	"github.com/matchcal/matchcal/internal/infrastructure/state"
	"github.com/matchcal/matchcal/internal/platform/logging"
	"github.com/matchcal/matchcal/internal/platform/resilience"
	"github.com/matchcal/matchcal/internal/platform/runlock"
	"github.com/matchcal/matchcal/internal/usecase"
)

// NewSyncService wires every collaborator per the configuration and returns
// the ready-to-run engine.
func NewSyncService(ctx context.Context, cfg config.Config, logger *logging.Logger) (*usecase.SyncService, error) {
	if logger == nil {
		logger = logging.Default()
	}

	loc, err := time.LoadLocation(cfg.EventTimeZone)
	if err != nil {
		return nil, crerr.Wrapf(err, "load timezone %s", cfg.EventTimeZone)
	}

	var base http.RoundTripper
	if cfg.UptraceEnabled {
		base = otelhttp.NewTransport(http.DefaultTransport)
	}

	authedClient, err := gcal.NewAuthorizedHTTPClient(ctx, cfg.GoogleCredentialsPath, cfg.GoogleTokenPath, base)
	if err != nil {
		return nil, err
	}
	authedClient.Timeout = cfg.GCalTimeout

	calendar := gcal.NewClient(gcal.ClientConfig{
		HTTPClient: authedClient,
		BaseURL:    cfg.GCalBaseURL,
		Timeout:    cfg.GCalTimeout,
		MaxRetries: cfg.GCalMaxRetries,
		TimeZone:   cfg.EventTimeZone,
		ListWindow: cfg.GCalListWindow,
		Logger:     logger,
		Breaker: resilience.BreakerConfig{
			Enabled:          cfg.GCalCircuitEnabled,
			FailureThreshold: cfg.GCalCircuitFailureCount,
			OpenTimeout:      cfg.GCalCircuitOpenTimeout,
			HalfOpenMax:      cfg.GCalCircuitHalfOpenMaxReq,
		},
	})

	scraperHTTP := &http.Client{Timeout: cfg.MHFCTimeout}
	if base != nil {
		scraperHTTP.Transport = base
	}
	fixtures, err := mhfc.NewClient(mhfc.ClientConfig{
		HTTPClient: scraperHTTP,
		BaseURL:    cfg.MHFCBaseURL,
		Timeout:    cfg.MHFCTimeout,
		Lookahead:  cfg.MHFCLookahead,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	reminders := make([]usecase.Reminder, 0, len(cfg.ReminderLeads))
	for _, lead := range cfg.ReminderLeads {
		reminders = append(reminders, usecase.Reminder{Method: lead.Method, Minutes: lead.Minutes})
	}

	return usecase.NewSyncService(
		fixtures,
		calendar,
		state.NewFileStore(cfg.StateFilePath),
		runlock.New(cfg.LockFilePath),
		match.NewNormalizer(loc, cfg.EventDuration, time.Now),
		usecase.SyncConfig{
			CalendarID: cfg.CalendarID,
			Template: usecase.EventTemplate{
				ProvisionalTag:  cfg.ProvisionalTag,
				OwnershipMarker: cfg.OwnershipMarker,
				Reminders:       reminders,
			},
			Location:      loc,
			CreateWorkers: cfg.SyncCreateWorkers,
		},
		logger,
	), nil
}
