package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/matchcal/matchcal/external/gcal"
	"github.com/matchcal/matchcal/internal/app"
	"github.com/matchcal/matchcal/internal/config"
	"github.com/matchcal/matchcal/internal/observability"
	"github.com/matchcal/matchcal/internal/platform/logging"
	"github.com/matchcal/matchcal/internal/usecase"
)

const (
	exitClean   = 0
	exitFatal   = 1
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		daemon    = flag.Bool("daemon", false, "run continuously on the configured cron schedule")
		dryRun    = flag.Bool("dry-run", false, "compute and print the plan without writing anything")
		authorize = flag.Bool("authorize", false, "run the OAuth consent flow and cache the token")
		calendar  = flag.String("calendar", "", "target calendar ID, overrides CALENDAR_ID")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitFatal
	}
	if *calendar != "" {
		cfg.CalendarID = *calendar
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *authorize {
		if err := gcal.Authorize(ctx, cfg.GoogleCredentialsPath, cfg.GoogleTokenPath, os.Stdin, os.Stdout); err != nil {
			logger.Error("authorization failed", "error", err)
			return exitFatal
		}
		return exitClean
	}

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return exitFatal
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownUptrace(shutdownCtx); err != nil {
			logger.Warn("uptrace shutdown", "error", err)
		}
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return exitFatal
	}
	defer func() {
		if err := stopProfiler(); err != nil {
			logger.Warn("pyroscope shutdown", "error", err)
		}
	}()

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof", "error", err)
		return exitFatal
	}
	defer func() {
		if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
			logger.Warn("pprof shutdown", "error", err)
		}
	}()

	svc, err := app.NewSyncService(ctx, cfg, logger)
	if err != nil {
		logger.Error("build sync engine", "error", err)
		return exitFatal
	}

	opts := usecase.RunOptions{DryRun: *dryRun}
	if *daemon {
		return runDaemon(ctx, svc, cfg.DaemonCronSpec, opts, logger)
	}
	return runOnce(ctx, svc, opts, logger)
}

func runOnce(ctx context.Context, svc *usecase.SyncService, opts usecase.RunOptions, logger *logging.Logger) int {
	report, err := svc.Run(ctx, opts)
	if err != nil {
		if crerr.Is(err, usecase.ErrConcurrencyConflict) {
			logger.Error("another sync run is already in progress", "run_id", report.RunID)
		} else {
			logger.Error("sync run failed", "run_id", report.RunID, "error", err)
		}
		return exitFatal
	}

	printReport(report)
	if report.Partial() {
		return exitPartial
	}
	return exitClean
}

// runDaemon fires one run immediately, then follows the cron schedule until a
// termination signal. Overlap within the process is prevented by the schedule
// runner itself; across processes the run lock does it.
func runDaemon(ctx context.Context, svc *usecase.SyncService, spec string, opts usecase.RunOptions, logger *logging.Logger) int {
	runErr := func() {
		report, err := svc.Run(ctx, opts)
		switch {
		case err != nil && crerr.Is(err, usecase.ErrConcurrencyConflict):
			logger.Warn("skipping run, another sync is in progress")
		case err != nil:
			logger.Error("scheduled sync run failed", "run_id", report.RunID, "error", err)
		default:
			printReport(report)
		}
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(spec, runErr); err != nil {
		logger.Error("invalid cron spec", "spec", spec, "error", err)
		return exitFatal
	}

	runErr()
	scheduler.Start()
	logger.Info("daemon started", "cron", spec)

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("daemon stopped")
	return exitClean
}

func printReport(report usecase.Report) {
	if report.Gated {
		fmt.Println("no changes detected")
		return
	}

	if report.DryRun {
		fmt.Printf("dry run: %d creates, %d updates, %d deletes\n",
			len(report.Plan.Creates), len(report.Plan.Updates), len(report.Plan.Deletes))
		for _, op := range append(append(append([]usecase.Operation{}, report.Plan.Creates...), report.Plan.Updates...), report.Plan.Deletes...) {
			fmt.Printf("  %s %s\n", op.Type, op.Key)
		}
		return
	}

	fmt.Printf("synced %d matches: %d applied, %d failed, %d skipped records\n",
		report.MatchCount, len(report.Applied), len(report.Failed), len(report.Skipped))
	for _, failed := range report.Failed {
		fmt.Printf("  failed %s %s: %v\n", failed.Op.Type, failed.Op.Key, failed.Err)
	}
}
