package usecase

import (
	"context"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/matchcal/matchcal/internal/platform/logging"
)

// OperationError pairs a failed operation with its cause for the run report.
type OperationError struct {
	Op  Operation
	Err error
}

// ExecutionResult is what actually happened against the remote calendar.
type ExecutionResult struct {
	Applied []Operation
	Failed  []OperationError
}

// Executor applies a plan one operation at a time. A failed operation is
// recorded and the batch continues; only context cancellation stops it early.
//
// Creates may run on a small worker pool since no two of them touch the same
// fixture; updates and deletes always run sequentially, and categories never
// overlap so creates are visible before superseded events disappear.
type Executor struct {
	provider      CalendarProvider
	calendarID    string
	tmpl          EventTemplate
	createWorkers int
	logger        *logging.Logger
}

func NewExecutor(provider CalendarProvider, calendarID string, tmpl EventTemplate, createWorkers int, logger *logging.Logger) *Executor {
	if createWorkers < 1 {
		createWorkers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		provider:      provider,
		calendarID:    calendarID,
		tmpl:          tmpl,
		createWorkers: createWorkers,
		logger:        logger,
	}
}

func (e *Executor) Execute(ctx context.Context, plan Plan) ExecutionResult {
	var res ExecutionResult

	if e.createWorkers > 1 && len(plan.Creates) > 1 {
		e.runParallel(ctx, plan.Creates, &res)
	} else {
		e.runSequential(ctx, plan.Creates, &res)
	}
	e.runSequential(ctx, plan.Updates, &res)
	e.runSequential(ctx, plan.Deletes, &res)

	return res
}

func (e *Executor) runSequential(ctx context.Context, ops []Operation, res *ExecutionResult) {
	for _, op := range ops {
		if ctx.Err() != nil {
			res.Failed = append(res.Failed, OperationError{Op: op, Err: ctx.Err()})
			continue
		}
		if err := e.apply(ctx, op); err != nil {
			res.Failed = append(res.Failed, OperationError{Op: op, Err: err})
			continue
		}
		res.Applied = append(res.Applied, op)
	}
}

func (e *Executor) runParallel(ctx context.Context, ops []Operation, res *ExecutionResult) {
	pool, err := ants.NewPool(e.createWorkers)
	if err != nil {
		e.logger.WarnContext(ctx, "create worker pool unavailable, falling back to sequential", "error", err)
		e.runSequential(ctx, ops, res)
		return
	}
	defer pool.Release()

	var mu sync.Mutex
	var workers sync.WaitGroup

	for _, op := range ops {
		op := op
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			opErr := ctx.Err()
			if opErr == nil {
				opErr = e.apply(ctx, op)
			}

			mu.Lock()
			defer mu.Unlock()
			if opErr != nil {
				res.Failed = append(res.Failed, OperationError{Op: op, Err: opErr})
				return
			}
			res.Applied = append(res.Applied, op)
		}); err != nil {
			workers.Done()
			mu.Lock()
			res.Failed = append(res.Failed, OperationError{Op: op, Err: err})
			mu.Unlock()
		}
	}

	workers.Wait()
}

func (e *Executor) apply(ctx context.Context, op Operation) error {
	switch op.Type {
	case OpCreate:
		eventID, err := e.provider.CreateEvent(ctx, e.calendarID, e.tmpl.Payload(op.Record))
		if err != nil {
			return crerr.Mark(crerr.Wrapf(err, "create %s", op.Key), ErrTransientAPI)
		}
		e.logger.InfoContext(ctx, "event created", "key", op.Key, "event_id", eventID)
		return nil

	case OpUpdate:
		if err := e.provider.UpdateEvent(ctx, e.calendarID, op.Event.EventID, e.tmpl.Payload(op.Record)); err != nil {
			return crerr.Mark(crerr.Wrapf(err, "update %s", op.Key), ErrTransientAPI)
		}
		e.logger.InfoContext(ctx, "event updated", "key", op.Key, "event_id", op.Event.EventID)
		return nil

	case OpDelete:
		if err := e.provider.DeleteEvent(ctx, e.calendarID, op.Event.EventID); err != nil {
			return crerr.Mark(crerr.Wrapf(err, "delete %s", op.Key), ErrTransientAPI)
		}
		e.logger.InfoContext(ctx, "event deleted", "key", op.Key, "event_id", op.Event.EventID)
		return nil

	default:
		return crerr.Newf("unknown operation type %q", op.Type)
	}
}
