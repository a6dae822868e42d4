// Package runlock serializes sync runs with a lock file. Concurrent runs
// against the same calendar would race on create/delete of the same fixture,
// so a second invocation aborts instead of queueing.
package runlock

import (
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/matchcal/matchcal/internal/usecase"
)

type lockInfo struct {
	PID        int       `json:"pid"`
	RunID      string    `json:"run_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// FileLock implements usecase.RunLock on top of an exclusive lock file
// carrying the holder's PID. A lock left behind by a dead process is stolen,
// so a crashed run never wedges the schedule.
type FileLock struct {
	path string
}

func New(path string) *FileLock {
	return &FileLock{path: path}
}

func (l *FileLock) Acquire(runID string) (func() error, error) {
	release, err := l.tryAcquire(runID)
	if err == nil {
		return release, nil
	}
	if !crerr.Is(err, fs.ErrExist) {
		return nil, err
	}

	holder, readErr := l.readHolder()
	if readErr == nil && processAlive(holder.PID) {
		return nil, crerr.Mark(
			crerr.Newf("lock %s held by pid %d since %s", l.path, holder.PID, holder.AcquiredAt.Format(time.RFC3339)),
			usecase.ErrConcurrencyConflict,
		)
	}

	// Holder is gone (or the file is unreadable garbage): steal once.
	if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) {
		return nil, crerr.Wrapf(removeErr, "remove stale lock %s", l.path)
	}
	release, err = l.tryAcquire(runID)
	if err != nil {
		return nil, crerr.Mark(err, usecase.ErrConcurrencyConflict)
	}
	return release, nil
}

func (l *FileLock) tryAcquire(runID string) (func() error, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, crerr.Wrapf(err, "create lock %s", l.path)
	}

	raw, err := sonic.Marshal(lockInfo{
		PID:        os.Getpid(),
		RunID:      runID,
		AcquiredAt: time.Now(),
	})
	if err == nil {
		_, err = f.Write(raw)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(l.path)
		return nil, crerr.Wrapf(err, "write lock %s", l.path)
	}

	return func() error {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return crerr.Wrapf(err, "remove lock %s", l.path)
		}
		return nil
	}, nil
}

func (l *FileLock) readHolder() (lockInfo, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return lockInfo{}, err
	}
	var info lockInfo
	if err := sonic.Unmarshal(raw, &info); err != nil {
		return lockInfo{}, err
	}
	if info.PID <= 0 {
		return lockInfo{}, crerr.New("lock file has no pid")
	}
	return info, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}
