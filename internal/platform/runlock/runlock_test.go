package runlock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchcal/matchcal/internal/usecase"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	lock := New(path)

	release, err := lock.Acquire("run-1")
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	require.NoError(t, release())
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "lock file removed on release")

	// A fresh acquire works after release.
	release, err = lock.Acquire("run-2")
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestAcquireConflictsWithLiveHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	lock := New(path)

	release, err := lock.Acquire("run-1")
	require.NoError(t, err)
	defer func() { _ = release() }()

	// The holder PID is this test process, which is alive.
	_, err = New(path).Acquire("run-2")
	require.Error(t, err)
	assert.True(t, crerr.Is(err, usecase.ErrConcurrencyConflict))
}

func TestAcquireStealsLockOfDeadProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	// PIDs roll over long before this value; no such process exists.
	raw, err := sonic.Marshal(lockInfo{PID: 1 << 30, RunID: "dead", AcquiredAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	release, err := New(path).Acquire("run-1")
	require.NoError(t, err, "a dead holder's lock is stolen")
	require.NoError(t, release())
}

func TestAcquireStealsUnreadableLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	release, err := New(path).Acquire("run-1")
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestReleaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	release, err := New(path).Acquire("run-1")
	require.NoError(t, err)
	require.NoError(t, release())
	require.NoError(t, release(), "double release is harmless")
}
