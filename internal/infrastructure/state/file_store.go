// Package state persists sync state between runs. The store is a single small
// JSON document; nothing here needs a database.
package state

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/matchcal/matchcal/internal/domain/syncstate"
)

// FileStore reads and writes the state document at a fixed path. Writes go
// through a temp file and rename so a crash mid-write never leaves a torn
// document behind.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the zero state when no document exists yet; that forces a full
// reconciliation, which is the right behavior for a first run.
func (s *FileStore) Load(_ context.Context) (syncstate.State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return syncstate.State{}, nil
		}
		return syncstate.State{}, crerr.Wrapf(err, "read state file %s", s.path)
	}

	var st syncstate.State
	if err := sonic.Unmarshal(raw, &st); err != nil {
		return syncstate.State{}, crerr.Wrapf(err, "decode state file %s", s.path)
	}
	return st, nil
}

func (s *FileStore) Save(_ context.Context, st syncstate.State) error {
	raw, err := sonic.MarshalIndent(st, "", "  ")
	if err != nil {
		return crerr.Wrap(err, "encode state")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return crerr.Wrapf(err, "create state dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".sync_state-*.json")
	if err != nil {
		return crerr.Wrap(err, "create temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return crerr.Wrap(err, "write temp state file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return crerr.Wrap(err, "close temp state file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return crerr.Wrapf(err, "replace state file %s", s.path)
	}
	return nil
}
