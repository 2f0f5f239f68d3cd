package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LockFileName is created in the target directory for the duration of a run.
const LockFileName = ".narrator.lock"

// ErrLocked is returned when another run holds the target directory.
var ErrLocked = errors.New("output directory is locked by another run")

type dirLock struct {
	fs   afero.Fs
	path string
}

func acquireLock(fs afero.Fs, dir, runID string) (*dirLock, error) {
	path := filepath.Join(dir, LockFileName)
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		owner, _ := afero.ReadFile(fs, path)
		return nil, fmt.Errorf("%w: %s held by run %q; remove it if that run is no longer active", ErrLocked, path, owner)
	}
	if err != nil {
		return nil, fmt.Errorf("create lock %s: %w", path, err)
	}
	if _, err := f.WriteString(runID); err != nil {
		f.Close()
		fs.Remove(path) //nolint:errcheck
		return nil, fmt.Errorf("write lock %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write lock %s: %w", path, err)
	}
	return &dirLock{fs: fs, path: path}, nil
}

func (l *dirLock) release() error {
	return l.fs.Remove(l.path)
}
