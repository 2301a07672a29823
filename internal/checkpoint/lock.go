package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"chronicle/internal/fileutil"
)

// ErrInputLocked reports that another process is enriching the same input.
var ErrInputLocked = errors.New("input is being processed by another chronicle process")

// InputKey identifies an archive by the SHA-256 of its content.
func InputKey(archivePath string) (string, error) {
	key, err := fileutil.HashFile(archivePath)
	if err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	return key, nil
}

// InputLock guards one input against concurrent runs.
type InputLock struct {
	lock *flock.Flock
}

// LockInput takes the per-input lock under stateDir without blocking.
func LockInput(stateDir, inputKey string) (*InputLock, error) {
	dir := filepath.Join(stateDir, "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}
	name := inputKey
	if len(name) > 16 {
		name = name[:16]
	}
	lock := flock.New(filepath.Join(dir, name+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire input lock: %w", err)
	}
	if !ok {
		return nil, ErrInputLocked
	}
	return &InputLock{lock: lock}, nil
}

// Path returns the lock file location.
func (l *InputLock) Path() string { return l.lock.Path() }

// Unlock releases the lock.
func (l *InputLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
