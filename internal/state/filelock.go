package state

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileLock guards the state document against two daemon processes sharing
// one workspace on the same host. It is advisory and local only;
// cross-host single-instance remains the operator's responsibility.
type FileLock struct {
	fileLock   *flock.Flock
	lockPath   string
	acquiredAt time.Time
	mu         sync.Mutex
}

type FileLockConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

// AcquireFileLock takes the lock next to the state document, retrying on a
// fixed cadence until the budget runs out.
func AcquireFileLock(statePath string, cfg FileLockConfig) (*FileLock, error) {
	lockPath := statePath + ".lock"
	fl := &FileLock{
		fileLock: flock.New(lockPath),
		lockPath: lockPath,
	}

	deadline := time.Now().Add(cfg.LockTimeout)
	for i := 0; i < cfg.LockMaxRetry; i++ {
		locked, err := fl.fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("attempt state lock: %w", err)
		}
		if locked {
			fl.acquiredAt = time.Now()
			slog.Info("State lock acquired", "path", lockPath)
			return fl, nil
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(cfg.LockRetry)
	}

	return nil, fmt.Errorf("state file %s is locked by another instance (timeout after %v)", statePath, cfg.LockTimeout)
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		return
	}

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release state lock", "path", fl.lockPath, "error", err)
	} else {
		slog.Info("State lock released",
			"path", fl.lockPath,
			"held_duration_ms", time.Since(fl.acquiredAt).Milliseconds(),
		)
	}
	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.fileLock != nil
}

// CleanupStaleLock removes a lock file older than maxAge. A crashed daemon
// leaves its lock behind; flock itself releases on process exit, so an old
// file is only ever debris.
func CleanupStaleLock(statePath string, maxAge time.Duration) error {
	lockPath := statePath + ".lock"
	info, err := os.Stat(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	age := time.Since(info.ModTime())
	if age <= maxAge {
		return nil
	}

	slog.Warn("Removing stale state lock", "path", lockPath, "age", age, "max_age", maxAge)
	if err := os.Remove(lockPath); err != nil {
		return err
	}
	return nil
}
