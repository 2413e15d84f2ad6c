package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := NewStore(path)
	require.NoError(t, err)

	assert.True(t, s.Get("req-1").IsZero())

	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Advance("req-1", t1))
	assert.Equal(t, t1, s.Get("req-1"))

	// A second store over the same document sees the persisted watermark.
	reloaded, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, t1, reloaded.Get("req-1"))
	assert.Equal(t, 1, reloaded.Tracked())
}

func TestAdvanceIsMonotonic(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	t2 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t1 := t2.Add(-time.Hour)

	require.NoError(t, s.Advance("req-1", t2))
	require.NoError(t, s.Advance("req-1", t1))
	assert.Equal(t, t2, s.Get("req-1"), "watermark must never move backward")

	require.NoError(t, s.Advance("req-1", t2))
	assert.Equal(t, t2, s.Get("req-1"))
}

func TestCorruptDocumentFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewStore(path)
	require.NoError(t, err, "corrupt state must not prevent startup")
	assert.True(t, s.Get("req-1").IsZero())
	assert.Equal(t, 0, s.Tracked())

	// The store is writable again after the fail-open load.
	require.NoError(t, s.Advance("req-1", time.Now()))
}

func TestFlushRecordsLastPoll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	assert.True(t, s.LastPoll().IsZero())

	now := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Flush(now))

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, now, reloaded.LastPoll())
}

func TestFileLockExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	cfg := FileLockConfig{
		LockTimeout:  200 * time.Millisecond,
		LockRetry:    10 * time.Millisecond,
		LockMaxRetry: 5,
	}

	first, err := AcquireFileLock(path, cfg)
	require.NoError(t, err)
	defer first.Unlock()
	assert.True(t, first.IsLocked())

	_, err = AcquireFileLock(path, cfg)
	assert.Error(t, err, "second holder must be rejected while the lock is held")

	first.Unlock()
	assert.False(t, first.IsLocked())

	second, err := AcquireFileLock(path, cfg)
	require.NoError(t, err)
	second.Unlock()
}

func TestCleanupStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	lockPath := path + ".lock"
	require.NoError(t, os.WriteFile(lockPath, nil, 0644))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	require.NoError(t, CleanupStaleLock(path, 15*time.Minute))
	_, err := os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))

	// Fresh locks stay put.
	require.NoError(t, os.WriteFile(lockPath, nil, 0644))
	require.NoError(t, CleanupStaleLock(path, 15*time.Minute))
	_, err = os.Stat(lockPath)
	assert.NoError(t, err)
}
