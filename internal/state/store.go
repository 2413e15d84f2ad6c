package state

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bursarErrors "github.com/harunnryd/bursar/internal/errors"

	"github.com/natefinch/atomic"
)

// document is the on-disk shape: request id -> newest answered inbound
// timestamp, plus the time of the last completed poll cycle.
type document struct {
	LastChecks map[string]time.Time `json:"last_checks"`
	LastPoll   time.Time            `json:"last_poll"`
}

// Store is the dedup watermark store. Every mutation is persisted
// immediately with an atomic temp-file+rename write, so a crash leaves
// either the old document or the new one, never a torn file.
type Store struct {
	path  string
	state document
	mu    sync.RWMutex
}

// NewStore loads the document at path. A missing file is an empty store; a
// corrupt one is logged and treated as empty (a possible duplicate reply
// beats refusing to run).
func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		state: document{
			LastChecks: make(map[string]time.Time),
		},
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, bursarErrors.Wrap(err, "create state directory")
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		slog.Warn("State document unreadable, starting empty",
			"path", s.path,
			"error", bursarErrors.Wrap(err, bursarErrors.ErrState.Error()),
		)
		return
	}
	if len(data) == 0 {
		return
	}

	var loaded document
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("State document corrupt, starting empty",
			"path", s.path,
			"error", bursarErrors.Wrap(err, bursarErrors.ErrState.Error()),
		)
		return
	}
	if loaded.LastChecks == nil {
		loaded.LastChecks = make(map[string]time.Time)
	}
	s.state = loaded
}

// Get returns the watermark for a request id, zero time when the id has
// never been answered.
func (s *Store) Get(requestID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastChecks[requestID]
}

// Advance raises the watermark for a request id and persists immediately.
// Watermarks are monotonic: a timestamp at or below the stored one is a
// no-op, so a re-surfaced request can never regress.
func (s *Store) Advance(requestID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.state.LastChecks[requestID]; ok && !ts.After(current) {
		return nil
	}
	s.state.LastChecks[requestID] = ts
	return s.save()
}

// Flush records the completion of a poll cycle and persists.
func (s *Store) Flush(pollTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LastPoll = pollTime
	return s.save()
}

// LastPoll reports when the last cycle completed, zero before the first one.
func (s *Store) LastPoll() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastPoll
}

// Tracked reports how many request ids carry a watermark.
func (s *Store) Tracked() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.LastChecks)
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return bursarErrors.Wrap(err, "encode state document")
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return bursarErrors.Wrap(err, "write state document")
	}
	return nil
}
