package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/bursar/internal/config"
	"github.com/harunnryd/bursar/internal/daemon"
	"github.com/harunnryd/bursar/internal/state"
)

// StateStoreComponent owns the dedup state document and its exclusive file
// lock. The lock guarantees a single daemon instance per state file.
type StateStoreComponent struct {
	cfg   *config.Config
	store *state.Store
	lock  *state.FileLock
	mu    sync.RWMutex
}

func NewStateStoreComponent(cfg *config.Config) *StateStoreComponent {
	return &StateStoreComponent{cfg: cfg}
}

func (s *StateStoreComponent) Name() string {
	return "StateStore"
}

func (s *StateStoreComponent) Dependencies() []string {
	return []string{}
}

func (s *StateStoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statePath := s.cfg.StatePath()

	lockTimeout, err := config.DurationOrDefault(s.cfg.State.LockTimeout, config.DefaultStateLockTimeout)
	if err != nil {
		return fmt.Errorf("parse state lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(s.cfg.State.LockRetry, config.DefaultStateLockRetry)
	if err != nil {
		return fmt.Errorf("parse state lock retry: %w", err)
	}
	lockMaxRetry := s.cfg.State.LockMaxRetry
	if lockMaxRetry <= 0 {
		lockMaxRetry = config.DefaultStateLockMaxRetry
	}

	lock, err := state.AcquireFileLock(statePath, state.FileLockConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: lockMaxRetry,
	})
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}

	store, err := state.NewStore(statePath)
	if err != nil {
		lock.Unlock()
		return fmt.Errorf("open state store: %w", err)
	}

	s.lock = lock
	s.store = store
	slog.Info("StateStore initialized", "component", s.Name(), "state_path", statePath, "tracked", store.Tracked())
	return nil
}

func (s *StateStoreComponent) Start(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.store == nil {
		return fmt.Errorf("state store not initialized")
	}
	return nil
}

func (s *StateStoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		s.lock.Unlock()
		s.lock = nil
		slog.Info("StateStore lock released", "component", s.Name())
	}
	return nil
}

func (s *StateStoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.store == nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if s.lock == nil || !s.lock.IsLocked() {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("state lock not held"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    s.Name(),
		Healthy: true,
	}, nil
}

func (s *StateStoreComponent) GetStore() *state.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}
