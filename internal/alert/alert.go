// Package alert notifies an operator about conditions that need attention:
// gateway auth failures, repeated provider exhaustion, daemon start/stop.
// Alerts are operator telemetry, never reply delivery.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Notifier delivers one alert message to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, message string) error
}

// Manager fans an alert out to every configured notifier, with a per-key
// cooldown so a condition that repeats every cycle does not spam.
type Manager struct {
	notifiers []Notifier
	cooldown  time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

func NewManager(cooldown time.Duration, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		cooldown:  cooldown,
		lastSent:  make(map[string]time.Time),
		now:       time.Now,
	}
}

// Alert sends a message under a dedup key. Repeats within the cooldown are
// dropped. Delivery failures are logged, never propagated; alerting is
// best effort.
func (m *Manager) Alert(ctx context.Context, key, message string) {
	if len(m.notifiers) == 0 {
		return
	}

	m.mu.Lock()
	now := m.now()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		return
	}
	m.lastSent[key] = now
	m.mu.Unlock()

	for _, n := range m.notifiers {
		if err := n.Notify(ctx, message); err != nil {
			slog.Warn("Alert delivery failed", "notifier", n.Name(), "key", key, "error", err)
		}
	}
}
