package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/bursar/internal/alert"
	"github.com/harunnryd/bursar/internal/config"
	"github.com/harunnryd/bursar/internal/daemon"
)

// AlertsComponent assembles the operator notifiers from configuration. With
// nothing configured it still yields a working manager that drops alerts.
type AlertsComponent struct {
	cfg     *config.Config
	manager *alert.Manager
	mu      sync.RWMutex
}

func NewAlertsComponent(cfg *config.Config) *AlertsComponent {
	return &AlertsComponent{cfg: cfg}
}

func (a *AlertsComponent) Name() string {
	return "Alerts"
}

func (a *AlertsComponent) Dependencies() []string {
	return []string{}
}

func (a *AlertsComponent) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cooldown, err := config.DurationOrDefault(a.cfg.Alerts.Cooldown, config.DefaultAlertCooldown)
	if err != nil {
		return fmt.Errorf("parse alert cooldown: %w", err)
	}

	var notifiers []alert.Notifier

	if a.cfg.Alerts.Slack.Enabled {
		if a.cfg.Alerts.Slack.BotToken == "" || a.cfg.Alerts.Slack.Channel == "" {
			return fmt.Errorf("slack alerts enabled but bot_token or channel missing")
		}
		notifiers = append(notifiers, alert.NewSlackNotifier(a.cfg.Alerts.Slack.BotToken, a.cfg.Alerts.Slack.Channel))
	}

	if a.cfg.Alerts.Telegram.Enabled {
		n, err := alert.NewTelegramNotifier(a.cfg.Alerts.Telegram.BotToken, a.cfg.Alerts.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("init telegram notifier: %w", err)
		}
		notifiers = append(notifiers, n)
	}

	if a.cfg.Alerts.Command != "" {
		n, err := alert.NewCommandNotifier(a.cfg.Alerts.Command)
		if err != nil {
			return fmt.Errorf("init command notifier: %w", err)
		}
		notifiers = append(notifiers, n)
	}

	a.manager = alert.NewManager(cooldown, notifiers...)
	slog.Info("Alerts initialized", "component", a.Name(), "notifiers", len(notifiers), "cooldown", cooldown)
	return nil
}

func (a *AlertsComponent) Start(ctx context.Context) error {
	return nil
}

func (a *AlertsComponent) Stop(ctx context.Context) error {
	return nil
}

func (a *AlertsComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.manager == nil {
		return &daemon.ComponentHealth{
			Name:    a.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    a.Name(),
		Healthy: true,
	}, nil
}

func (a *AlertsComponent) GetManager() *alert.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.manager
}
