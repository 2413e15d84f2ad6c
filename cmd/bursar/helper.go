package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/bursar/internal/config"
	"github.com/harunnryd/bursar/internal/credentials"
	"github.com/harunnryd/bursar/internal/daemon/components"
	"github.com/harunnryd/bursar/internal/gateway"
)

// withPoller assembles the poll engine and its prerequisites for foreground
// commands, releasing the state lock when fn returns.
func withPoller(ctx context.Context, fn func(context.Context, *components.PollerComponent) error) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	stateComp := components.NewStateStoreComponent(cfg)
	if err := stateComp.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}
	defer stateComp.Stop(context.Background())

	alertsComp := components.NewAlertsComponent(cfg)
	if err := alertsComp.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize alerts: %w", err)
	}

	pollerComp := components.NewPollerComponent(cfg, stateComp, alertsComp)
	if err := pollerComp.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize poller: %w", err)
	}

	return fn(ctx, pollerComp)
}

// gatewayClient builds a client from the resolved credentials for read-only
// inspection commands.
func gatewayClient() (*gateway.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	creds, err := credentials.Resolve(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve gateway credentials: %w", err)
	}

	timeout, err := config.DurationOrDefault(cfg.Gateway.Timeout, config.DefaultGatewayTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse gateway timeout: %w", err)
	}

	return gateway.NewClient(creds, timeout), nil
}
