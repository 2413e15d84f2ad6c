package components

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/bursar/internal/compose"
	"github.com/harunnryd/bursar/internal/config"
	"github.com/harunnryd/bursar/internal/credentials"
	"github.com/harunnryd/bursar/internal/daemon"
	"github.com/harunnryd/bursar/internal/gateway"
	"github.com/harunnryd/bursar/internal/poll"
	"github.com/harunnryd/bursar/internal/provider"

	"github.com/philippgille/chromem-go"
)

// PollerComponent wires the poll engine: gateway client from the
// credentials document, resolved model provider, optional memory index, and
// the state store and alerts from sibling components.
type PollerComponent struct {
	cfg        *config.Config
	stateComp  *StateStoreComponent
	alertsComp *AlertsComponent

	engine *poll.Engine
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.RWMutex
}

func NewPollerComponent(cfg *config.Config, stateComp *StateStoreComponent, alertsComp *AlertsComponent) *PollerComponent {
	return &PollerComponent{
		cfg:        cfg,
		stateComp:  stateComp,
		alertsComp: alertsComp,
	}
}

func (p *PollerComponent) Name() string {
	return "Poller"
}

func (p *PollerComponent) Dependencies() []string {
	return []string{"StateStore", "Alerts"}
}

func (p *PollerComponent) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	store := p.stateComp.GetStore()
	if store == nil {
		return fmt.Errorf("state store not initialized")
	}

	creds, err := credentials.Resolve(p.cfg)
	if err != nil {
		return fmt.Errorf("resolve gateway credentials: %w", err)
	}

	timeout, err := config.DurationOrDefault(p.cfg.Gateway.Timeout, config.DefaultGatewayTimeout)
	if err != nil {
		return fmt.Errorf("parse gateway timeout: %w", err)
	}
	client := gateway.NewClient(creds, timeout)

	prov, model, err := provider.Resolve(p.cfg, creds.AgentID)
	if err != nil {
		return fmt.Errorf("resolve model provider: %w", err)
	}
	gen := provider.NewGenerator(prov, p.cfg.Models.MaxTokens)

	memIndex, err := p.buildMemoryIndex(ctx)
	if err != nil {
		// The index is an enhancement; head truncation still works.
		slog.Warn("Memory index unavailable, falling back to head excerpt", "error", err)
		memIndex = nil
	}

	opts := poll.Options{
		Schedule:       p.cfg.Poll.Schedule,
		KickBuffer:     p.cfg.Poll.KickBuffer,
		AgentID:        creds.AgentID,
		Context:        p.cfg.Context,
		MemoryMaxChars: p.cfg.Context.MemoryMaxChars,
		FallbackReply:  p.cfg.Models.FallbackReply,
	}
	if memIndex != nil {
		opts.MemoryIndex = memIndex
	}

	engine, err := poll.NewEngine(client, gen, store, p.alertsComp.GetManager(), opts)
	if err != nil {
		return fmt.Errorf("build poll engine: %w", err)
	}

	p.engine = engine
	slog.Info("Poller initialized",
		"component", p.Name(),
		"agent_id", creds.AgentID,
		"provider", prov.Name(),
		"model", model,
		"schedule", p.cfg.Poll.Schedule,
	)
	return nil
}

func (p *PollerComponent) buildMemoryIndex(ctx context.Context) (*compose.MemoryIndex, error) {
	if !p.cfg.Context.MemoryIndex {
		return nil, nil
	}

	dir := p.cfg.Context.MemoryIndexDir
	if dir == "" {
		dir = filepath.Join(p.cfg.Context.Workspace, ".memory-index")
	}

	ix, err := compose.NewMemoryIndex(dir, chromem.NewEmbeddingFuncDefault())
	if err != nil {
		return nil, err
	}

	docs := compose.LoadDocuments(p.cfg.Context)
	rebuildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := ix.Rebuild(rebuildCtx, docs.Memory); err != nil {
		return nil, err
	}
	return ix, nil
}

func (p *PollerComponent) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine == nil {
		return fmt.Errorf("poller not initialized")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if err := p.engine.Run(runCtx); err != nil {
			slog.Error("Poll loop exited with error", "component", p.Name(), "error", err)
		}
	}()

	slog.Info("Poller started", "component", p.Name())
	return nil
}

func (p *PollerComponent) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		slog.Info("Poller not started, skipping stop", "component", p.Name())
		return nil
	}

	p.cancel()
	select {
	case <-p.done:
		slog.Info("Poller stopped", "component", p.Name())
	case <-ctx.Done():
		return fmt.Errorf("poller stop cancelled: %w", ctx.Err())
	}

	p.cancel = nil
	p.done = nil
	return nil
}

func (p *PollerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.engine == nil {
		return &daemon.ComponentHealth{
			Name:    p.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !p.engine.IsRunning() {
		return &daemon.ComponentHealth{
			Name:    p.Name(),
			Healthy: false,
			Error:   fmt.Errorf("poll loop not running"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    p.Name(),
		Healthy: true,
	}, nil
}

func (p *PollerComponent) GetEngine() *poll.Engine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine
}
