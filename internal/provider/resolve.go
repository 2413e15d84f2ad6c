package provider

import (
	"log/slog"

	"github.com/harunnryd/bursar/internal/config"
	bursarErrors "github.com/harunnryd/bursar/internal/errors"
)

// Environment-probe fallbacks, tried in order when nothing else names a
// model.
var envProbes = []struct {
	kind  string
	model string
}{
	{KindAnthropic, "claude-sonnet-4-5"},
	{KindOpenAI, "gpt-4"},
	{KindGemini, "gemini-2.0-flash"},
}

// ResolveModel walks the selection chain: explicit override > roster
// per-agent model > roster/config default > first provider kind with a
// credential. An empty result is a fatal configuration error.
func ResolveModel(cfg *config.Config, roster Roster, agentID string) (string, error) {
	if cfg.Models.Override != "" {
		slog.Debug("Model from explicit override", "model", cfg.Models.Override)
		return cfg.Models.Override, nil
	}

	if model := roster.ModelFor(agentID); model != "" {
		slog.Debug("Model from roster", "agent_id", agentID, "model", model)
		return model, nil
	}

	if cfg.Models.Default != "" {
		slog.Debug("Model from config default", "model", cfg.Models.Default)
		return cfg.Models.Default, nil
	}

	for _, probe := range envProbes {
		if cfg.Provider(probe.kind).APIKey != "" {
			slog.Debug("Model from credential probe", "kind", probe.kind, "model", probe.model)
			return probe.model, nil
		}
	}

	return "", bursarErrors.Configuration("no model specified and no provider credential found (set --model or a provider API key)")
}

// Resolve runs the full chain and constructs the provider for the winning
// model.
func Resolve(cfg *config.Config, agentID string) (Provider, string, error) {
	roster, err := LoadRoster(cfg.Models.RosterPath)
	if err != nil {
		return nil, "", err
	}

	model, err := ResolveModel(cfg, roster, agentID)
	if err != nil {
		return nil, "", err
	}

	p, err := New(cfg, model)
	if err != nil {
		return nil, "", err
	}

	slog.Info("Provider resolved", "provider", p.Name(), "model", CleanModel(model))
	return p, CleanModel(model), nil
}
