package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/bursar/internal/config"
	bursarErrors "github.com/harunnryd/bursar/internal/errors"
	anthropicProvider "github.com/harunnryd/bursar/internal/provider/anthropic"
	geminiProvider "github.com/harunnryd/bursar/internal/provider/gemini"
	openaiProvider "github.com/harunnryd/bursar/internal/provider/openai"
)

// Provider generates text from a prompt within a token budget. One
// implementation per backend kind; selection happens once at startup.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Provider kinds.
const (
	KindAnthropic        = "anthropic"
	KindOpenAI           = "openai"
	KindGemini           = "gemini"
	KindOpenAICompatible = "openai-compatible"
)

// DetectKind maps a model name to its provider kind. Unknown names are
// treated as OpenAI-compatible, the broadest wire format.
func DetectKind(model string) string {
	lower := strings.ToLower(model)

	switch {
	case strings.Contains(lower, "claude"), strings.HasPrefix(lower, "anthropic/"):
		return KindAnthropic
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "openai/"):
		return KindOpenAI
	case strings.HasPrefix(lower, "gemini"), strings.HasPrefix(lower, "google/"):
		return KindGemini
	default:
		return KindOpenAICompatible
	}
}

// CleanModel strips a provider-routing prefix from a model name.
func CleanModel(model string) string {
	for _, prefix := range []string{"anthropic/", "openai/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// New builds the concrete provider for a model using the configured
// per-provider credentials. A missing API key is fatal: without it the
// daemon cannot answer anything.
func New(cfg *config.Config, model string) (Provider, error) {
	kind := DetectKind(model)
	cleaned := CleanModel(model)

	switch kind {
	case KindAnthropic:
		settings := cfg.Provider(KindAnthropic)
		if settings.APIKey == "" {
			return nil, bursarErrors.Configuration("anthropic API key not set (ANTHROPIC_API_KEY)")
		}
		return anthropicProvider.New(settings.APIKey, cleaned), nil

	case KindOpenAI:
		settings := cfg.Provider(KindOpenAI)
		if settings.APIKey == "" {
			return nil, bursarErrors.Configuration("openai API key not set (OPENAI_API_KEY)")
		}
		return openaiProvider.New(settings.APIKey, settings.BaseURL, cleaned), nil

	case KindGemini:
		settings := cfg.Provider(KindGemini)
		if settings.APIKey == "" {
			return nil, bursarErrors.Configuration("gemini API key not set (GEMINI_API_KEY)")
		}
		p, err := geminiProvider.New(settings.APIKey, cleaned)
		if err != nil {
			return nil, bursarErrors.Wrap(err, "create gemini provider")
		}
		return p, nil

	case KindOpenAICompatible:
		settings := cfg.Provider(KindOpenAICompatible)
		if settings.APIKey == "" {
			// The compatible path shares OpenAI's wire format and often
			// its key variable.
			settings.APIKey = cfg.Provider(KindOpenAI).APIKey
		}
		if settings.APIKey == "" {
			return nil, bursarErrors.Configuration(fmt.Sprintf("no API key configured for openai-compatible model %s", model))
		}
		return openaiProvider.New(settings.APIKey, settings.BaseURL, cleaned), nil

	default:
		return nil, bursarErrors.Configuration("unknown provider kind: " + kind)
	}
}
