package provider

import (
	"context"
	"fmt"

	bursarErrors "github.com/harunnryd/bursar/internal/errors"
	"github.com/harunnryd/bursar/internal/retry"
)

// Generator wraps a Provider with the daemon's bounded retry policy and a
// fixed token budget. Exhaustion surfaces as ErrProvider; the caller decides
// whether to skip or post a fallback.
type Generator struct {
	provider  Provider
	maxTokens int
	retry     retry.Policy
}

func NewGenerator(p Provider, maxTokens int) *Generator {
	return &Generator{
		provider:  p,
		maxTokens: maxTokens,
		retry:     retry.Default(),
	}
}

func (g *Generator) Name() string {
	return g.provider.Name()
}

// Generate runs the prompt through the provider, retrying per policy.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var text string

	err := g.retry.Do(ctx, "provider generate", func(ctx context.Context) error {
		out, genErr := g.provider.Generate(ctx, prompt, g.maxTokens)
		if genErr != nil {
			return genErr
		}
		text = out
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s generation failed: %v: %w", g.provider.Name(), err, bursarErrors.ErrProvider)
	}
	return text, nil
}
