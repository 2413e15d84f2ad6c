package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type Provider struct {
	client *openai.Client
	model  string
	name   string
}

// New builds an OpenAI-backed provider. A non-empty baseURL points the same
// wire format at any OpenAI-compatible endpoint.
func New(apiKey, baseURL, model string) *Provider {
	cfg := openai.DefaultConfig(apiKey)
	name := "openai"
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
		name = "openai-compatible"
	}

	return &Provider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
