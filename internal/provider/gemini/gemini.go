package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type Provider struct {
	client *genai.Client
	model  string
}

func New(apiKey, model string) (*Provider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	tokens := int32(maxTokens)
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: tokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			text += part.Text
		}
	}
	return text, nil
}
