package completion

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client. It only
// covers the API call itself; prompt content and output parsing belong to
// callers.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a Gemini-backed completion client. The API key is
// read from the environment by the genai client.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("completion: new gemini client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

// Name identifies the provider and model for logging.
func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

// Complete sends the system and user prompts and returns the raw text of
// the first candidate.
func (g *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: userPrompt}}}},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("completion: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrUnavailable
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
