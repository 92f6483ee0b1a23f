// Package aigen is the AI-generation boundary: it turns a natural-language
// request into a card definition through an LLM, then independently
// validates the returned payload. Nothing downstream ever trusts the
// generator; tier-2 source still goes through the full compile pipeline.
package aigen

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// LLMClient is the slice of model capability this package needs. The
// real implementation is GeminiClient; tests substitute a fake.
type LLMClient interface {
	// CompleteJSON sends a system and user prompt and returns the raw
	// model text, requested in JSON mode.
	CompleteJSON(ctx context.Context, system, user string) (string, error)

	// Embed returns an embedding vector for the text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiClient implements LLMClient against the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	model      string
	embedModel string
}

// NewGeminiClient builds a client. Model names fall back to the defaults
// when empty.
func NewGeminiClient(apiKey, model, embedModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if embedModel == "" {
		embedModel = "gemini-embedding-001"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, embedModel: embedModel}, nil
}

// CompleteJSON asks the model for a JSON response. Temperature is kept
// low: card payloads are structured output, not prose.
func (g *GeminiClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{
			genai.NewContentFromText(user, genai.RoleUser),
		},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			Temperature:       genai.Ptr(float32(0.2)),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return text, nil
}

// Embed generates an embedding for a single text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := g.client.Models.EmbedContent(ctx,
		g.embedModel,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}

	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
