package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"ArxivDigest/internal/triage"
)

// GeminiClient implements triage.Oracle via the Google GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
}

var _ triage.Oracle = (*GeminiClient)(nil)

// NewGeminiClient dials the Gemini API with the given key.
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float64) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

// Name reports the underlying model identifier.
func (c *GeminiClient) Name() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete sends the user prompt with a system instruction and returns
// the generated text.
func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("gemini client is nil")
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if c.temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(c.temperature))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini response contains no text")
	}
	return text, nil
}
