package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ArxivDigest/internal/triage"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements triage.Oracle against OpenAI-compatible chat
// completion APIs.
type OpenAIClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
}

var _ triage.Oracle = (*OpenAIClient)(nil)

// OpenAIOptions configures a chat completion client.
type OpenAIOptions struct {
	Endpoint    string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

// NewOpenAIClient builds a client from options, filling in the public
// OpenAI endpoint and a 60 second timeout when unset.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		endpoint:    endpoint,
		model:       opts.Model,
		apiKey:      opts.APIKey,
		temperature: opts.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Name reports the underlying model identifier.
func (c *OpenAIClient) Name() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete posts one system+user exchange and returns the assistant text.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("openai client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("openai client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
