package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint,
// such as a vLLM server.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8000/v1.
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Stop        []string

	// Timeout bounds each HTTP call. Zero means no timeout; cancellation
	// comes from the caller's context.
	Timeout time.Duration
}

// OpenAIBackend implements Backend against /chat/completions.
type OpenAIBackend struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	stop        []string
	client      *http.Client
}

// NewOpenAIBackend creates a backend for config.
// If config.APIKey is empty, it falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIBackend(config OpenAIConfig) *OpenAIBackend {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	model := config.Model
	if model == "" {
		model = openAIDefaultModel
	}

	return &OpenAIBackend{
		endpoint:    strings.TrimRight(config.BaseURL, "/") + "/chat/completions",
		apiKey:      apiKey,
		model:       model,
		temperature: config.Temperature,
		stop:        config.Stop,
		client:      &http.Client{Timeout: config.Timeout},
	}
}

// Endpoint returns the full completions URL.
func (b *OpenAIBackend) Endpoint() string {
	return b.endpoint
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete implements Backend.
func (b *OpenAIBackend) Complete(ctx context.Context, prompt Prompt) (string, error) {
	reqBody := chatRequest{
		Model:       b.model,
		Messages:    prompt,
		Temperature: b.temperature,
		Stop:        b.stop,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
