// internal/provider/anthropic.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// anthropicBackend implements Backend for the Anthropic Messages API.
// System text travels as a top-level field rather than a leading message.
type anthropicBackend struct {
	name             string
	baseURL          string
	apiKey           string
	model            string
	client           *http.Client
	maxResponseBytes int64
}

const anthropicVersion = "2023-06-01"

// NewAnthropic creates a backend for the Anthropic Messages API.
func NewAnthropic(name, baseURL, apiKey, model string, timeout time.Duration) Backend {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &anthropicBackend{
		name:             name,
		baseURL:          baseURL,
		apiKey:           apiKey,
		model:            model,
		maxResponseBytes: 4 * 1024 * 1024,
		client:           &http.Client{Timeout: timeout},
	}
}

func (b *anthropicBackend) Name() string { return b.name }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *anthropicBackend) Complete(ctx context.Context, req *Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		// The Messages API requires max_tokens; pick a ceiling generous
		// enough for every matcher prompt.
		maxTokens = 1024
	}

	messages := make([]anthropicMessage, 0, len(req.Turns))
	for _, t := range req.Turns {
		messages = append(messages, anthropicMessage{Role: t.Role, Content: t.Content})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       b.model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", b.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", b.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", b.name, err)
	}
	defer resp.Body.Close()

	respBody, err := readLimited(resp.Body, b.maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", b.name, err)
	}

	if resp.StatusCode >= 400 {
		var errBody anthropicErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err != nil {
			return nil, fmt.Errorf("%s error status %d", b.name, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s error: %s (type=%s)", b.name, errBody.Error.Message, errBody.Error.Type)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", b.name, err)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("%s response had no text content", b.name)
	}

	return &Response{
		Text:       text,
		TokensUsed: parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}, nil
}
