// internal/provider/openai.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// openAIBackend implements Backend for OpenAI-compatible chat completion
// APIs. Works against api.openai.com and any server speaking the same
// /chat/completions contract.
type openAIBackend struct {
	name             string
	baseURL          string
	apiKey           string
	model            string
	client           *http.Client
	maxResponseBytes int64
}

// NewOpenAI creates a backend for an OpenAI-compatible endpoint.
func NewOpenAI(name, baseURL, apiKey, model string, timeout time.Duration) Backend {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &openAIBackend{
		name:             name,
		baseURL:          baseURL,
		apiKey:           apiKey,
		model:            model,
		maxResponseBytes: 4 * 1024 * 1024,
		client:           &http.Client{Timeout: timeout},
	}
}

func (b *openAIBackend) Name() string { return b.name }

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (b *openAIBackend) Complete(ctx context.Context, req *Request) (*Response, error) {
	// System prompt becomes the leading message in this wire format.
	messages := make([]openAIChatMessage, 0, len(req.Turns)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openAIChatMessage{Role: RoleSystem, Content: req.SystemPrompt})
	}
	for _, t := range req.Turns {
		messages = append(messages, openAIChatMessage{Role: t.Role, Content: t.Content})
	}

	body, err := json.Marshal(openAIChatRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", b.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", b.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

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
		var errBody openAIErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err != nil {
			return nil, fmt.Errorf("%s error status %d", b.name, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s error: %s (type=%s)", b.name, errBody.Error.Message, errBody.Error.Type)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", b.name, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%s response had no choices", b.name)
	}
	// Content-filtered completions carry no usable text; treat as failure
	// so the gateway can fall back.
	if parsed.Choices[0].FinishReason == "content_filter" {
		return nil, fmt.Errorf("%s response blocked by content filter", b.name)
	}

	return &Response{
		Text:       parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

// readLimited reads the body up to limit bytes, erroring on overflow so an
// oversized upstream reply cannot exhaust memory.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeded limit (%d bytes)", limit)
	}
	return body, nil
}
