package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.CompletionAdapter = (*OpenRouterAdapter)(nil)

// OpenRouterAdapter implements adapter.CompletionAdapter against OpenRouter's
// OpenAI-compatible gateway. Base URL defaults to https://openrouter.ai/api/v1.
// Chat completions path is the same as OpenAI: /chat/completions
// Authorization: Bearer <OPENROUTER_API_KEY>
type OpenRouterAdapter struct {
	apiKey      string
	base        string // e.g., https://openrouter.ai/api/v1
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewOpenRouterAdapter(apiKey, base string, temperature float64, maxTokens int, timeout time.Duration) (*OpenRouterAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openrouter api key empty")
	}
	if base == "" {
		base = "https://openrouter.ai/api/v1"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OpenRouterAdapter{
		apiKey:      apiKey,
		base:        strings.TrimRight(base, "/"),
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (o *OpenRouterAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := o.ChatWithUsage(ctx, model, messages)
	return reply, err
}

func (o *OpenRouterAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	reqBody := struct {
		Model       string            `json:"model"`
		Messages    []adapter.Message `json:"messages"`
		Temperature float64           `json:"temperature"`
		MaxTokens   int               `json:"max_tokens"`
	}{Model: model, Messages: messages, Temperature: o.temperature, MaxTokens: o.maxTokens}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", adapter.Usage{}, &domain.UpstreamError{Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", adapter.Usage{}, &domain.UpstreamError{Status: resp.StatusCode, Detail: string(detail)}
	}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", adapter.Usage{}, &domain.UpstreamError{Detail: "malformed response: " + err.Error()}
	}
	usage := adapter.Usage{
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		TotalTokens:      payload.Usage.TotalTokens,
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, usage, nil
		}
	}
	return "", usage, &domain.UpstreamError{Detail: "no choice content"}
}

func (o *OpenRouterAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return estimateTokens(model, messages)
}
