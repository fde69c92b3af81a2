package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/epicourier-team/epicourier-backend/config"
)

// ErrLLMUnavailable is returned when every configured provider failed.
var ErrLLMUnavailable = errors.New("all LLM providers unavailable")

// Message represents a message in a chat completion exchange.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured function invocation emitted by a model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes one callable function in JSON Schema terms.
type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatProvider is one hosted chat-completion backend.
type ChatProvider interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*Message, error)
}

// RestyProvider talks to an OpenAI-compatible chat completions endpoint.
type RestyProvider struct {
	name   string
	model  string
	client *resty.Client
}

// NewRestyProvider creates a chat provider from its endpoint configuration.
func NewRestyProvider(cfg config.ProviderConfig) *RestyProvider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetTimeout(cfg.Timeout)

	return &RestyProvider{
		name:   cfg.Name,
		model:  cfg.Model,
		client: client,
	}
}

func (p *RestyProvider) Name() string {
	return p.name
}

// Chat sends the request and returns the assistant message of the first choice.
func (p *RestyProvider) Chat(ctx context.Context, req *ChatRequest) (*Message, error) {
	body := map[string]interface{}{
		"model":    p.model,
		"messages": req.Messages,
	}
	if len(req.Tools) > 0 {
		body["tools"] = req.Tools
	}
	if req.ToolChoice != "" {
		body["tool_choice"] = req.ToolChoice
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}

	var result struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s request failed with status %d: %s", p.name, resp.StatusCode(), resp.String())
	}
	if result.Error != nil {
		return nil, fmt.Errorf("%s returned error: %s", p.name, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	return &result.Choices[0].Message, nil
}

// ProviderChain tries each provider in order and returns the first success.
type ProviderChain struct {
	providers []ChatProvider
	logger    *zap.Logger
}

// NewProviderChain builds a fallback chain over the given providers.
func NewProviderChain(logger *zap.Logger, providers ...ChatProvider) *ProviderChain {
	return &ProviderChain{providers: providers, logger: logger}
}

func (c *ProviderChain) Name() string {
	return "chain"
}

// Chat walks the chain. A provider error moves on to the next provider; only
// when every provider fails does the caller see ErrLLMUnavailable.
func (c *ProviderChain) Chat(ctx context.Context, req *ChatRequest) (*Message, error) {
	var lastErr error
	for _, p := range c.providers {
		msg, err := p.Chat(ctx, req)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		c.logger.Warn("chat provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, lastErr)
	}
	return nil, ErrLLMUnavailable
}

// ParseJSONContent unmarshals a model response that should be a JSON object,
// tolerating markdown code fences around it.
func ParseJSONContent(content string, out interface{}) error {
	return json.Unmarshal([]byte(stripCodeFence(content)), out)
}

func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}
