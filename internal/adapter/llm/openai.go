package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"codeagent/internal/domain"
	"codeagent/internal/retry"
)

// OpenAIChat talks to any OpenAI-compatible chat completion endpoint.
type OpenAIChat struct {
	api         *openai.Client
	model       string
	temperature float32
	retryCfg    retry.Config
}

func NewGroqChat(apiKeyEnv, model string, temperature float32) (*OpenAIChat, error) {
	return NewOpenAICompatibleChat(apiKeyEnv, model, "https://api.groq.com/openai/v1", temperature)
}

func NewOpenAIChat(apiKeyEnv, model string, temperature float32) (*OpenAIChat, error) {
	return NewOpenAICompatibleChat(apiKeyEnv, model, "https://api.openai.com/v1", temperature)
}

func NewOllamaChat(model, baseURL string, temperature float32) (*OpenAIChat, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}

	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = baseURL

	return &OpenAIChat{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		retryCfg:    retry.DefaultConfig(),
	}, nil
}

func NewOpenAICompatibleChat(apiKeyEnv, model, baseURL string, temperature float32) (*OpenAIChat, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, domain.NewConfigError(apiKeyEnv, "environment variable is not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &OpenAIChat{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		retryCfg:    retry.DefaultConfig(),
	}, nil
}

// Generate runs a single system+user exchange and returns the text reply.
func (c *OpenAIChat) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}

	reply, err := c.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// Complete sends the full message history and returns the assistant reply.
func (c *OpenAIChat) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (openai.ChatCompletionMessage, error) {
	return c.complete(ctx, messages, nil)
}

// CompleteWithTools exposes the given tools to the model; the reply may
// carry tool calls instead of content.
func (c *OpenAIChat) CompleteWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	return c.complete(ctx, messages, tools)
}

func (c *OpenAIChat) complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	if len(tools) > 0 {
		req.Tools = tools
	}

	var resp openai.ChatCompletionResponse
	err := retry.Do(ctx, c.retryCfg, func() error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return wrapServiceError("chat", callErr)
		}
		return nil
	})
	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}

	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message, nil
}

func (c *OpenAIChat) ModelName() string {
	return c.model
}

func wrapServiceError(service string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ServiceError{Service: service, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	return &domain.ServiceError{Service: service, Err: err}
}
