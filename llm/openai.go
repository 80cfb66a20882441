package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel implements Model using the OpenAI chat completion API (or any
// compatible endpoint via a custom base URL).
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// OpenAIOption configures the OpenAIModel.
type OpenAIOption func(*OpenAIModel)

// WithModel sets the model name.
func WithModel(model string) OpenAIOption {
	return func(m *OpenAIModel) {
		m.model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float32) OpenAIOption {
	return func(m *OpenAIModel) {
		m.temperature = temperature
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int) OpenAIOption {
	return func(m *OpenAIModel) {
		m.maxTokens = maxTokens
	}
}

// NewOpenAIModel creates a chat-completion model client.
func NewOpenAIModel(apiKey, baseURL string, opts ...OpenAIOption) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	m := &OpenAIModel{
		client:      openai.NewClientWithConfig(cfg),
		model:       openai.GPT4oMini,
		temperature: 0.3,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Generate renders a completion for the prompt.
func (m *OpenAIModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
