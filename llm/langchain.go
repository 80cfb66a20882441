package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChainModel adapts a langchaingo llms.Model to the Model interface,
// so any provider langchaingo supports can drive the pipeline.
type LangChainModel struct {
	model llms.Model
}

var _ Model = (*LangChainModel)(nil)

// NewLangChainModel wraps a langchaingo model.
func NewLangChainModel(model llms.Model) *LangChainModel {
	return &LangChainModel{model: model}
}

// Generate renders a completion for the prompt.
func (m *LangChainModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := m.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("langchain generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Content, nil
}
