package embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
)

// LangChainEmbedder adapts a langchaingo embeddings.Embedder so any
// provider langchaingo supports can back the retrieval index.
type LangChainEmbedder struct {
	embedder embeddings.Embedder
}

// NewLangChainEmbedder wraps a langchaingo embedder.
func NewLangChainEmbedder(e embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{embedder: e}
}

// EmbedQuery embeds a single query string.
func (e *LangChainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("langchain query embedding failed: %w", err)
	}
	return vector, nil
}

// EmbedDocuments embeds a batch of texts.
func (e *LangChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("langchain document embedding failed: %w", err)
	}
	return vectors, nil
}
