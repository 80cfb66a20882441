package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smallnest/deepresearch/rag"
)

type fakeLCEmbedder struct {
	err error
}

func (f *fakeLCEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 0.5}, nil
}

func (f *fakeLCEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 0.5}
	}
	return out, nil
}

func TestLangChainEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("query", func(t *testing.T) {
		var e rag.Embedder = NewLangChainEmbedder(&fakeLCEmbedder{})
		vec, err := e.EmbedQuery(ctx, "abcd")
		require.NoError(t, err)
		assert.Equal(t, []float32{4, 0.5}, vec)
	})

	t.Run("documents", func(t *testing.T) {
		var e rag.Embedder = NewLangChainEmbedder(&fakeLCEmbedder{})
		vecs, err := e.EmbedDocuments(ctx, []string{"ab", "abcdef"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Equal(t, []float32{2, 0.5}, vecs[0])
		assert.Equal(t, []float32{6, 0.5}, vecs[1])
	})

	t.Run("errors are wrapped", func(t *testing.T) {
		e := NewLangChainEmbedder(&fakeLCEmbedder{err: errors.New("quota exceeded")})

		_, err := e.EmbedQuery(ctx, "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")

		_, err = e.EmbedDocuments(ctx, []string{"d"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})
}
