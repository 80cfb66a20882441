package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smallnest/deepresearch/llm"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/rag"
	"github.com/smallnest/deepresearch/research"
)

func chunkResult(url, title, content string, score float64) rag.SearchResult {
	return rag.SearchResult{
		Score: score,
		Document: rag.Document{
			Content: content,
			Metadata: map[string]any{
				rag.MetaSourceURL:     url,
				rag.MetaTitle:         title,
				rag.MetaSourceType:    "academic",
				rag.MetaPublishedDate: "2025-01-15",
			},
		},
	}
}

func TestSynthesizeAgentRun(t *testing.T) {
	ctx := context.Background()
	logger := &log.NoOpLogger{}
	fixedNow := func() time.Time { return time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC) }

	t.Run("generates draft from retrieved chunks", func(t *testing.T) {
		store := &recordingStore{results: []rag.SearchResult{
			chunkResult("https://a.example", "A", "Finding one.", 0.9),
			chunkResult("https://b.example", "B", "Finding two.", 0.8),
		}}

		var gotPrompt string
		model := llm.ModelFunc(func(_ context.Context, system, prompt string) (string, error) {
			gotPrompt = prompt
			return "# Report\n\nFindings [1][2].", nil
		})

		a := NewSynthesizeAgent(model, store, logger, WithClock(fixedNow))
		st := a.Run(ctx, research.NewState("topic"))

		require.False(t, st.Failed(), st.Error)
		assert.Equal(t, "# Report\n\nFindings [1][2].", st.DraftReport)
		require.Len(t, st.RetrievedChunks, 2)
		assert.Equal(t, "https://a.example", st.RetrievedChunks[0].SourceURL)
		assert.Equal(t, research.SourceAcademic, st.RetrievedChunks[0].SourceType)

		assert.Contains(t, gotPrompt, "### Source [1]: A")
		assert.Contains(t, gotPrompt, "### Source [2]: B")
		assert.Contains(t, gotPrompt, "Last year (2025)")
		assert.NotContains(t, gotPrompt, "Revision Instructions")
	})

	t.Run("revision pass includes feedback", func(t *testing.T) {
		store := &recordingStore{results: []rag.SearchResult{
			chunkResult("https://a.example", "A", "Finding one.", 0.9),
		}}

		var gotPrompt string
		model := llm.ModelFunc(func(_ context.Context, _, prompt string) (string, error) {
			gotPrompt = prompt
			return "revised report", nil
		})

		a := NewSynthesizeAgent(model, store, logger)
		st := research.NewState("topic")
		st.IterationCount = 1
		st.RevisionFeedback = "cite more recent work"

		out := a.Run(ctx, st)
		require.False(t, out.Failed(), out.Error)
		assert.Contains(t, gotPrompt, "Revision Instructions")
		assert.Contains(t, gotPrompt, "cite more recent work")
	})

	t.Run("empty retrieval fails", func(t *testing.T) {
		a := NewSynthesizeAgent(staticModel("unused", nil), &recordingStore{}, logger)
		st := a.Run(ctx, research.NewState("topic"))

		assert.True(t, st.Failed())
		assert.Contains(t, st.Error, "no relevant information found in knowledge base")
	})

	t.Run("retrieval error fails", func(t *testing.T) {
		store := &recordingStore{searchErr: errors.New("index offline")}
		a := NewSynthesizeAgent(staticModel("unused", nil), store, logger)
		st := a.Run(ctx, research.NewState("topic"))

		assert.True(t, st.Failed())
		assert.Contains(t, st.Error, "retrieval failed")
	})

	t.Run("model error fails", func(t *testing.T) {
		store := &recordingStore{results: []rag.SearchResult{
			chunkResult("https://a.example", "A", "Finding.", 0.9),
		}}
		a := NewSynthesizeAgent(staticModel("", errors.New("overloaded")), store, logger)
		st := a.Run(ctx, research.NewState("topic"))

		assert.True(t, st.Failed())
		assert.Contains(t, st.Error, "report generation failed")
	})

	t.Run("topK bounds retrieval", func(t *testing.T) {
		results := make([]rag.SearchResult, 0, 20)
		for i := 0; i < 20; i++ {
			results = append(results, chunkResult("https://x.example", "X", strings.Repeat("t", 5), 0.5))
		}
		store := &recordingStore{results: results}
		a := NewSynthesizeAgent(staticModel("report", nil), store, logger, WithTopK(4))

		st := a.Run(ctx, research.NewState("topic"))
		require.False(t, st.Failed(), st.Error)
		assert.Len(t, st.RetrievedChunks, 4)
	})
}
