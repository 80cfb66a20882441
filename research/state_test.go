package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewState(t *testing.T) {
	st := NewState("quantum computing error correction")

	assert.Equal(t, "quantum computing error correction", st.OriginalQuery)
	assert.Equal(t, DefaultMaxIterations, st.MaxIterations)
	assert.Zero(t, st.IterationCount)
	assert.False(t, st.Failed())
	assert.False(t, st.CreatedAt.IsZero())
}

func TestStateQuery(t *testing.T) {
	st := NewState("original")
	assert.Equal(t, "original", st.Query())

	st.RefinedQuery = "refined and specific"
	assert.Equal(t, "refined and specific", st.Query())
}

func TestStateFailed(t *testing.T) {
	st := NewState("q")
	assert.False(t, st.Failed())
	st.Error = "boom"
	assert.True(t, st.Failed())
}

func TestSourceCitation(t *testing.T) {
	t.Run("full metadata", func(t *testing.T) {
		src := Source{
			URL:           "https://www.nature.com/articles/abc",
			Title:         "A Result",
			Publication:   "Nature",
			PublishedDate: "2025-03-14",
		}
		assert.Equal(t, `[3] (2025). "A Result". Nature. https://www.nature.com/articles/abc`, src.Citation(3))
	})

	t.Run("minimal metadata", func(t *testing.T) {
		src := Source{URL: "https://example.com", Title: "Page"}
		assert.Equal(t, `[1] "Page". https://example.com`, src.Citation(1))
	})
}
