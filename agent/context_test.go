package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/smallnest/deepresearch/research"
)

func TestCitationNumbers(t *testing.T) {
	t.Run("first seen order with reuse", func(t *testing.T) {
		chunks := []research.DocumentChunk{
			{SourceURL: "https://a.example"},
			{SourceURL: "https://b.example"},
			{SourceURL: "https://a.example"},
			{SourceURL: "https://c.example"},
		}
		assert.Equal(t, []int{1, 2, 1, 3}, CitationNumbers(chunks))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, CitationNumbers(nil))
	})
}

func TestAssembleContext(t *testing.T) {
	now := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	chunks := []research.DocumentChunk{
		{
			Text:          "Quantum error rates dropped sharply.",
			Score:         0.91234,
			SourceURL:     "https://arxiv.org/abs/1",
			SourceTitle:   "Error Correction Advances",
			SourceType:    research.SourceAcademic,
			PublishedDate: "2025-02-10",
		},
		{
			Text:      "Industry adoption remains early.",
			Score:     0.75,
			SourceURL: "https://blog.example/post",
		},
	}

	got := AssembleContext(chunks, now)

	assert.Contains(t, got, "### Source [1]: Error Correction Advances")
	assert.Contains(t, got, "**Type:** academic")
	assert.Contains(t, got, "**URL:** https://arxiv.org/abs/1")
	assert.Contains(t, got, "**Date:** Last year (2025)")
	assert.Contains(t, got, "**Relevance:** 0.912")
	assert.Contains(t, got, "Quantum error rates dropped sharply.")

	// Second chunk has no date or title; the date line is dropped and the
	// title falls back.
	assert.Contains(t, got, "### Source [2]: Unknown")
	assert.Contains(t, got, "**Type:** other")
	assert.NotContains(t, got, "**Date:** \n")
}
