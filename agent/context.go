package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/deepresearch/research"
)

// CitationNumbers assigns a citation number to each chunk by source URL in
// first-seen order: the first distinct URL gets 1, the second 2, and every
// later chunk from an already-seen URL reuses its number.
func CitationNumbers(chunks []research.DocumentChunk) []int {
	numbers := make([]int, len(chunks))
	byURL := make(map[string]int)
	next := 1
	for i, c := range chunks {
		n, ok := byURL[c.SourceURL]
		if !ok {
			n = next
			byURL[c.SourceURL] = n
			next++
		}
		numbers[i] = n
	}
	return numbers
}

// AssembleContext renders retrieved chunks into the source block fed to
// report synthesis. Each chunk carries its citation number, source
// metadata, a temporal hint relative to now, and its relevance score.
func AssembleContext(chunks []research.DocumentChunk, now time.Time) string {
	numbers := CitationNumbers(chunks)

	var b strings.Builder
	for i, c := range chunks {
		title := c.SourceTitle
		if title == "" {
			title = "Unknown"
		}
		srcType := c.SourceType
		if srcType == "" {
			srcType = research.SourceOther
		}

		fmt.Fprintf(&b, "### Source [%d]: %s\n", numbers[i], title)
		fmt.Fprintf(&b, "**Type:** %s\n", srcType)
		fmt.Fprintf(&b, "**URL:** %s\n", c.SourceURL)
		if temporal := research.TemporalContext(c.PublishedDate, now); temporal != "" {
			fmt.Fprintf(&b, "**Date:** %s\n", temporal)
		}
		fmt.Fprintf(&b, "**Relevance:** %.3f\n\n", c.Score)
		b.WriteString(strings.TrimSpace(c.Text))
		b.WriteString("\n\n---\n\n")
	}
	return strings.TrimSpace(b.String())
}
