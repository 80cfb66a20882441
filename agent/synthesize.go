package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/deepresearch/llm"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/rag"
	"github.com/smallnest/deepresearch/research"
)

// DefaultTopK is how many chunks synthesis retrieves from the index.
const DefaultTopK = 15

// SynthesizeAgent retrieves the most relevant chunks for the research
// question and asks the model to write a cited report from them.
type SynthesizeAgent struct {
	model  llm.Model
	index  rag.VectorStore
	topK   int
	logger log.Logger
	now    func() time.Time
}

// SynthesizeOption configures the SynthesizeAgent.
type SynthesizeOption func(*SynthesizeAgent)

// WithTopK sets the retrieval depth.
func WithTopK(k int) SynthesizeOption {
	return func(a *SynthesizeAgent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithClock overrides the time source used for temporal context (used in
// tests).
func WithClock(now func() time.Time) SynthesizeOption {
	return func(a *SynthesizeAgent) {
		a.now = now
	}
}

// NewSynthesizeAgent creates a synthesis agent.
func NewSynthesizeAgent(model llm.Model, index rag.VectorStore, logger log.Logger, opts ...SynthesizeOption) *SynthesizeAgent {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	a := &SynthesizeAgent{
		model:  model,
		index:  index,
		topK:   DefaultTopK,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the synthesis stage. On a revision pass the previous
// reviewer feedback is appended to the prompt; retrieval itself is
// repeated so the draft is always grounded in the store's current
// contents.
func (a *SynthesizeAgent) Run(ctx context.Context, st research.State) research.State {
	query := strings.TrimSpace(st.Query())
	if query == "" {
		st.Error = "no query provided for synthesis"
		return st
	}

	results, err := a.index.Search(ctx, query, a.topK)
	if err != nil {
		st.Error = fmt.Sprintf("retrieval failed: %v", err)
		return st
	}
	if len(results) == 0 {
		st.Error = "no relevant information found in knowledge base"
		return st
	}

	chunks := toDocumentChunks(results)
	st.RetrievedChunks = chunks

	prompt := fmt.Sprintf(synthesisPromptFmt, query, AssembleContext(chunks, a.now()))
	if st.IterationCount > 0 && st.RevisionFeedback != "" {
		prompt += fmt.Sprintf(revisionNoteFmt, st.RevisionFeedback)
		a.logger.Info("regenerating report (revision %d)", st.IterationCount)
	} else {
		a.logger.Info("generating report from %d chunks", len(chunks))
	}

	report, err := a.model.Generate(ctx, synthesisSystem, prompt)
	if err != nil {
		st.Error = fmt.Sprintf("report generation failed: %v", err)
		return st
	}

	st.DraftReport = strings.TrimSpace(report)
	return st
}

// toDocumentChunks converts raw search results into the state's chunk
// shape, lifting the well-known metadata keys into typed fields.
func toDocumentChunks(results []rag.SearchResult) []research.DocumentChunk {
	chunks := make([]research.DocumentChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, research.DocumentChunk{
			Text:          r.Document.Content,
			Score:         r.Score,
			SourceURL:     metaString(r.Document.Metadata, rag.MetaSourceURL),
			SourceTitle:   metaString(r.Document.Metadata, rag.MetaTitle),
			SourceType:    research.SourceType(metaString(r.Document.Metadata, rag.MetaSourceType)),
			PublishedDate: metaString(r.Document.Metadata, rag.MetaPublishedDate),
			Metadata:      r.Document.Metadata,
		})
	}
	return chunks
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
