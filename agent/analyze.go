package agent

import (
	"context"
	"fmt"

	"github.com/smallnest/deepresearch/fetch"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/rag"
	"github.com/smallnest/deepresearch/research"
)

// AnalyzeAgent fetches approved sources, splits their text into chunks,
// and loads the chunks into the vector store.
type AnalyzeAgent struct {
	loader   fetch.Loader
	splitter rag.TextSplitter
	index    rag.VectorStore
	logger   log.Logger
}

// NewAnalyzeAgent creates an analyze agent.
func NewAnalyzeAgent(loader fetch.Loader, splitter rag.TextSplitter, index rag.VectorStore, logger log.Logger) *AnalyzeAgent {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &AnalyzeAgent{
		loader:   loader,
		splitter: splitter,
		index:    index,
		logger:   logger,
	}
}

// Run executes the analysis stage. When no explicit approval happened, all
// discovered sources are approved automatically. A source that fails to
// fetch or yields no text is skipped; only a complete absence of sources
// or a store failure is fatal.
func (a *AnalyzeAgent) Run(ctx context.Context, st research.State) research.State {
	sources := st.ApprovedSources
	if len(sources) == 0 && len(st.Sources) > 0 {
		sources = approveAll(st.Sources)
		st.ApprovedSources = sources
		a.logger.Info("auto-approved all %d sources", len(sources))
	}
	if len(sources) == 0 {
		st.Error = "no sources provided for analysis"
		return st
	}

	docs := make([]rag.Document, 0, len(sources))
	for _, src := range sources {
		page, err := a.loader.Load(ctx, src.URL)
		if err != nil {
			a.logger.Warn("skipping %s: %v", src.URL, err)
			continue
		}

		title := src.Title
		if (title == "" || title == "Unknown") && page.Title != "" {
			title = page.Title
		}

		docs = append(docs, rag.Document{
			ID:      src.URL,
			Content: page.Text,
			Metadata: map[string]any{
				rag.MetaSourceURL:     src.URL,
				rag.MetaTitle:         title,
				rag.MetaSourceType:    string(src.SourceType),
				rag.MetaPublishedDate: src.PublishedDate,
			},
		})
	}

	chunks := a.splitter.SplitDocuments(docs)
	if len(chunks) > 0 {
		if err := a.index.Upsert(ctx, chunks); err != nil {
			st.Error = fmt.Sprintf("failed to store document chunks: %v", err)
			return st
		}
	}

	st.ChunksStored = len(chunks)
	st.AnalysisComplete = true
	a.logger.Info("stored %d chunks from %d of %d sources", len(chunks), len(docs), len(sources))
	return st
}

func approveAll(sources []research.Source) []research.Source {
	approved := make([]research.Source, len(sources))
	for i, src := range sources {
		src.Approved = true
		approved[i] = src
	}
	return approved
}
