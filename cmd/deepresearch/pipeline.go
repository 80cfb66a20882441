package main

import (
	"context"
	"fmt"

	"github.com/smallnest/deepresearch/agent"
	"github.com/smallnest/deepresearch/config"
	"github.com/smallnest/deepresearch/fetch"
	"github.com/smallnest/deepresearch/llm"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/rag"
	"github.com/smallnest/deepresearch/rag/embedder"
	"github.com/smallnest/deepresearch/rag/splitter"
	ragstore "github.com/smallnest/deepresearch/rag/store"
	"github.com/smallnest/deepresearch/store"
	memstore "github.com/smallnest/deepresearch/store/memory"
	pgstore "github.com/smallnest/deepresearch/store/postgres"
	redisstore "github.com/smallnest/deepresearch/store/redis"
	sqlitestore "github.com/smallnest/deepresearch/store/sqlite"
	"github.com/smallnest/deepresearch/websearch"
	"github.com/smallnest/deepresearch/workflow"
)

// pipeline bundles the engine with collaborators the commands also use
// directly.
type pipeline struct {
	engine    *workflow.Engine
	clarifier *agent.ClarifyAgent
	index     rag.VectorStore
	runs      store.CheckpointStore
}

func (p *pipeline) close() {
	if p.index != nil {
		p.index.Close()
	}
	if p.runs != nil {
		p.runs.Close()
	}
}

// buildPipeline assembles the whole research pipeline from settings. The
// responder, when non-nil, makes the clarification stage interactive.
func buildPipeline(s *config.Settings, responder agent.Responder) (*pipeline, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetDefaultLogger()

	model, err := llm.NewOpenAIModel(s.OpenAIAPIKey, s.OpenAIBaseURL,
		llm.WithModel(s.Model),
		llm.WithTemperature(float32(s.Temperature)))
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	embed, err := embedder.NewOpenAIEmbedder(s.OpenAIAPIKey, s.OpenAIBaseURL, s.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	index, err := buildVectorStore(s, embed)
	if err != nil {
		return nil, err
	}

	searchClient, err := buildSearchClient(s)
	if err != nil {
		index.Close()
		return nil, err
	}

	runs, err := buildCheckpointStore(s)
	if err != nil {
		index.Close()
		return nil, err
	}

	split := splitter.New(
		splitter.WithChunkSize(s.ChunkSize),
		splitter.WithChunkOverlap(s.ChunkOverlap))
	loader := fetch.NewHTTPLoader()

	var clarifier *agent.ClarifyAgent
	var clarifyRunner workflow.StageRunner
	if !s.SkipClarification {
		opts := []agent.ClarifyOption{}
		if responder != nil {
			opts = append(opts, agent.WithResponder(responder))
		}
		clarifier = agent.NewClarifyAgent(model, logger, opts...)
		clarifyRunner = clarifier
	}

	engine, err := workflow.New(workflow.Config{
		Clarify: clarifyRunner,
		Search: agent.NewSearchAgent(searchClient, model, logger,
			agent.WithNumQueries(s.NumQueries),
			agent.WithMaxResultsPerQuery(s.MaxResultsPerQuery),
			agent.WithSearchWorkers(s.SearchWorkers)),
		Analyze: agent.NewAnalyzeAgent(loader, split, index, logger),
		Synthesize: agent.NewSynthesizeAgent(model, index, logger,
			agent.WithTopK(s.TopK)),
		Reflect:       agent.NewReflectAgent(model, logger),
		Checkpoints:   runs,
		MaxIterations: s.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		index.Close()
		runs.Close()
		return nil, err
	}

	return &pipeline{engine: engine, clarifier: clarifier, index: index, runs: runs}, nil
}

func buildVectorStore(s *config.Settings, embed rag.Embedder) (rag.VectorStore, error) {
	switch s.VectorBackend {
	case "", "memory":
		return ragstore.NewMemoryVectorStore(embed), nil
	case "sqlite":
		return ragstore.NewSqliteVectorStore(embed, ragstore.SqliteOptions{Path: s.VectorPath})
	default:
		return nil, fmt.Errorf("unknown vector backend %q (want memory or sqlite)", s.VectorBackend)
	}
}

func buildSearchClient(s *config.Settings) (websearch.Client, error) {
	switch s.SearchProvider {
	case "tavily":
		return websearch.NewTavilyClient(s.TavilyAPIKey)
	case "brave":
		return websearch.NewBraveClient(s.BraveAPIKey)
	default:
		return nil, fmt.Errorf("unknown search provider %q", s.SearchProvider)
	}
}

func buildCheckpointStore(s *config.Settings) (store.CheckpointStore, error) {
	switch s.CheckpointBackend {
	case "", "memory":
		return memstore.New(), nil
	case "sqlite":
		return sqlitestore.New(s.CheckpointPath)
	case "redis":
		return redisstore.NewFromAddr(context.Background(), s.RedisAddr)
	case "postgres":
		return pgstore.New(context.Background(), s.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", s.CheckpointBackend)
	}
}
