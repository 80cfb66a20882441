// Package rag holds the retrieval contracts: documents, embedders, and
// vector stores used by the ingestion and synthesis stages.
package rag

import "context"

// Metadata keys attached to every stored chunk.
const (
	MetaSourceURL     = "source_url"
	MetaTitle         = "title"
	MetaSourceType    = "source_type"
	MetaPublishedDate = "published_date"
	MetaChunkIndex    = "chunk_index"
	MetaTotalChunks   = "total_chunks"
)

// Document is a unit of stored text with its metadata and, once embedded,
// its vector.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// SearchResult pairs a document with its raw similarity score. Higher
// cosine similarity ranks first; the raw value is kept so consumers can
// report or normalize it.
type SearchResult struct {
	Document Document
	Score    float64
}

// Embedder turns text into fixed-dimension vectors. Implementations must
// be deterministic for identical input.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore stores embedded documents and answers top-k similarity
// queries. Search on an empty store returns an empty result, never an
// error. Implementations must not lose concurrent upserts.
type VectorStore interface {
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// TextSplitter splits text into retrieval-sized chunks.
type TextSplitter interface {
	SplitText(text string) []string
	SplitDocuments(docs []Document) []Document
}
