// Package store provides VectorStore implementations for the retrieval
// index.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smallnest/deepresearch/rag"
)

// MemoryVectorStore is an in-memory cosine-similarity store. Writes are
// mutex-serialized so concurrent upserts never lose documents.
type MemoryVectorStore struct {
	mu         sync.RWMutex
	documents  []rag.Document
	embeddings [][]float32
	byID       map[string]int
	embedder   rag.Embedder
}

var _ rag.VectorStore = (*MemoryVectorStore)(nil)

// NewMemoryVectorStore creates an empty in-memory store.
func NewMemoryVectorStore(embedder rag.Embedder) *MemoryVectorStore {
	return &MemoryVectorStore{
		byID:     make(map[string]int),
		embedder: embedder,
	}
}

// Upsert embeds and stores the documents. A document whose ID already
// exists replaces the stored copy in place, keeping its original insertion
// rank for tie-breaking.
func (s *MemoryVectorStore) Upsert(ctx context.Context, docs []rag.Document) error {
	for _, doc := range docs {
		embedding := doc.Embedding
		if len(embedding) == 0 {
			if s.embedder == nil {
				return fmt.Errorf("no embedder configured and document %s has no embedding", doc.ID)
			}
			var err error
			embedding, err = s.embedder.EmbedQuery(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
		}

		s.mu.Lock()
		if i, ok := s.byID[doc.ID]; ok {
			s.documents[i] = doc
			s.embeddings[i] = embedding
		} else {
			s.byID[doc.ID] = len(s.documents)
			s.documents = append(s.documents, doc)
			s.embeddings = append(s.embeddings, embedding)
		}
		s.mu.Unlock()
	}
	return nil
}

// Search returns up to topK documents ordered by descending cosine
// similarity. Ties keep insertion order. An empty store returns an empty
// result, never an error.
func (s *MemoryVectorStore) Search(ctx context.Context, query string, topK int) ([]rag.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.documents) == 0 {
		return []rag.SearchResult{}, nil
	}

	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return rankBySimilarity(s.documents, s.embeddings, queryEmbedding, topK), nil
}

// Count returns the number of stored documents.
func (s *MemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// Close drops all stored data.
func (s *MemoryVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = nil
	s.embeddings = nil
	s.byID = make(map[string]int)
	return nil
}

// rankBySimilarity scores every document against the query embedding and
// returns the topK best, stable across equal scores.
func rankBySimilarity(docs []rag.Document, embeddings [][]float32, query []float32, topK int) []rag.SearchResult {
	type scored struct {
		index int
		score float64
	}

	scores := make([]scored, len(docs))
	for i, emb := range embeddings {
		scores[i] = scored{index: i, score: cosineSimilarity(query, emb)}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}

	results := make([]rag.SearchResult, topK)
	for i := 0; i < topK; i++ {
		results[i] = rag.SearchResult{
			Document: docs[scores[i].index],
			Score:    scores[i].score,
		}
	}
	return results
}

// cosineSimilarity computes the cosine similarity of two vectors. Length
// mismatch or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
