package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/deepresearch/rag"
)

// SqliteVectorStore persists embedded chunks in SQLite so the retrieval
// index survives across runs of a long-lived deployment. Similarity is
// computed in process; the table is the system of record.
type SqliteVectorStore struct {
	mu        sync.Mutex
	db        *sql.DB
	tableName string
	embedder  rag.Embedder
}

var _ rag.VectorStore = (*SqliteVectorStore)(nil)

// SqliteOptions configures the SQLite-backed store.
type SqliteOptions struct {
	Path      string
	TableName string // Default "chunks"
}

// NewSqliteVectorStore opens (or creates) the collection at opts.Path.
// Schema creation is idempotent; re-running against an existing file never
// errors.
func NewSqliteVectorStore(embedder rag.Embedder, opts SqliteOptions) (*SqliteVectorStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "chunks"
	}

	s := &SqliteVectorStore{
		db:        db,
		tableName: tableName,
		embedder:  embedder,
	}

	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SqliteVectorStore) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata TEXT,
			embedding TEXT NOT NULL
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Upsert embeds and stores the documents. Existing IDs are overwritten.
func (s *SqliteVectorStore) Upsert(ctx context.Context, docs []rag.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`, s.tableName)

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

		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}

		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		embeddingJSON, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}

		s.mu.Lock()
		_, err = s.db.ExecContext(ctx, query, id, doc.Content, string(metadataJSON), string(embeddingJSON))
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", id, err)
		}
	}
	return nil
}

// Search loads the collection and ranks it by cosine similarity against
// the embedded query, returning up to topK results best first.
func (s *SqliteVectorStore) Search(ctx context.Context, query string, topK int) ([]rag.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	docs, embeddings, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []rag.SearchResult{}, nil
	}

	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return rankBySimilarity(docs, embeddings, queryEmbedding, topK), nil
}

// Count returns the number of stored documents.
func (s *SqliteVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SqliteVectorStore) Close() error {
	return s.db.Close()
}

func (s *SqliteVectorStore) loadAll(ctx context.Context) ([]rag.Document, [][]float32, error) {
	query := fmt.Sprintf("SELECT id, content, metadata, embedding FROM %s ORDER BY rowid", s.tableName)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load documents: %w", err)
	}
	defer rows.Close()

	var docs []rag.Document
	var embeddings [][]float32
	for rows.Next() {
		var doc rag.Document
		var metadataJSON, embeddingJSON string
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &embeddingJSON); err != nil {
			return nil, nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", doc.ID, err)
			}
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal embedding for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
		embeddings = append(embeddings, embedding)
	}
	return docs, embeddings, rows.Err()
}
