// Package splitter implements chunking for the ingestion stage.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/smallnest/deepresearch/rag"
)

// DefaultSeparators orders separators from coarsest to finest; the empty
// string is the character-level fallback.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveCharacterTextSplitter splits text into overlapping chunks,
// preferring the coarsest separator that keeps related pieces together and
// recursively subdividing oversized pieces with finer separators.
type RecursiveCharacterTextSplitter struct {
	separators   []string
	chunkSize    int
	chunkOverlap int
	lengthFunc   func(string) int
}

// Option configures the RecursiveCharacterTextSplitter.
type Option func(*RecursiveCharacterTextSplitter)

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(size int) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap carried between adjacent chunks.
func WithChunkOverlap(overlap int) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkOverlap = overlap
	}
}

// WithSeparators sets custom separators, coarsest first.
func WithSeparators(separators []string) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.separators = separators
	}
}

// WithLengthFunction sets a custom length function.
func WithLengthFunction(fn func(string) int) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.lengthFunc = fn
	}
}

// New creates a splitter with chunk size 1000 and overlap 200.
func New(opts ...Option) *RecursiveCharacterTextSplitter {
	s := &RecursiveCharacterTextSplitter{
		separators:   DefaultSeparators,
		chunkSize:    1000,
		chunkOverlap: 200,
		lengthFunc:   func(s string) int { return len(s) },
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.chunkOverlap >= s.chunkSize {
		s.chunkOverlap = s.chunkSize / 5
	}

	return s
}

// SplitText splits text into chunks. Empty input yields no chunks.
func (s *RecursiveCharacterTextSplitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

// SplitDocuments splits each document and propagates its metadata onto the
// chunks, plus chunk_index and total_chunks for the document.
func (s *RecursiveCharacterTextSplitter) SplitDocuments(docs []rag.Document) []rag.Document {
	chunks := make([]rag.Document, 0, len(docs))

	for _, doc := range docs {
		textChunks := s.SplitText(doc.Content)

		for i, chunk := range textChunks {
			metadata := make(map[string]any, len(doc.Metadata)+2)
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata[rag.MetaChunkIndex] = i
			metadata[rag.MetaTotalChunks] = len(textChunks)

			chunks = append(chunks, rag.Document{
				ID:       fmt.Sprintf("%s_chunk_%d", doc.ID, i),
				Content:  chunk,
				Metadata: metadata,
			})
		}
	}

	return chunks
}

// split picks the coarsest separator present in text, cuts along it
// (keeping the separator attached so chunks reconstruct the original),
// recursively subdivides oversized pieces, and merges the rest back up to
// chunk size.
func (s *RecursiveCharacterTextSplitter) split(text string, separators []string) []string {
	if s.lengthFunc(text) <= s.chunkSize {
		return []string{text}
	}

	sep := ""
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			remaining = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.splitByCharacter(text)
	}

	parts := strings.SplitAfter(text, sep)

	var pieces []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if s.lengthFunc(part) <= s.chunkSize {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, s.split(part, remaining)...)
		}
	}

	return s.merge(pieces)
}

// merge packs pieces into chunks no longer than chunkSize, seeding each new
// chunk with the tail of the previous one so adjacent chunks share
// chunkOverlap characters of context.
func (s *RecursiveCharacterTextSplitter) merge(pieces []string) []string {
	var chunks []string
	var current string

	for _, piece := range pieces {
		if current != "" && s.lengthFunc(current)+s.lengthFunc(piece) > s.chunkSize {
			chunks = append(chunks, current)

			// Trim the tail rune by rune so the overlap is measured with
			// lengthFunc and never cuts through a multi-byte rune.
			tail := current
			for tail != "" && s.lengthFunc(tail) > s.chunkOverlap {
				_, size := utf8.DecodeRuneInString(tail)
				tail = tail[size:]
			}
			if s.chunkOverlap > 0 && s.lengthFunc(tail)+s.lengthFunc(piece) <= s.chunkSize {
				current = tail + piece
			} else {
				current = piece
			}
			continue
		}
		current += piece
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitByCharacter is the last-resort cut: fixed windows of chunkSize
// advancing by chunkSize-chunkOverlap, which makes the overlap between
// adjacent chunks exact.
func (s *RecursiveCharacterTextSplitter) splitByCharacter(text string) []string {
	stride := s.chunkSize - s.chunkOverlap
	if stride < 1 {
		stride = s.chunkSize
	}

	var chunks []string
	for i := 0; i < len(text); i += stride {
		end := i + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
