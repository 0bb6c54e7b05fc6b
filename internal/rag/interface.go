// Package rag defines the core retrieval types and interfaces: text chunks,
// embedding, and vector storage. Concrete stores (Qdrant, in-memory) satisfy
// these interfaces so the retrieval engine never depends on a specific backend.
package rag

import (
	"context"
)

// Chunk is a unit of indexable text derived from a source document.
type Chunk struct {
	// ID is the globally unique identifier for this chunk (UUID).
	ID string

	// Text is the trimmed paragraph text of the chunk. Never empty.
	Text string
}

// ScoredChunk is a chunk returned from a similarity search together with its
// similarity score.
type ScoredChunk struct {
	// Chunk is the stored chunk.
	Chunk

	// Score is the similarity score assigned during retrieval (higher is
	// more relevant). Zero value means the score was not computed.
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or overwrites a batch of chunks keyed by their IDs.
	// The embeddings slice must be parallel to chunks — embeddings[i] is the
	// vector for chunks[i]. Re-upserting an existing ID replaces the entry;
	// it never duplicates and never errors on collision.
	Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error

	// Search returns the top-k most similar chunks for the query embedding,
	// most relevant first. An empty store yields an empty slice, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]ScoredChunk, error)

	// Reset destructively removes all indexed content from the store.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
