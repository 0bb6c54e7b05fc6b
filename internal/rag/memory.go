package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore implements VectorStore with a brute-force cosine similarity scan
// over an in-process map. It backs the "memory" vector backend for local runs
// without a Qdrant instance, and serves as the store double in tests.
// Nothing is persisted across process restarts.
type MemoryStore struct {
	// mu protects entries.
	mu sync.RWMutex

	// entries maps chunk id to its stored text and embedding.
	entries map[string]memoryEntry
}

// memoryEntry is one stored chunk with its embedding.
type memoryEntry struct {
	text      string
	embedding []float32
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Upsert stores or overwrites chunks keyed by id.
func (s *MemoryStore) Upsert(_ context.Context, chunks []Chunk, embeddings [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range chunks {
		var emb []float32
		if i < len(embeddings) {
			emb = embeddings[i]
		}
		s.entries[c.ID] = memoryEntry{text: c.Text, embedding: emb}
	}
	return nil
}

// Search returns the top-k entries by cosine similarity, most similar first.
func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, topK int) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]ScoredChunk, 0, len(s.entries))
	for id, e := range s.entries {
		sc := ScoredChunk{Score: cosineSimilarity(queryEmbedding, e.embedding)}
		sc.ID = id
		sc.Text = e.text
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Reset removes all stored entries.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}

// Close is a no-op; the store holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
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
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
