package rag

import (
	"context"
	"testing"
)

func Test_MemoryStore_UpsertOverwritesByID(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	chunks := []Chunk{{ID: "a", Text: "first"}, {ID: "b", Text: "second"}}
	embeddings := [][]float32{{1, 0}, {0, 1}}

	if err := s.Upsert(ctx, chunks, embeddings); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Same ids again — must replace, never duplicate.
	if err := s.Upsert(ctx, chunks, embeddings); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got := s.Len(); got != 2 {
		t.Errorf("want 2 entries after double upsert, got %d", got)
	}

	// Overwrite one id with new text.
	if err := s.Upsert(ctx, []Chunk{{ID: "a", Text: "replaced"}}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("overwrite upsert: %v", err)
	}
	results, err := s.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Text != "replaced" {
		t.Errorf("want top result %q, got %v", "replaced", results)
	}
}

func Test_MemoryStore_SearchOrdersByScore(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	chunks := []Chunk{
		{ID: "exact", Text: "exact match"},
		{ID: "near", Text: "near match"},
		{ID: "far", Text: "unrelated"},
	}
	embeddings := [][]float32{
		{1, 0},
		{0.8, 0.6},
		{0, 1},
	}
	if err := s.Upsert(ctx, chunks, embeddings); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := s.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if results[0].ID != "exact" || results[1].ID != "near" {
		t.Errorf("want [exact near], got [%s %s]", results[0].ID, results[1].ID)
	}
}

func Test_MemoryStore_SearchEmptyStore(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	results, err := s.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("want empty result from empty store, got %d", len(results))
	}
}

func Test_MemoryStore_ResetClearsEverything(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Upsert(ctx, []Chunk{{ID: "x", Text: "hello"}}, [][]float32{{1}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("want 0 entries after reset, got %d", got)
	}
}

func Test_CosineSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"mismatched length", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
