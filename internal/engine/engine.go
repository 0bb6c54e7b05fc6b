// Package engine implements the retrieval engine: it owns the vector index
// and exposes add (embed + upsert), query (top-K by similarity), and reset
// (destructive clear).
//
// The engine is a two-state machine. It starts uninitialized; the first add
// or query opens the backing store lazily (client + collection) and moves it
// to ready. A reset destroys the indexed content and releases the store
// handle, returning to uninitialized, so the next operation reopens a clean
// store. Because the store binds to a single storage location, at most one
// live store instance may exist process-wide; a single mutex serializes
// lazy-init, add, query, and reset so concurrent turns can never race two
// clients against the same location or observe a half-torn-down collection.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/rag"
)

// DefaultTopK is the number of chunks returned by Query when the caller
// passes k <= 0. A tuning constant, not an invariant.
const DefaultTopK = 3

// OpenStoreFunc opens (or creates) the backing vector store. It is called
// under the engine lock, at most once per uninitialized→ready transition.
type OpenStoreFunc func(ctx context.Context) (rag.VectorStore, error)

// Engine is the process-wide retrieval engine. All methods are safe for
// concurrent use.
type Engine struct {
	// mu serializes every state transition and store operation.
	mu sync.Mutex

	// embedder converts chunk texts and questions into vectors.
	embedder rag.Embedder

	// open lazily constructs the backing store on first use.
	open OpenStoreFunc

	// store is the live store handle. nil means uninitialized.
	store rag.VectorStore

	// defaultTopK is the result count used when Query is called with k <= 0.
	defaultTopK int
}

// Config holds the dependencies and tuning for constructing an Engine.
type Config struct {
	// Embedder converts text to vectors. Required.
	Embedder rag.Embedder

	// OpenStore opens the backing vector store on demand. Required.
	OpenStore OpenStoreFunc

	// DefaultTopK is the fallback result count for Query. Defaults to
	// DefaultTopK if zero.
	DefaultTopK int
}

// New constructs an Engine in the uninitialized state. No store is opened
// until the first add or query.
func New(cfg *Config) (*Engine, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("engine: embedder must not be nil")
	}
	if cfg.OpenStore == nil {
		return nil, fmt.Errorf("engine: store opener must not be nil")
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{
		embedder:    cfg.Embedder,
		open:        cfg.OpenStore,
		defaultTopK: topK,
	}, nil
}

// Add embeds the chunks and upserts them by id. Re-adding an existing id
// overwrites the stored entry — the orchestrator re-ingests the same
// directory across turns and relies on this idempotence. An empty chunk
// list is a no-op and does not initialize the store.
func (e *Engine) Add(ctx context.Context, chunks []rag.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureStoreLocked(ctx); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("engine: embedding %d chunks failed: %w", len(chunks), err)
	}

	if err := e.store.Upsert(ctx, chunks, embeddings); err != nil {
		return fmt.Errorf("engine: upsert failed: %w", err)
	}

	logging.FromContext(ctx).Debug("chunks indexed", slog.Int("count", len(chunks)))
	return nil
}

// Query embeds the question and returns the text of the k most similar
// chunks, most relevant first. k <= 0 selects the configured default. An
// empty index yields an empty slice, never an error.
func (e *Engine) Query(ctx context.Context, question string, k int) ([]string, error) {
	if k <= 0 {
		k = e.defaultTopK
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureStoreLocked(ctx); err != nil {
		return nil, err
	}

	embeddings, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("engine: embedding question failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("engine: embedder returned no vector for question")
	}

	results, err := e.store.Search(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("engine: vector search failed: %w", err)
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}
	return texts, nil
}

// Reset destructively clears all indexed content and returns the engine to
// the uninitialized state. Calling Reset on an uninitialized engine is a
// no-op, not an error. The store handle is released even when the close
// itself fails, so a subsequent operation always starts from a fresh store.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return nil
	}

	if err := e.store.Reset(ctx); err != nil {
		return fmt.Errorf("engine: reset failed: %w", err)
	}

	if err := e.store.Close(); err != nil {
		logging.FromContext(ctx).Warn("engine: closing store after reset failed", slog.Any("error", err))
	}
	e.store = nil

	logging.FromContext(ctx).Info("retrieval engine reset")
	return nil
}

// Close releases the store handle without clearing indexed content.
// Safe to call when uninitialized.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	if err != nil {
		return fmt.Errorf("engine: close failed: %w", err)
	}
	return nil
}

// ensureStoreLocked performs the uninitialized→ready transition. The caller
// must hold e.mu.
func (e *Engine) ensureStoreLocked(ctx context.Context) error {
	if e.store != nil {
		return nil
	}
	store, err := e.open(ctx)
	if err != nil {
		return fmt.Errorf("engine: opening vector store failed: %w", err)
	}
	e.store = store
	logging.FromContext(ctx).Debug("retrieval engine initialized")
	return nil
}
