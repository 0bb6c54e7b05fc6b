package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/docqa/docqa-go/internal/agents"
	"github.com/docqa/docqa-go/internal/answer"
	"github.com/docqa/docqa-go/internal/embedder"
	"github.com/docqa/docqa-go/internal/engine"
	"github.com/docqa/docqa-go/internal/ingest"
	"github.com/docqa/docqa-go/internal/provider"
	"github.com/docqa/docqa-go/internal/rag"
	"github.com/docqa/docqa-go/internal/store"
)

// defaultCollection is the Qdrant collection used when QDRANT_COLLECTION is unset.
const defaultCollection = "document_qa_collection"

// defaultUploadDir is where uploaded documents live when DOCQA_UPLOAD_DIR is unset.
const defaultUploadDir = "Documents"

// stack bundles the fully wired pipeline with the resources that need
// closing when the command finishes.
type stack struct {
	coordinator *agents.Coordinator
	engine      *engine.Engine
	embedder    rag.Embedder
	turns       *store.SQLiteStore
}

// close releases the stack's resources. Safe to call once per stack.
func (s *stack) close(log *slog.Logger) {
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			log.Warn("failed to close retrieval engine", slog.String("error", err.Error()))
		}
	}
	if s.turns != nil {
		if err := s.turns.Close(); err != nil {
			log.Warn("failed to close turn store", slog.String("error", err.Error()))
		}
	}
}

// buildStack wires the full pipeline from environment configuration:
// embedder, vector store, retrieval engine, chat model, and the four agents
// behind the coordinator. The vector store itself is opened lazily on the
// first add or query, so buildStack succeeds even when the store is down.
func buildStack(ctx context.Context, log *slog.Logger) (*stack, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(&engine.Config{
		Embedder:    emb,
		OpenStore:   storeOpener(),
		DefaultTopK: envInt("DOCQA_TOP_K", engine.DefaultTopK),
	})
	if err != nil {
		return nil, err
	}

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		_ = eng.Close()
		return nil, err
	}

	gen, err := answer.New(&answer.Config{Model: chatModel})
	if err != nil {
		_ = eng.Close()
		return nil, err
	}

	pipeline := ingest.NewPipeline(ingest.Config{
		MinChunkChars: envInt("DOCQA_MIN_CHUNK_CHARS", ingest.DefaultMinChunkChars),
	})

	s := &stack{engine: eng, embedder: emb}

	recorder, turns, err := turnRecorder(log)
	if err != nil {
		// Audit persistence is best effort; the pipeline works without it.
		log.Warn("turn audit store unavailable, continuing without it",
			slog.String("error", err.Error()))
	}
	s.turns = turns

	coord, err := agents.NewCoordinator(&agents.CoordinatorConfig{
		Ingestion: agents.NewIngestionAgent(pipeline),
		Retrieval: agents.NewRetrievalAgent(eng),
		Response:  agents.NewResponseAgent(gen),
		Recorder:  recorder,
		TopK:      envInt("DOCQA_TOP_K", engine.DefaultTopK),
	})
	if err != nil {
		s.close(log)
		return nil, err
	}
	s.coordinator = coord

	return s, nil
}

// storeOpener returns the lazy vector store constructor selected by
// DOCQA_VECTOR_BACKEND. "qdrant" (the default) connects over gRPC and
// ensures the collection exists; "memory" is an in-process store for
// local experiments and tests.
func storeOpener() engine.OpenStoreFunc {
	backend := envOrDefault("DOCQA_VECTOR_BACKEND", "qdrant")

	switch backend {
	case "memory":
		return func(context.Context) (rag.VectorStore, error) {
			return rag.NewMemoryStore(), nil
		}
	default:
		return func(ctx context.Context) (rag.VectorStore, error) {
			return rag.NewQdrantStore(ctx, qdrantConfigFromEnv())
		}
	}
}

// qdrantConfigFromEnv assembles the Qdrant connection config. The vector
// size follows the configured embedding backend so the collection is
// created with matching dimensionality.
func qdrantConfigFromEnv() *rag.QdrantConfig {
	embBackend := os.Getenv("EMBEDDING_PROVIDER")
	if embBackend == "" {
		embBackend = envOrDefault("MODEL_PROVIDER", "ollama")
	}

	return &rag.QdrantConfig{
		Host:       envOrDefault("QDRANT_HOST", "localhost"),
		Port:       envInt("QDRANT_PORT", 6334),
		Collection: envOrDefault("QDRANT_COLLECTION", defaultCollection),
		VectorSize: uint64(embedder.DefaultDimensions(embBackend)),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     envBool("QDRANT_USE_TLS", false),
	}
}

// turnRecorder opens the SQLite turn audit store. DOCQA_AUDIT_DB selects the
// path; "disabled" turns persistence off entirely. The returned recorder is
// nil when disabled so the coordinator skips recording.
func turnRecorder(log *slog.Logger) (agents.TurnRecorder, *store.SQLiteStore, error) {
	path := os.Getenv("DOCQA_AUDIT_DB")
	if path == "disabled" {
		return nil, nil, nil
	}
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
	}

	s, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("turn audit store opened", slog.String("path", path))
	return s, s, nil
}

// uploadDir returns the document directory served by ingestion and uploads.
func uploadDir() string {
	return envOrDefault("DOCQA_UPLOAD_DIR", defaultUploadDir)
}

// envOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envBool returns the boolean value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// formatDuration renders a duration in whole milliseconds for display.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
