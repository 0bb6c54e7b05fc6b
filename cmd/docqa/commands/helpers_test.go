package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/docqa/docqa-go/internal/config"
	"github.com/docqa/docqa-go/internal/rag"
)

func clearQdrantEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"QDRANT_API_KEY", "QDRANT_USE_TLS",
		"EMBEDDING_PROVIDER", "EMBEDDING_DIMENSIONS", "MODEL_PROVIDER",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func Test_QdrantConfigFromEnv_Defaults(t *testing.T) {
	clearQdrantEnv(t)

	cfg := qdrantConfigFromEnv()
	if cfg.Host != "localhost" {
		t.Errorf("host = %q, want localhost", cfg.Host)
	}
	if cfg.Port != 6334 {
		t.Errorf("port = %d, want 6334", cfg.Port)
	}
	if cfg.Collection != "document_qa_collection" {
		t.Errorf("collection = %q, want document_qa_collection", cfg.Collection)
	}
	if cfg.UseTLS {
		t.Error("UseTLS should default to false")
	}
}

func Test_QdrantConfigFromEnv_HonorsConfigFileTLS(t *testing.T) {
	clearQdrantEnv(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := []byte(`
qdrant:
  host: qdrant.internal
  port: 7443
  tls: true
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(cfgPath, slog.Default()); err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	cfg := qdrantConfigFromEnv()
	if cfg.Host != "qdrant.internal" {
		t.Errorf("host = %q, want qdrant.internal", cfg.Host)
	}
	if cfg.Port != 7443 {
		t.Errorf("port = %d, want 7443", cfg.Port)
	}
	if !cfg.UseTLS {
		t.Error("UseTLS = false, want true when the config file sets qdrant.tls")
	}
}

func Test_StoreOpener_MemoryBackend(t *testing.T) {
	t.Setenv("DOCQA_VECTOR_BACKEND", "memory")

	open := storeOpener()
	store, err := open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*rag.MemoryStore); !ok {
		t.Fatalf("got %T, want *rag.MemoryStore", store)
	}
}
