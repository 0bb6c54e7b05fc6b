package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docqa/docqa-go/internal/answer"
	"github.com/docqa/docqa-go/internal/engine"
	"github.com/docqa/docqa-go/internal/ingest"
	"github.com/docqa/docqa-go/internal/mcp"
	"github.com/docqa/docqa-go/internal/rag"
)

// unitEmbedder returns a constant unit vector for every text, enough for
// exercising dispatch without caring about ranking.
type unitEmbedder struct{}

func (unitEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newRetrievalAgent(t *testing.T) (*RetrievalAgent, *rag.MemoryStore) {
	t.Helper()
	store := rag.NewMemoryStore()
	e, err := engine.New(&engine.Config{
		Embedder:  unitEmbedder{},
		OpenStore: func(context.Context) (rag.VectorStore, error) { return store, nil },
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return NewRetrievalAgent(e), store
}

func Test_IngestionAgent_RepliesWithChunks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "A paragraph that is comfortably longer than the fifty character minimum."
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte(content), 0o600); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	a := NewIngestionAgent(ingest.NewPipeline(ingest.Config{}))
	req := mcp.New(NameCoordinator, NameIngestion, mcp.IngestPayload{DocumentPath: dir}, "")

	reply, err := a.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Type != mcp.TypeIngestionComplete {
		t.Errorf("want INGESTION_COMPLETE, got %s", reply.Type)
	}
	if reply.TraceID != req.TraceID || reply.Receiver != NameCoordinator {
		t.Errorf("reply envelope wrong: %+v", reply)
	}
	complete := reply.Payload.(mcp.IngestionCompletePayload)
	if len(complete.Chunks) != 1 || complete.Chunks[0].Text != content {
		t.Errorf("want the document paragraph back, got %+v", complete.Chunks)
	}
}

func Test_IngestionAgent_RejectsWrongType(t *testing.T) {
	t.Parallel()

	a := NewIngestionAgent(ingest.NewPipeline(ingest.Config{}))
	req := mcp.New(NameCoordinator, NameIngestion, mcp.RetrievePayload{Question: "q"}, "")

	if _, err := a.Handle(context.Background(), req); !errors.Is(err, mcp.ErrUnsupportedType) {
		t.Errorf("want ErrUnsupportedType, got %v", err)
	}
}

func Test_RetrievalAgent_AddRetrieveReset(t *testing.T) {
	t.Parallel()

	a, store := newRetrievalAgent(t)
	ctx := context.Background()

	addReq := mcp.New(NameCoordinator, NameRetrieval, mcp.AddChunksPayload{
		Chunks: []rag.Chunk{{ID: "a", Text: "hello world"}},
	}, "")
	addReply, err := a.Handle(ctx, addReq)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added := addReply.Payload.(mcp.ChunksAddedPayload); added.Count != 1 {
		t.Errorf("want count 1, got %d", added.Count)
	}
	if store.Len() != 1 {
		t.Errorf("store must hold the chunk, got %d", store.Len())
	}

	retReq := mcp.New(NameCoordinator, NameRetrieval, mcp.RetrievePayload{Question: "hello", NResults: 1}, addReq.TraceID)
	retReply, err := a.Handle(ctx, retReq)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	resp := retReply.Payload.(mcp.ContextResponsePayload)
	if len(resp.TopChunks) != 1 || resp.TopChunks[0] != "hello world" {
		t.Errorf("want stored text back, got %v", resp.TopChunks)
	}
	if resp.Query != "hello" {
		t.Errorf("reply must echo the query, got %q", resp.Query)
	}

	resetReq := mcp.New(NameCoordinator, NameRetrieval, mcp.ResetDatabasePayload{}, "")
	resetReply, err := a.Handle(ctx, resetReq)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if status := resetReply.Payload.(mcp.DatabaseResetSuccessPayload); status.Status != "SUCCESS" {
		t.Errorf("want SUCCESS, got %q", status.Status)
	}
	if store.Len() != 0 {
		t.Errorf("store must be empty after reset, got %d", store.Len())
	}
}

func Test_RetrievalAgent_RejectsWrongType(t *testing.T) {
	t.Parallel()

	a, _ := newRetrievalAgent(t)
	req := mcp.New(NameCoordinator, NameRetrieval, mcp.IngestPayload{DocumentPath: "x"}, "")

	if _, err := a.Handle(context.Background(), req); !errors.Is(err, mcp.ErrUnsupportedType) {
		t.Errorf("want ErrUnsupportedType, got %v", err)
	}
}

func Test_ResponseAgent_RepliesWithFinalResponse(t *testing.T) {
	t.Parallel()

	g, err := answer.New(&answer.Config{Model: cannedChatModel{content: "grounded answer"}})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	a := NewResponseAgent(g)

	req := mcp.New(NameCoordinator, NameResponse, mcp.GenerateResponsePayload{
		Question:  "q",
		TopChunks: []string{"ctx"},
	}, "")
	reply, err := a.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Type != mcp.TypeFinalResponse {
		t.Errorf("want FINAL_RESPONSE, got %s", reply.Type)
	}
	if final := reply.Payload.(mcp.FinalResponsePayload); final.FinalResponse != "grounded answer" {
		t.Errorf("want model answer, got %q", final.FinalResponse)
	}
}

func Test_ResponseAgent_RejectsWrongType(t *testing.T) {
	t.Parallel()

	g, err := answer.New(&answer.Config{Model: cannedChatModel{content: "x"}})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	a := NewResponseAgent(g)

	req := mcp.New(NameCoordinator, NameResponse, mcp.ResetDatabasePayload{}, "")
	if _, err := a.Handle(context.Background(), req); !errors.Is(err, mcp.ErrUnsupportedType) {
		t.Errorf("want ErrUnsupportedType, got %v", err)
	}
}

// cannedChatModel returns a fixed assistant message.
type cannedChatModel struct {
	content string
}

func (m cannedChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.content, nil), nil
}

func (cannedChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}
