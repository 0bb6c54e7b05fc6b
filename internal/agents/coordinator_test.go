package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/docqa/docqa-go/internal/mcp"
	"github.com/docqa/docqa-go/internal/rag"
)

// scriptedHandler replays a handler function and records every message it
// receives, in order.
type scriptedHandler struct {
	fn       func(msg mcp.Message) (mcp.Message, error)
	received []mcp.Message
}

func (h *scriptedHandler) Handle(_ context.Context, msg mcp.Message) (mcp.Message, error) {
	h.received = append(h.received, msg)
	return h.fn(msg)
}

// okIngestion replies with the given chunks for any INGEST request.
func okIngestion(chunks []rag.Chunk) *scriptedHandler {
	return &scriptedHandler{fn: func(msg mcp.Message) (mcp.Message, error) {
		return mcp.Reply(msg, NameIngestion, mcp.IngestionCompletePayload{Chunks: chunks}), nil
	}}
}

// okRetrieval acks adds and resets, and answers retrieves with topChunks.
func okRetrieval(topChunks []string) *scriptedHandler {
	return &scriptedHandler{fn: func(msg mcp.Message) (mcp.Message, error) {
		switch p := msg.Payload.(type) {
		case mcp.AddChunksPayload:
			return mcp.Reply(msg, NameRetrieval, mcp.ChunksAddedPayload{Count: len(p.Chunks)}), nil
		case mcp.RetrievePayload:
			return mcp.Reply(msg, NameRetrieval, mcp.ContextResponsePayload{TopChunks: topChunks, Query: p.Question}), nil
		case mcp.ResetDatabasePayload:
			return mcp.Reply(msg, NameRetrieval, mcp.DatabaseResetSuccessPayload{Status: "SUCCESS"}), nil
		default:
			return mcp.Message{}, mcp.UnsupportedType(NameRetrieval, msg.Type)
		}
	}}
}

// okResponse answers GENERATE_RESPONSE with a fixed final answer.
func okResponse(final string) *scriptedHandler {
	return &scriptedHandler{fn: func(msg mcp.Message) (mcp.Message, error) {
		return mcp.Reply(msg, NameResponse, mcp.FinalResponsePayload{FinalResponse: final}), nil
	}}
}

// captureRecorder remembers every recorded turn.
type captureRecorder struct {
	records []TurnRecord
}

func (r *captureRecorder) Record(_ context.Context, rec TurnRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func newTestCoordinator(t *testing.T, ing, ret, res Handler, rec TurnRecorder) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(&CoordinatorConfig{
		Ingestion: ing,
		Retrieval: ret,
		Response:  res,
		Recorder:  rec,
	})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	return c
}

func Test_HandleTurn_FullPipeline(t *testing.T) {
	t.Parallel()

	chunks := []rag.Chunk{{ID: "a", Text: "the sky is blue"}}
	ing := okIngestion(chunks)
	ret := okRetrieval([]string{"the sky is blue"})
	res := okResponse("The sky is blue.")
	c := newTestCoordinator(t, ing, ret, res, nil)

	got := c.HandleTurn(context.Background(), "what color is the sky?", t.TempDir())
	if got != "The sky is blue." {
		t.Errorf("want final answer, got %q", got)
	}

	// Stage order: ingest, add, retrieve, generate.
	if len(ing.received) != 1 || ing.received[0].Type != mcp.TypeIngest {
		t.Errorf("want one INGEST, got %v", ing.received)
	}
	if len(ret.received) != 2 {
		t.Fatalf("want ADD_CHUNKS then RETRIEVE, got %d messages", len(ret.received))
	}
	if ret.received[0].Type != mcp.TypeAddChunks || ret.received[1].Type != mcp.TypeRetrieve {
		t.Errorf("retrieval message order wrong: %v, %v", ret.received[0].Type, ret.received[1].Type)
	}
	if len(res.received) != 1 || res.received[0].Type != mcp.TypeGenerateResponse {
		t.Errorf("want one GENERATE_RESPONSE, got %v", res.received)
	}

	gen := res.received[0].Payload.(mcp.GenerateResponsePayload)
	if gen.Question != "what color is the sky?" {
		t.Errorf("question must pass through verbatim, got %q", gen.Question)
	}
	if len(gen.TopChunks) != 1 || gen.TopChunks[0] != "the sky is blue" {
		t.Errorf("retrieved chunks must reach generation, got %v", gen.TopChunks)
	}
}

func Test_HandleTurn_OneTraceIDPerTurn(t *testing.T) {
	t.Parallel()

	ing := okIngestion([]rag.Chunk{{ID: "a", Text: "x"}})
	ret := okRetrieval(nil)
	res := okResponse("ok")
	c := newTestCoordinator(t, ing, ret, res, nil)

	c.HandleTurn(context.Background(), "q", t.TempDir())

	traceID := ing.received[0].TraceID
	if _, err := uuid.Parse(traceID); err != nil {
		t.Fatalf("trace id %q is not a UUID: %v", traceID, err)
	}
	for _, msg := range append(ret.received, res.received...) {
		if msg.TraceID != traceID {
			t.Errorf("message %s carries trace %q, want %q", msg.Type, msg.TraceID, traceID)
		}
	}

	// A second turn gets a fresh trace id.
	c.HandleTurn(context.Background(), "q2", t.TempDir())
	if ing.received[1].TraceID == traceID {
		t.Error("each turn must get its own trace id")
	}
}

func Test_HandleTurn_NoDocumentsShortCircuits(t *testing.T) {
	t.Parallel()

	ing := okIngestion(nil)
	ret := okRetrieval(nil)
	res := okResponse("never")
	c := newTestCoordinator(t, ing, ret, res, nil)

	got := c.HandleTurn(context.Background(), "anything", t.TempDir())
	if got != "No documents found to process. Please upload documents first." {
		t.Errorf("want no-documents notice, got %q", got)
	}
	if len(ret.received) != 0 {
		t.Errorf("retrieval must not run without documents, got %d calls", len(ret.received))
	}
	if len(res.received) != 0 {
		t.Errorf("generation must not run without documents, got %d calls", len(res.received))
	}
}

func Test_HandleTurn_IngestionErrorShortCircuits(t *testing.T) {
	t.Parallel()

	ing := &scriptedHandler{fn: func(mcp.Message) (mcp.Message, error) {
		return mcp.Message{}, errors.New("disk on fire")
	}}
	ret := okRetrieval(nil)
	res := okResponse("never")
	c := newTestCoordinator(t, ing, ret, res, nil)

	got := c.HandleTurn(context.Background(), "anything", t.TempDir())
	if got != "No documents found to process. Please upload documents first." {
		t.Errorf("want no-documents notice on ingestion failure, got %q", got)
	}
	if len(ret.received) != 0 || len(res.received) != 0 {
		t.Error("downstream stages must not run after ingestion failure")
	}
}

func Test_HandleTurn_IndexingFailureDoesNotAbortTurn(t *testing.T) {
	t.Parallel()

	ing := okIngestion([]rag.Chunk{{ID: "a", Text: "x"}})
	ret := &scriptedHandler{fn: func(msg mcp.Message) (mcp.Message, error) {
		switch p := msg.Payload.(type) {
		case mcp.AddChunksPayload:
			return mcp.Message{}, errors.New("qdrant write failed")
		case mcp.RetrievePayload:
			return mcp.Reply(msg, NameRetrieval, mcp.ContextResponsePayload{TopChunks: []string{"stale context"}, Query: p.Question}), nil
		default:
			return mcp.Message{}, mcp.UnsupportedType(NameRetrieval, msg.Type)
		}
	}}
	res := okResponse("answer from stale context")
	c := newTestCoordinator(t, ing, ret, res, nil)

	got := c.HandleTurn(context.Background(), "q", t.TempDir())
	if got != "answer from stale context" {
		t.Errorf("turn must continue past an indexing failure, got %q", got)
	}
}

func Test_HandleTurn_RetrievalFailureDegradesToEmptyContext(t *testing.T) {
	t.Parallel()

	ing := okIngestion([]rag.Chunk{{ID: "a", Text: "x"}})
	ret := &scriptedHandler{fn: func(msg mcp.Message) (mcp.Message, error) {
		if _, ok := msg.Payload.(mcp.AddChunksPayload); ok {
			return mcp.Reply(msg, NameRetrieval, mcp.ChunksAddedPayload{Count: 1}), nil
		}
		return mcp.Message{}, errors.New("search timed out")
	}}
	res := okResponse("grounded refusal")
	c := newTestCoordinator(t, ing, ret, res, nil)

	got := c.HandleTurn(context.Background(), "q", t.TempDir())
	if got != "grounded refusal" {
		t.Errorf("generation must still run, got %q", got)
	}
	gen := res.received[0].Payload.(mcp.GenerateResponsePayload)
	if len(gen.TopChunks) != 0 {
		t.Errorf("failed retrieval must yield empty context, got %v", gen.TopChunks)
	}
}

func Test_HandleTurn_ResetBranch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("content"), 0o600); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ing := okIngestion(nil)
	ret := okRetrieval(nil)
	res := okResponse("never")
	c := newTestCoordinator(t, ing, ret, res, nil)

	got := c.HandleTurn(context.Background(), ClearAllData, dir)
	if got != "✅ Successfully cleared all data from the database and document folder." {
		t.Errorf("want reset success message, got %q", got)
	}

	if len(ret.received) != 1 || ret.received[0].Type != mcp.TypeResetDatabase {
		t.Fatalf("want exactly one RESET_DATABASE, got %v", ret.received)
	}
	if len(ing.received) != 0 || len(res.received) != 0 {
		t.Error("reset branch must not touch ingestion or generation")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("document directory must be emptied, still has %d entries", len(entries))
	}
}

func Test_HandleTurn_ResetFailureReportsError(t *testing.T) {
	t.Parallel()

	ret := &scriptedHandler{fn: func(mcp.Message) (mcp.Message, error) {
		return mcp.Message{}, errors.New("collection delete refused")
	}}
	c := newTestCoordinator(t, okIngestion(nil), ret, okResponse("never"), nil)

	got := c.HandleTurn(context.Background(), ClearAllData, t.TempDir())
	if !strings.HasPrefix(got, "❌ Error during cleanup:") {
		t.Errorf("want cleanup error message, got %q", got)
	}
}

func Test_HandleTurn_ResetMissingDirectoryIsFine(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t, okIngestion(nil), okRetrieval(nil), okResponse("never"), nil)

	got := c.HandleTurn(context.Background(), ClearAllData, filepath.Join(t.TempDir(), "gone"))
	if !strings.HasPrefix(got, "✅") {
		t.Errorf("missing document directory must not fail the reset, got %q", got)
	}
}

func Test_HandleTurn_RecordsCompletedTurn(t *testing.T) {
	t.Parallel()

	rec := &captureRecorder{}
	c := newTestCoordinator(t,
		okIngestion([]rag.Chunk{{ID: "a", Text: "x"}}),
		okRetrieval([]string{"ctx1", "ctx2"}),
		okResponse("final"),
		rec,
	)

	c.HandleTurn(context.Background(), "my question", t.TempDir())

	if len(rec.records) != 1 {
		t.Fatalf("want 1 recorded turn, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Question != "my question" || r.Answer != "final" || r.ContextChunks != 2 {
		t.Errorf("recorded turn fields wrong: %+v", r)
	}
	if _, err := uuid.Parse(r.TraceID); err != nil {
		t.Errorf("recorded trace id %q is not a UUID", r.TraceID)
	}
}

func Test_HandleTurn_RecorderFailureDoesNotAffectAnswer(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t,
		okIngestion([]rag.Chunk{{ID: "a", Text: "x"}}),
		okRetrieval(nil),
		okResponse("final"),
		failingRecorder{},
	)

	if got := c.HandleTurn(context.Background(), "q", t.TempDir()); got != "final" {
		t.Errorf("recorder failure must not change the answer, got %q", got)
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, TurnRecord) error {
	return errors.New("sqlite locked")
}
