// Package agents implements the pipeline stages as message handlers and the
// coordinator that sequences them. Each stage receives a typed protocol
// message and answers with exactly one reply carrying the same trace id.
package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docqa/docqa-go/internal/answer"
	"github.com/docqa/docqa-go/internal/engine"
	"github.com/docqa/docqa-go/internal/ingest"
	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/mcp"
)

// Logical stage names used as message senders and receivers.
const (
	NameCoordinator = "Coordinator"
	NameIngestion   = "IngestionAgent"
	NameRetrieval   = "RetrievalAgent"
	NameResponse    = "LLMResponseAgent"
)

// Handler is a pipeline stage that consumes one protocol message and
// produces its reply.
type Handler interface {
	Handle(ctx context.Context, msg mcp.Message) (mcp.Message, error)
}

// IngestionAgent serves INGEST requests by loading and chunking documents.
type IngestionAgent struct {
	pipeline *ingest.Pipeline
}

// NewIngestionAgent constructs an IngestionAgent over the given pipeline.
func NewIngestionAgent(p *ingest.Pipeline) *IngestionAgent {
	return &IngestionAgent{pipeline: p}
}

// Handle serves INGEST and replies with INGESTION_COMPLETE. A path with no
// usable documents yields an empty chunk list, not an error.
func (a *IngestionAgent) Handle(ctx context.Context, msg mcp.Message) (mcp.Message, error) {
	p, ok := msg.Payload.(mcp.IngestPayload)
	if !ok {
		return mcp.Message{}, mcp.UnsupportedType(NameIngestion, msg.Type)
	}

	chunks, err := a.pipeline.Ingest(ctx, p.DocumentPath)
	if err != nil {
		return mcp.Message{}, fmt.Errorf("agents: ingestion failed: %w", err)
	}

	logging.FromContext(ctx).Info("ingestion complete",
		slog.String("trace_id", msg.TraceID),
		slog.Int("chunks", len(chunks)),
	)
	return mcp.Reply(msg, NameIngestion, mcp.IngestionCompletePayload{Chunks: chunks}), nil
}

// RetrievalAgent serves ADD_CHUNKS, RETRIEVE, and RESET_DATABASE against the
// retrieval engine.
type RetrievalAgent struct {
	engine *engine.Engine
}

// NewRetrievalAgent constructs a RetrievalAgent over the given engine.
func NewRetrievalAgent(e *engine.Engine) *RetrievalAgent {
	return &RetrievalAgent{engine: e}
}

// Handle dispatches on the message type:
//
//	ADD_CHUNKS     → CHUNKS_ADDED
//	RETRIEVE       → CONTEXT_RESPONSE
//	RESET_DATABASE → DATABASE_RESET_SUCCESS
func (a *RetrievalAgent) Handle(ctx context.Context, msg mcp.Message) (mcp.Message, error) {
	switch p := msg.Payload.(type) {
	case mcp.AddChunksPayload:
		if err := a.engine.Add(ctx, p.Chunks); err != nil {
			return mcp.Message{}, fmt.Errorf("agents: adding chunks failed: %w", err)
		}
		return mcp.Reply(msg, NameRetrieval, mcp.ChunksAddedPayload{Count: len(p.Chunks)}), nil

	case mcp.RetrievePayload:
		texts, err := a.engine.Query(ctx, p.Question, p.NResults)
		if err != nil {
			return mcp.Message{}, fmt.Errorf("agents: retrieval failed: %w", err)
		}
		return mcp.Reply(msg, NameRetrieval, mcp.ContextResponsePayload{TopChunks: texts, Query: p.Question}), nil

	case mcp.ResetDatabasePayload:
		if err := a.engine.Reset(ctx); err != nil {
			return mcp.Message{}, fmt.Errorf("agents: reset failed: %w", err)
		}
		return mcp.Reply(msg, NameRetrieval, mcp.DatabaseResetSuccessPayload{Status: "SUCCESS"}), nil

	default:
		return mcp.Message{}, mcp.UnsupportedType(NameRetrieval, msg.Type)
	}
}

// ResponseAgent serves GENERATE_RESPONSE by synthesizing a grounded answer.
type ResponseAgent struct {
	generator *answer.Generator
}

// NewResponseAgent constructs a ResponseAgent over the given generator.
func NewResponseAgent(g *answer.Generator) *ResponseAgent {
	return &ResponseAgent{generator: g}
}

// Handle serves GENERATE_RESPONSE and replies with FINAL_RESPONSE. Generation
// failures surface as a fallback answer inside the reply, never as an error.
func (a *ResponseAgent) Handle(ctx context.Context, msg mcp.Message) (mcp.Message, error) {
	p, ok := msg.Payload.(mcp.GenerateResponsePayload)
	if !ok {
		return mcp.Message{}, mcp.UnsupportedType(NameResponse, msg.Type)
	}

	final := a.generator.Generate(ctx, p.Question, p.TopChunks)
	return mcp.Reply(msg, NameResponse, mcp.FinalResponsePayload{FinalResponse: final}), nil
}
