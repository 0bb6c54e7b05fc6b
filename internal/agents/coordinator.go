package agents

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/mcp"
)

// ClearAllData is the sentinel question that triggers the destructive reset
// branch instead of the QA pipeline.
const ClearAllData = "CLEAR_ALL_DATA"

// Status strings shown to the user by the reset branch.
const (
	resetSuccess = "✅ Successfully cleared all data from the database and document folder."
	noDocuments  = "No documents found to process. Please upload documents first."
)

// TurnRecord is the audit entry for one completed QA turn.
type TurnRecord struct {
	// TraceID is the turn's correlation id.
	TraceID string
	// Question is the user's question verbatim.
	Question string
	// Answer is the final response shown to the user.
	Answer string
	// ContextChunks is the number of retrieved chunks fed to generation.
	ContextChunks int
	// Duration is the wall-clock time of the whole turn.
	Duration time.Duration
}

// TurnRecorder persists completed turns for later inspection. Recording is
// best effort; failures are logged and never affect the turn's answer.
type TurnRecorder interface {
	Record(ctx context.Context, rec TurnRecord) error
}

// Coordinator sequences the pipeline stages for one user turn. Each turn is
// assigned a single trace id that every inter-stage message carries.
type Coordinator struct {
	ingestion Handler
	retrieval Handler
	response  Handler

	// recorder persists turn audit entries. May be nil.
	recorder TurnRecorder

	// topK is the number of context chunks requested per turn.
	topK int
}

// CoordinatorConfig holds the dependencies for constructing a Coordinator.
type CoordinatorConfig struct {
	// Ingestion serves INGEST. Required.
	Ingestion Handler
	// Retrieval serves ADD_CHUNKS, RETRIEVE, and RESET_DATABASE. Required.
	Retrieval Handler
	// Response serves GENERATE_RESPONSE. Required.
	Response Handler
	// Recorder persists turn audit entries. Optional.
	Recorder TurnRecorder
	// TopK is the context chunk count per turn. Defaults to 3.
	TopK int
}

// NewCoordinator constructs a Coordinator from the given config.
func NewCoordinator(cfg *CoordinatorConfig) (*Coordinator, error) {
	if cfg.Ingestion == nil || cfg.Retrieval == nil || cfg.Response == nil {
		return nil, fmt.Errorf("agents: coordinator requires ingestion, retrieval, and response handlers")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	return &Coordinator{
		ingestion: cfg.Ingestion,
		retrieval: cfg.Retrieval,
		response:  cfg.Response,
		recorder:  cfg.Recorder,
		topK:      topK,
	}, nil
}

// HandleTurn runs one full user turn and returns the text to display. The
// sentinel question ClearAllData routes to the reset branch; everything else
// runs ingest → add → retrieve → generate. HandleTurn always returns a
// displayable string — stage failures degrade the answer rather than aborting
// the turn.
func (c *Coordinator) HandleTurn(ctx context.Context, question, documentPath string) string {
	if question == ClearAllData {
		return c.reset(ctx, documentPath)
	}

	start := time.Now()
	traceID := ""
	log := logging.FromContext(ctx)

	// Ingestion. Documents are re-ingested every turn; chunk upserts are
	// idempotent, so repeat content never duplicates in the index.
	ingestMsg := mcp.New(NameCoordinator, NameIngestion, mcp.IngestPayload{DocumentPath: documentPath}, traceID)
	traceID = ingestMsg.TraceID
	log = log.With(slog.String("trace_id", traceID))

	ingestReply, err := c.ingestion.Handle(ctx, ingestMsg)
	if err != nil {
		log.Error("ingestion stage failed", slog.Any("error", err))
		return noDocuments
	}
	complete, ok := ingestReply.Payload.(mcp.IngestionCompletePayload)
	if !ok || len(complete.Chunks) == 0 {
		return noDocuments
	}

	// Indexing. The acknowledgement is not needed for the rest of the turn,
	// so a failure here is logged and the turn continues with whatever is
	// already in the index.
	addMsg := mcp.New(NameCoordinator, NameRetrieval, mcp.AddChunksPayload{Chunks: complete.Chunks}, traceID)
	if _, err := c.retrieval.Handle(ctx, addMsg); err != nil {
		log.Warn("indexing stage failed", slog.Any("error", err))
	}

	// Retrieval. A failure degrades to generation with no context, which the
	// grounding prompt turns into the fixed refusal phrase.
	var topChunks []string
	retrieveMsg := mcp.New(NameCoordinator, NameRetrieval, mcp.RetrievePayload{Question: question, NResults: c.topK}, traceID)
	retrieveReply, err := c.retrieval.Handle(ctx, retrieveMsg)
	if err != nil {
		log.Warn("retrieval stage failed", slog.Any("error", err))
	} else if resp, ok := retrieveReply.Payload.(mcp.ContextResponsePayload); ok {
		topChunks = resp.TopChunks
	}

	// Generation.
	genMsg := mcp.New(NameCoordinator, NameResponse, mcp.GenerateResponsePayload{Question: question, TopChunks: topChunks}, traceID)
	genReply, err := c.response.Handle(ctx, genMsg)
	if err != nil {
		log.Error("generation stage failed", slog.Any("error", err))
		return "An error occurred while trying to generate an answer. Please check the logs."
	}
	final, ok := genReply.Payload.(mcp.FinalResponsePayload)
	if !ok {
		log.Error("generation stage returned unexpected payload", slog.String("type", string(genReply.Type)))
		return "An error occurred while trying to generate an answer. Please check the logs."
	}

	c.record(ctx, TurnRecord{
		TraceID:       traceID,
		Question:      question,
		Answer:        final.FinalResponse,
		ContextChunks: len(topChunks),
		Duration:      time.Since(start),
	})
	return final.FinalResponse
}

// Reset clears the vector index and empties the document directory. It is the
// programmatic equivalent of the ClearAllData sentinel.
func (c *Coordinator) Reset(ctx context.Context, documentPath string) string {
	return c.reset(ctx, documentPath)
}

func (c *Coordinator) reset(ctx context.Context, documentPath string) string {
	resetMsg := mcp.New(NameCoordinator, NameRetrieval, mcp.ResetDatabasePayload{}, "")
	if _, err := c.retrieval.Handle(ctx, resetMsg); err != nil {
		return fmt.Sprintf("❌ Error during cleanup: %v", err)
	}
	if err := emptyDirectory(ctx, documentPath); err != nil {
		return fmt.Sprintf("❌ Error during cleanup: %v", err)
	}
	logging.FromContext(ctx).Info("all data cleared",
		slog.String("trace_id", resetMsg.TraceID),
		slog.String("document_path", documentPath),
	)
	return resetSuccess
}

// record persists the turn audit entry when a recorder is configured.
func (c *Coordinator) record(ctx context.Context, rec TurnRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, rec); err != nil {
		logging.FromContext(ctx).Warn("recording turn failed",
			slog.String("trace_id", rec.TraceID),
			slog.Any("error", err),
		)
	}
}

// emptyDirectory removes every entry inside dir while keeping dir itself. A
// missing directory is fine. Entries that cannot be removed are logged and
// skipped so one stuck file does not abort the cleanup.
func emptyDirectory(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("agents: reading document directory: %w", err)
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logging.FromContext(ctx).Warn("removing document failed",
				slog.String("path", path),
				slog.Any("error", err),
			)
		}
	}
	return nil
}
