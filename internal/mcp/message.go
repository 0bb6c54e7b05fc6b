// Package mcp implements the structured message-passing protocol between the
// pipeline stages. Every inter-stage call is a request Message answered by
// exactly one reply Message carrying the same trace id, so a single user turn
// can be correlated across ingestion, retrieval, and generation in logs.
//
// Payloads form a closed set of typed variants — one per protocol message
// type — and the message type is derived from the payload variant. A stage
// can therefore never emit a reply whose type and payload shape disagree.
package mcp

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/docqa/docqa-go/internal/rag"
)

// Type identifies the protocol message kind.
type Type string

// Protocol message types. Request/reply pairing:
//
//	INGEST            → INGESTION_COMPLETE
//	ADD_CHUNKS        → CHUNKS_ADDED
//	RETRIEVE          → CONTEXT_RESPONSE
//	RESET_DATABASE    → DATABASE_RESET_SUCCESS
//	GENERATE_RESPONSE → FINAL_RESPONSE
const (
	TypeIngest               Type = "INGEST"
	TypeIngestionComplete    Type = "INGESTION_COMPLETE"
	TypeAddChunks            Type = "ADD_CHUNKS"
	TypeChunksAdded          Type = "CHUNKS_ADDED"
	TypeRetrieve             Type = "RETRIEVE"
	TypeContextResponse      Type = "CONTEXT_RESPONSE"
	TypeResetDatabase        Type = "RESET_DATABASE"
	TypeDatabaseResetSuccess Type = "DATABASE_RESET_SUCCESS"
	TypeGenerateResponse     Type = "GENERATE_RESPONSE"
	TypeFinalResponse        Type = "FINAL_RESPONSE"
)

// ErrUnsupportedType is returned by a stage handler that receives a message
// type it does not serve. This is a protocol contract violation — a broken
// caller, not a runtime condition — and propagates as a hard failure.
var ErrUnsupportedType = errors.New("mcp: unsupported message type")

// Payload is the closed interface implemented by every protocol payload
// variant. messageType binds each variant to exactly one message type.
type Payload interface {
	messageType() Type
}

// IngestPayload requests ingestion of all documents under DocumentPath.
type IngestPayload struct {
	// DocumentPath is the file or directory to ingest, resolved recursively.
	DocumentPath string
}

// IngestionCompletePayload carries the chunks produced by an ingestion run.
// Chunks is empty (never nil semantics-bearing) when no documents were found.
type IngestionCompletePayload struct {
	Chunks []rag.Chunk
}

// AddChunksPayload requests that the retrieval engine embed and upsert Chunks.
type AddChunksPayload struct {
	Chunks []rag.Chunk
}

// ChunksAddedPayload acknowledges an add with the number of chunks indexed.
type ChunksAddedPayload struct {
	Count int
}

// RetrievePayload requests the top-NResults chunks for Question.
// NResults <= 0 selects the engine's configured default.
type RetrievePayload struct {
	Question string
	NResults int
}

// ContextResponsePayload carries the retrieved chunk texts in rank order,
// most relevant first, together with the query they answer.
type ContextResponsePayload struct {
	TopChunks []string
	Query     string
}

// ResetDatabasePayload requests a destructive reset of the vector index.
type ResetDatabasePayload struct{}

// DatabaseResetSuccessPayload acknowledges a completed reset.
type DatabaseResetSuccessPayload struct {
	// Status is always "SUCCESS"; a failed reset is an error, not a reply.
	Status string
}

// GenerateResponsePayload requests an answer to Question grounded in TopChunks.
type GenerateResponsePayload struct {
	Question  string
	TopChunks []string
}

// FinalResponsePayload carries the synthesized answer text.
type FinalResponsePayload struct {
	FinalResponse string
}

func (IngestPayload) messageType() Type               { return TypeIngest }
func (IngestionCompletePayload) messageType() Type    { return TypeIngestionComplete }
func (AddChunksPayload) messageType() Type            { return TypeAddChunks }
func (ChunksAddedPayload) messageType() Type          { return TypeChunksAdded }
func (RetrievePayload) messageType() Type             { return TypeRetrieve }
func (ContextResponsePayload) messageType() Type      { return TypeContextResponse }
func (ResetDatabasePayload) messageType() Type        { return TypeResetDatabase }
func (DatabaseResetSuccessPayload) messageType() Type { return TypeDatabaseResetSuccess }
func (GenerateResponsePayload) messageType() Type     { return TypeGenerateResponse }
func (FinalResponsePayload) messageType() Type        { return TypeFinalResponse }

// Message is the uniform envelope for all inter-stage calls. Messages are
// created per call and discarded once the coordinator consumes the reply;
// they are never persisted.
type Message struct {
	// Sender is the logical name of the originating component.
	Sender string

	// Receiver is the logical name of the destination component.
	Receiver string

	// Type is the protocol message type, always derived from Payload.
	Type Type

	// TraceID correlates every message belonging to one user turn (UUID).
	TraceID string

	// Payload is the typed payload variant for Type.
	Payload Payload
}

// New constructs a Message. The message type is taken from the payload
// variant. If traceID is empty a fresh UUID is generated.
func New(sender, receiver string, payload Payload, traceID string) Message {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return Message{
		Sender:   sender,
		Receiver: receiver,
		Type:     payload.messageType(),
		TraceID:  traceID,
		Payload:  payload,
	}
}

// Reply constructs the reply to req: the sender becomes the replying stage,
// the receiver is the original sender, and the trace id is copied so callers
// can correlate the exchange.
func Reply(req Message, sender string, payload Payload) Message {
	return New(sender, req.Sender, payload, req.TraceID)
}

// UnsupportedType wraps ErrUnsupportedType with the handler and offending
// type, preserving errors.Is matching.
func UnsupportedType(handler string, got Type) error {
	return fmt.Errorf("%w: %s received %q", ErrUnsupportedType, handler, got)
}
