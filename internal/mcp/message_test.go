package mcp

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func Test_New_GeneratesTraceIDWhenAbsent(t *testing.T) {
	t.Parallel()

	msg := New("Coordinator", "IngestionAgent", IngestPayload{DocumentPath: "/docs"}, "")
	if msg.TraceID == "" {
		t.Fatal("want generated trace id, got empty")
	}
	if _, err := uuid.Parse(msg.TraceID); err != nil {
		t.Errorf("trace id %q is not a UUID: %v", msg.TraceID, err)
	}
}

func Test_New_PreservesExplicitTraceID(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	msg := New("Coordinator", "RetrievalAgent", ResetDatabasePayload{}, id)
	if msg.TraceID != id {
		t.Errorf("want trace id %q, got %q", id, msg.TraceID)
	}
}

func Test_New_TypeDerivedFromPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload Payload
		want    Type
	}{
		{"ingest", IngestPayload{}, TypeIngest},
		{"ingestion complete", IngestionCompletePayload{}, TypeIngestionComplete},
		{"add chunks", AddChunksPayload{}, TypeAddChunks},
		{"chunks added", ChunksAddedPayload{}, TypeChunksAdded},
		{"retrieve", RetrievePayload{}, TypeRetrieve},
		{"context response", ContextResponsePayload{}, TypeContextResponse},
		{"reset database", ResetDatabasePayload{}, TypeResetDatabase},
		{"database reset success", DatabaseResetSuccessPayload{}, TypeDatabaseResetSuccess},
		{"generate response", GenerateResponsePayload{}, TypeGenerateResponse},
		{"final response", FinalResponsePayload{}, TypeFinalResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := New("a", "b", tt.payload, "trace")
			if msg.Type != tt.want {
				t.Errorf("want type %q, got %q", tt.want, msg.Type)
			}
		})
	}
}

func Test_Reply_CopiesTraceIDAndSwapsDirection(t *testing.T) {
	t.Parallel()

	req := New("Coordinator", "RetrievalAgent", RetrievePayload{Question: "what is x?"}, "")
	reply := Reply(req, "RetrievalAgent", ContextResponsePayload{Query: "what is x?"})

	if reply.TraceID != req.TraceID {
		t.Errorf("reply trace id %q does not match request %q", reply.TraceID, req.TraceID)
	}
	if reply.Sender != "RetrievalAgent" {
		t.Errorf("want sender RetrievalAgent, got %q", reply.Sender)
	}
	if reply.Receiver != "Coordinator" {
		t.Errorf("want receiver Coordinator, got %q", reply.Receiver)
	}
	if reply.Type != TypeContextResponse {
		t.Errorf("want type %q, got %q", TypeContextResponse, reply.Type)
	}
}

func Test_UnsupportedType_MatchesSentinel(t *testing.T) {
	t.Parallel()

	err := UnsupportedType("RetrievalAgent", TypeGenerateResponse)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("want errors.Is(err, ErrUnsupportedType), got %v", err)
	}
}
