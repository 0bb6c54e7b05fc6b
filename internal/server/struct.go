package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// UploadDir is the directory where uploaded documents are stored and
	// from which every chat turn ingests (default: ./Documents).
	UploadDir string
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// Registry receives the server's Prometheus metrics and backs GET /metrics.
	// If nil a fresh registry is created.
	Registry *prometheus.Registry
	// MaxUploadBytes caps the size of a single document upload.
	// Defaults to 32 MiB if zero.
	MaxUploadBytes int64
}

// chatter is the interface the handlers call to run a QA turn or reset all
// data. *agents.Coordinator satisfies it; tests inject a fake.
type chatter interface {
	// HandleTurn runs one full QA turn and returns the text to display.
	HandleTurn(ctx context.Context, question, documentPath string) string
	// Reset clears the vector index and empties the document directory.
	Reset(ctx context.Context, documentPath string) string
}

// Server is the HTTP server that exposes the QA pipeline as a REST API.
type Server struct {
	// coordinator runs the QA pipeline for chat and reset requests.
	coordinator chatter
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus metrics owned by this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	// Answer is the final response text for the question.
	Answer string `json:"answer"`
}

// resetResponse is the JSON response for POST /api/reset.
type resetResponse struct {
	// Status is the human-readable outcome of the reset.
	Status string `json:"status"`
}

// documentInfo describes one uploaded document in GET /api/documents.
type documentInfo struct {
	// Name is the file name relative to the upload directory.
	Name string `json:"name"`
	// SizeBytes is the file size in bytes.
	SizeBytes int64 `json:"sizeBytes"`
	// ModifiedAt is the last modification time in RFC 3339 format.
	ModifiedAt string `json:"modifiedAt"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// HasDocuments is true when the upload directory holds at least one file.
	// Clients use it to decide whether to offer the question box.
	HasDocuments bool `json:"hasDocuments"`
	// Documents lists the files currently in the upload directory.
	Documents []documentInfo `json:"documents"`
}

// uploadResponse is the JSON response for POST /api/documents.
type uploadResponse struct {
	// Saved lists the file names that were stored.
	Saved []string `json:"saved"`
	// Skipped lists uploaded file names that were rejected with the reason.
	Skipped []string `json:"skipped,omitempty"`
}
