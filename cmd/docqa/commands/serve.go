package commands

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/qdrant/go-client/qdrant"
	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/server"
	"github.com/docqa/docqa-go/internal/tracing"
)

// NewServeCmd creates the serve command that runs the HTTP API server.
func NewServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Starts an HTTP server exposing the QA pipeline as a REST API:

  POST /api/chat       ask a question, get a grounded answer
  POST /api/documents  upload documents (multipart, form key "files")
  GET  /api/documents  list uploaded documents
  POST /api/reset      clear the vector store and document directory
  GET  /api/health     liveness probe
  GET  /api/ready      readiness probe (checks vector store and embedder)
  GET  /metrics        Prometheus metrics

The server shuts down gracefully on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()

			// Langfuse tracing is opt-in via LANGFUSE_PUBLIC_KEY/SECRET_KEY.
			if handler, flush, ok := tracing.Setup(); ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			s, err := buildStack(ctx, log)
			if err != nil {
				return err
			}
			defer s.close(log)

			// Explicit flags win over env configuration.
			if !cmd.Flags().Changed("host") {
				host = envOrDefault("DOCQA_SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = envInt("DOCQA_SERVER_PORT", port)
			}

			srv, err := server.New(s.coordinator, &server.Config{
				Host:      host,
				Port:      port,
				UploadDir: uploadDir(),
				Logger:    log,
				Pingers:   buildPingers(s, log),
				RateLimit: envFloat("DOCQA_RATE_LIMIT", 0),
				RateBurst: envInt("DOCQA_RATE_BURST", 0),
			})
			if err != nil {
				return err
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Address to bind the server to")
	cmd.Flags().IntVar(&port, "port", 8080, "TCP port to listen on")

	return cmd
}

// buildPingers assembles the readiness probes for the configured backends.
// Probe failures at startup are not fatal: /api/ready reports them per
// request so orchestrators can hold traffic until dependencies recover.
func buildPingers(s *stack, log *slog.Logger) []server.Pinger {
	var pingers []server.Pinger

	if envOrDefault("DOCQA_VECTOR_BACKEND", "qdrant") == "qdrant" {
		cfg := qdrantConfigFromEnv()
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:   cfg.Host,
			Port:   cfg.Port,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})
		if err != nil {
			log.Warn("qdrant readiness probe unavailable", slog.String("error", err.Error()))
		} else {
			pingers = append(pingers, server.NewQdrantPinger(client))
		}
	}

	pingers = append(pingers, server.NewEmbedderPinger(s.embedder.Embed, "embedder"))

	return pingers
}
