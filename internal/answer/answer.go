// Package answer turns a question plus retrieved context chunks into a final
// grounded response. It is the only package that talks to the chat model, and
// it never lets a model failure escape: callers always receive a displayable
// string.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docqa/docqa-go/internal/logging"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 60 * time.Second

// Fallback is returned whenever generation fails for any reason. The UI shows
// it verbatim, so model and transport errors never leak to the end user.
const Fallback = "An error occurred while trying to generate an answer. Please check the logs."

// systemPrompt establishes the grounding contract: answer strictly from the
// supplied context, and refuse in a fixed phrase when the context is silent.
const systemPrompt = `You are a helpful assistant that answers user questions using the provided context.
Your goal is to be accurate and concise.

If the answer is present in the context, formulate a clear response.
If the answer is not present in the context, respond with "I am sorry, but I cannot answer this question based on the provided documents."`

// Generator produces grounded answers from a chat model.
type Generator struct {
	// model is the chat backend used for generation.
	model model.BaseChatModel

	// timeout bounds each Generate call.
	timeout time.Duration
}

// Config holds the settings for constructing a Generator.
type Config struct {
	// Model is the chat backend. Required.
	Model model.BaseChatModel

	// Timeout bounds each generation call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// New constructs a Generator from the given config.
func New(cfg *Config) (*Generator, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("answer: model must not be nil")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{model: cfg.Model, timeout: timeout}, nil
}

// Generate produces a final answer for the question grounded in the context
// chunks. It never returns an error: any failure is logged and mapped to the
// Fallback string so every turn ends with something to display.
func (g *Generator) Generate(ctx context.Context, question string, contextChunks []string) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(question, contextChunks)),
	}

	resp, err := g.model.Generate(ctx, msgs)
	if err != nil {
		logging.FromContext(ctx).Error("answer generation failed",
			slog.Any("error", err),
			slog.Int("context_chunks", len(contextChunks)),
		)
		return Fallback
	}
	if resp == nil || resp.Content == "" {
		logging.FromContext(ctx).Error("answer generation returned empty response")
		return Fallback
	}
	return resp.Content
}

// buildUserPrompt renders the context block and question. Chunks are joined
// with blank lines and fenced between --- markers so the model can tell
// retrieved text from instructions.
func buildUserPrompt(question string, contextChunks []string) string {
	var b strings.Builder
	b.WriteString("Context:\n---\n")
	b.WriteString(strings.Join(contextChunks, "\n\n"))
	b.WriteString("\n---\n\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
