// Package ingest implements the document ingestion stage: it resolves a
// document path recursively, extracts plain text from each supported file,
// and splits the text into paragraph chunks with generated identifiers.
// Per-file failures are logged and skipped so one bad upload never aborts
// the batch.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/parser"
	"github.com/docqa/docqa-go/internal/rag"
)

// DefaultMinChunkChars is the minimum trimmed paragraph length that survives
// the noise filter. A tuning constant, not a semantic guarantee.
const DefaultMinChunkChars = 50

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// MinChunkChars is the minimum trimmed length of a paragraph for it to
	// become a chunk. Defaults to DefaultMinChunkChars if zero.
	MinChunkChars int
}

// Pipeline turns a document path into a flat list of chunks.
type Pipeline struct {
	// cfg holds the resolved pipeline configuration.
	cfg Config
}

// NewPipeline constructs a Pipeline, normalising zero-valued config fields.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.MinChunkChars <= 0 {
		cfg.MinChunkChars = DefaultMinChunkChars
	}
	return &Pipeline{cfg: cfg}
}

// Ingest loads every document under documentPath (a file or a directory,
// resolved recursively), splits each document into paragraph chunks, and
// returns the chunks with fresh UUIDs. An empty or unsupported directory
// yields an empty slice and a nil error — the caller distinguishes "nothing
// to index" from a real failure. Only a path that cannot be walked at all
// is an error.
func (p *Pipeline) Ingest(ctx context.Context, documentPath string) ([]rag.Chunk, error) {
	log := logging.FromContext(ctx)

	texts, err := p.loadDocuments(ctx, documentPath)
	if err != nil {
		return nil, err
	}

	chunks := make([]rag.Chunk, 0, len(texts))
	for _, text := range texts {
		for _, para := range splitParagraphs(text, p.cfg.MinChunkChars) {
			chunks = append(chunks, rag.Chunk{
				ID:   uuid.NewString(),
				Text: para,
			})
		}
	}

	log.Debug("ingestion complete",
		slog.String("path", documentPath),
		slog.Int("documents", len(texts)),
		slog.Int("chunks", len(chunks)),
	)

	return chunks, nil
}

// loadDocuments walks documentPath and extracts the plain text of every
// supported file. Unsupported extensions are skipped silently; extraction
// errors are logged and skipped.
func (p *Pipeline) loadDocuments(ctx context.Context, documentPath string) ([]string, error) {
	log := logging.FromContext(ctx)

	info, err := os.Stat(documentPath)
	if err != nil {
		if os.IsNotExist(err) {
			// A missing upload directory means "no documents", not a failure.
			return nil, nil
		}
		return nil, fmt.Errorf("ingest: stat %s: %w", documentPath, err)
	}

	var texts []string
	appendFile := func(path string) {
		text, err := parser.Extract(path)
		switch {
		case err == nil:
			texts = append(texts, text)
		case parser.Supported(filepath.Ext(path)):
			// Supported type that failed to parse — skip, never abort the batch.
			log.Warn("skipping unreadable document",
				slog.String("path", path),
				slog.Any("error", err),
			)
		}
	}

	if !info.IsDir() {
		appendFile(documentPath)
		return texts, nil
	}

	walkErr := filepath.WalkDir(documentPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable entry", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		appendFile(path)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("ingest: walk %s: %w", documentPath, walkErr)
	}

	return texts, nil
}

// splitParagraphs splits text on blank-line boundaries and returns the
// trimmed paragraphs whose length is at least minChars. This is a noise
// filter against headers and stray fragments, not a semantic chunker.
func splitParagraphs(text string, minChars int) []string {
	// Normalise Windows line endings so "\r\n\r\n" counts as a blank line.
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n\n") {
		trimmed := strings.TrimSpace(para)
		if len(trimmed) >= minChars {
			out = append(out, trimmed)
		}
	}
	return out
}
