package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/ingest"
	"github.com/docqa/docqa-go/internal/logging"
)

// NewIngestCmd creates the ingest command that indexes documents without
// asking a question. Useful for pre-warming the vector store after a bulk
// upload.
func NewIngestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Parse and index the document directory",
		Long: `Parses every supported document in the directory, splits the text into
paragraph chunks, embeds them, and upserts them into the vector store.
Each run assigns fresh chunk IDs; run reset first if you want to replace
the index rather than grow it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			docDir := dir
			if docDir == "" {
				docDir = uploadDir()
			}

			pipeline := ingest.NewPipeline(ingest.Config{
				MinChunkChars: envInt("DOCQA_MIN_CHUNK_CHARS", ingest.DefaultMinChunkChars),
			})
			chunks, err := pipeline.Ingest(ctx, docDir)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", docDir, err)
			}
			if len(chunks) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No chunks produced from %s\n", docDir)
				return nil
			}

			s, err := buildStack(ctx, log)
			if err != nil {
				return err
			}
			defer s.close(log)

			if err := s.engine.Add(ctx, chunks); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %s\n", len(chunks), docDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Document directory to ingest (default: $DOCQA_UPLOAD_DIR or ./Documents)")

	return cmd
}
