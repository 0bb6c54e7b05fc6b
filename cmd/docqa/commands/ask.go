package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
)

// NewAskCmd creates the ask command for one-shot question answering.
func NewAskCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question grounded in your documents",
		Long: `Runs one full pipeline turn: ingest the document directory, retrieve the
most relevant chunks for the question, and generate a grounded answer.

Examples:
  docqa ask "What does the architecture document say about KPIs?"
  docqa ask --dir ./reports "Summarize the Q3 findings"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			s, err := buildStack(ctx, log)
			if err != nil {
				return err
			}
			defer s.close(log)

			docDir := dir
			if docDir == "" {
				docDir = uploadDir()
			}

			answer := s.coordinator.HandleTurn(logging.WithLogger(ctx, log), args[0], docDir)
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Document directory to ingest (default: $DOCQA_UPLOAD_DIR or ./Documents)")

	return cmd
}
