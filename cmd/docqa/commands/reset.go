package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
)

// NewResetCmd creates the reset command that clears the vector store and
// empties the document directory.
func NewResetCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the vector store and the document directory",
		Long: `Deletes every indexed chunk from the vector store and removes all files
from the document directory. The directory itself is kept. After a reset
the next ingest starts from a clean index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			status := s.coordinator.Reset(logging.WithLogger(ctx, log), docDir)
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Document directory to empty (default: $DOCQA_UPLOAD_DIR or ./Documents)")

	return cmd
}
