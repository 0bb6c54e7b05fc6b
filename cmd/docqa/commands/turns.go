package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/store"
)

// NewTurnsCmd creates the turns command that lists recent pipeline turns
// from the audit log.
func NewTurnsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "turns",
		Short: "Show recent question/answer turns from the audit log",
		Long: `Reads the SQLite turn audit log and prints the most recent turns,
newest first. The audit log records what was asked and answered; it is
never fed back into the model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			path := os.Getenv("DOCQA_AUDIT_DB")
			if path == "disabled" {
				return fmt.Errorf("turn audit is disabled (DOCQA_AUDIT_DB=disabled)")
			}
			if path == "" {
				var err error
				path, err = store.DefaultDBPath()
				if err != nil {
					return err
				}
			}

			s, err := store.Open(path)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := s.Close(); cerr != nil {
					log.Warn("failed to close turn store", "error", cerr)
				}
			}()

			turns, err := s.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(turns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No turns recorded yet.")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, t := range turns {
				fmt.Fprintf(out, "[%s] %s (%s)\n", t.CreatedAt.Format("2006-01-02 15:04:05"), t.TraceID, formatDuration(t.Duration))
				fmt.Fprintf(out, "  Q: %s\n", t.Question)
				fmt.Fprintf(out, "  A: %s\n\n", t.Answer)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of turns to show")

	return cmd
}
