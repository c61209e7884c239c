package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/godilite/bonus-panel/internal/report"
)

func newStatementCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "statement <period> <name>",
		Short: "Write one employee's PDF statement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := root.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			card, err := svc.Card(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := report.WriteStatement(&buf, card, time.Now()); err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write statement: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "statement written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
