package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/godilite/bonus-panel/internal/report"
)

func newMonthsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List the months held in the staging store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeFn, err := root.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			summaries, err := repo.Summaries(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nenhum mês importado")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MÊS\tREGISTROS\tMETA\tIMPORTADO EM")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					s.Month, s.Records, report.FormatBRL(decimal.NewFromFloat(s.Target)), s.ImportedAt)
			}
			return tw.Flush()
		},
	}
}
