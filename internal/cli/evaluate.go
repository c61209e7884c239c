package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/godilite/bonus-panel/internal/report"
)

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	var (
		filter  report.Filter
		asJSON  bool
		missing bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate [period]",
		Short: "Print the bonus panel for a month or the quarter",
		Long: `Evaluates every employee of a period and prints the panel sorted by
percentage achieved. Without a period the whole quarter is evaluated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := root.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			period := ""
			if len(args) == 1 {
				period = args[0]
			}
			panel, err := svc.Panel(cmd.Context(), period, filter)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(panel)
			}
			return writePanel(cmd.OutOrStdout(), panel, missing)
		},
	}

	f := cmd.Flags()
	f.StringVar(&filter.Name, "name", "", "employee name contains")
	f.StringVar(&filter.Role, "role", "", "exact role")
	f.StringVar(&filter.City, "city", "", "exact city")
	f.StringVar(&filter.Tenure, "tenure", "", "exact tenure bracket")
	f.BoolVar(&asJSON, "json", false, "print the panel as JSON")
	f.BoolVar(&missing, "missed", false, "add a column with the missed indicators")
	return cmd
}

func writePanel(out io.Writer, p report.Panel, missing bool) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := "NOME\tFUNÇÃO\tCIDADE\tMETA\tRECEBIDO\tPERDIDO\t%\tSELO"
	if missing {
		header += "\tNÃO ATINGIDO"
	}
	fmt.Fprintln(tw, header)

	for _, c := range p.Cards {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s",
			c.Name, c.Role, c.City,
			report.FormatBRL(c.Target), report.FormatBRL(c.Earned), report.FormatBRL(c.Lost),
			report.FormatPercent(c.Percentage), c.Badge)
		if missing {
			line += "\t" + strings.Join(c.Missed, ", ")
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := p.Summary
	_, err := fmt.Fprintf(out, "\n%s: %d colaboradores, meta %s, recebido %s, perdido %s (%s)\n",
		p.Period, s.Employees,
		report.FormatBRL(s.Target), report.FormatBRL(s.Earned), report.FormatBRL(s.Lost),
		report.FormatPercent(s.Percentage))
	return err
}
