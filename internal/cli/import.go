package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/godilite/bonus-panel/internal/config"
	"github.com/godilite/bonus-panel/internal/engine"
	"github.com/godilite/bonus-panel/internal/sheet"
	"github.com/godilite/bonus-panel/pkg/cache"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	var (
		only       []string
		flushCache bool
		redisAddr  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the workbook into the SQLite staging store",
		Long: `Reads every sheet of the workbook ("-" reads stdin) and replaces the
matching months in the staging store. Months not in the workbook are left
untouched. With --flush-cache the server's cached panels are dropped so the
new rows show up before the cache TTL runs out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if root.workbook != "-" {
				f, err := os.Open(root.workbook)
				if err != nil {
					return fmt.Errorf("open workbook: %w", err)
				}
				defer f.Close()
				in = f
			}

			byMonth, err := sheet.ReadAll(in)
			if err != nil {
				return err
			}

			repo, closeFn, err := root.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			wanted := map[string]bool{}
			for _, m := range only {
				wanted[engine.Normalize(m)] = true
			}

			for _, month := range orderMonths(byMonth, root.months) {
				if len(wanted) > 0 && !wanted[month] {
					continue
				}
				if err := repo.ReplaceMonth(cmd.Context(), month, byMonth[month]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d registros importados\n", month, len(byMonth[month]))
			}

			if !flushCache {
				return nil
			}
			c, err := cache.New(cmd.Context(), cache.WithAddress(redisAddr))
			if err != nil {
				return fmt.Errorf("flush cache: %w", err)
			}
			defer c.Close()
			n, err := c.Flush(cmd.Context())
			if err != nil {
				return fmt.Errorf("flush cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cache: %d entradas removidas\n", n)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "import just these months")
	cmd.Flags().BoolVar(&flushCache, "flush-cache", false, "drop cached panels after importing")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", config.LoadFromEnv().RedisAddr, "Redis address used by --flush-cache")
	return cmd
}

// orderMonths lists the workbook months with the quarter months first, in
// quarter order, then the rest alphabetically.
func orderMonths(byMonth map[string][]engine.EmployeeMonthRecord, quarter []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range quarter {
		m = engine.Normalize(m)
		if _, ok := byMonth[m]; ok && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	var rest []string
	for m := range byMonth {
		if !seen[m] {
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
