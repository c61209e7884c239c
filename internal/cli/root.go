// Package cli implements bonusctl, the operator command line for the bonus
// panel.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/bonus-panel/internal/config"
	"github.com/godilite/bonus-panel/internal/repository"
	"github.com/godilite/bonus-panel/internal/rules"
	"github.com/godilite/bonus-panel/internal/service"
	"github.com/godilite/bonus-panel/internal/sheet"
	dbbuilder "github.com/godilite/bonus-panel/pkg/database"
)

// rootOptions are the flags shared by every subcommand. Defaults come from
// the same environment variables the server reads.
type rootOptions struct {
	verbose      bool
	weights      string
	indicators   string
	supervisors  string
	workbook     string
	dbPath       string
	dbDriver     string
	source       string
	months       []string
	quarterLabel string
}

// NewRootCmd builds the bonusctl command tree.
func NewRootCmd() *cobra.Command {
	cfg := config.LoadFromEnv()
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "bonusctl",
		Short: "Evaluate bonus rules and manage the staging store",
		Long: `bonusctl runs the bonus rule engine from the command line.

It evaluates a month or the quarter, imports a workbook into the SQLite
staging store and exports per-employee PDF statements.

Examples:
  # Quarter panel for supervisors
  bonusctl evaluate --role SUPERVISOR

  # Load the workbook into the staging store, then evaluate from it
  bonusctl import --workbook data/bonus.xlsx --db data/bonus.db
  bonusctl evaluate JULHO --source sqlite`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	flags.StringVar(&opts.weights, "weights", cfg.WeightsPath, "role weighting JSON file")
	flags.StringVar(&opts.indicators, "indicators", cfg.IndicatorsPath, "monthly indicators JSON file")
	flags.StringVar(&opts.supervisors, "supervisors", cfg.SupervisorsPath, "supervisor cities YAML file (optional)")
	flags.StringVar(&opts.workbook, "workbook", cfg.WorkbookPath, "employee workbook (.xlsx)")
	flags.StringVar(&opts.dbPath, "db", cfg.DBPath, "SQLite staging database")
	flags.StringVar(&opts.dbDriver, "db-driver", cfg.DBDriver, "database/sql driver name")
	flags.StringVar(&opts.source, "source", cfg.RecordSource, "record source: workbook or sqlite")
	flags.StringSliceVar(&opts.months, "months", cfg.QuarterMonths, "quarter months, in order")
	flags.StringVar(&opts.quarterLabel, "quarter-label", cfg.QuarterLabel, "label of the whole-quarter period")

	root.AddCommand(
		newEvaluateCmd(opts),
		newImportCmd(opts),
		newMonthsCmd(opts),
		newStatementCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *rootOptions) loadRules() (*rules.Ruleset, error) {
	return rules.Load(rules.Paths{
		Weights:     o.weights,
		Indicators:  o.indicators,
		Supervisors: o.supervisors,
	}, rules.WithLogger(o.logger()))
}

func (o *rootOptions) openRepository(ctx context.Context) (*repository.RecordRepository, func(), error) {
	db, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(o.dbDriver),
		dbbuilder.WithDataSource(o.dbPath),
		dbbuilder.WithMigrations(repository.Schema),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open staging store: %w", err)
	}
	return repository.NewRecordRepository(db), func() { _ = db.Close() }, nil
}

// newService builds a BonusService over the selected record source. The
// returned func releases the source.
func (o *rootOptions) newService(ctx context.Context) (*service.BonusService, func(), error) {
	rs, err := o.loadRules()
	if err != nil {
		return nil, nil, err
	}
	logger := o.logger()

	switch o.source {
	case config.SourceSQLite:
		repo, closeFn, err := o.openRepository(ctx)
		if err != nil {
			return nil, nil, err
		}
		return service.NewBonusService(repo, rs, o.months, o.quarterLabel, logger), closeFn, nil
	case config.SourceWorkbook, "":
		wb, err := sheet.Open(o.workbook, logger)
		if err != nil {
			return nil, nil, err
		}
		return service.NewBonusService(wb, rs, o.months, o.quarterLabel, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", o.source)
	}
}
