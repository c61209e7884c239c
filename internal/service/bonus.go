package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/bonus-panel/internal/engine"
	"github.com/godilite/bonus-panel/internal/report"
	"github.com/godilite/bonus-panel/internal/rules"
	"github.com/godilite/bonus-panel/internal/sheet"
)

const (
	sourceTimeout = 5 * time.Second

	DefaultQuarterLabel = "TRIMESTRE"
)

var (
	ErrUnknownPeriod    = errors.New("unknown period")
	ErrNoRecords        = errors.New("no records found")
	ErrSourceFailure    = errors.New("record source failure")
	ErrEmployeeNotFound = errors.New("employee not found")
)

// BonusService evaluates months and the quarter against a record source and a
// ruleset. Nothing is stored; every call recomputes from the source.
type BonusService struct {
	source       RecordSource
	rules        *rules.Ruleset
	evaluator    *engine.Evaluator
	months       []string
	quarterLabel string
	logger       *zap.Logger
}

// NewBonusService creates a BonusService for the given quarter months.
func NewBonusService(source RecordSource, rs *rules.Ruleset, months []string, quarterLabel string, logger *zap.Logger, opts ...engine.Option) *BonusService {
	if source == nil {
		panic("source must not be nil")
	}
	if rs == nil {
		panic("ruleset must not be nil")
	}
	if len(months) == 0 {
		panic("at least one month is required")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	if strings.TrimSpace(quarterLabel) == "" {
		quarterLabel = DefaultQuarterLabel
	}

	normalized := make([]string, 0, len(months))
	for _, m := range months {
		normalized = append(normalized, engine.Normalize(m))
	}

	return &BonusService{
		source:       source,
		rules:        rs,
		evaluator:    rs.Evaluator(opts...),
		months:       normalized,
		quarterLabel: engine.Normalize(quarterLabel),
		logger:       logger.Named("bonus-service"),
	}
}

// Periods lists the selectable periods: each month, then the quarter.
func (s *BonusService) Periods() []string {
	out := make([]string, 0, len(s.months)+1)
	out = append(out, s.months...)
	return append(out, s.quarterLabel)
}

// Fingerprint identifies the ruleset in use.
func (s *BonusService) Fingerprint() string {
	return s.rules.Fingerprint()
}

func (s *BonusService) isMonth(period string) bool {
	for _, m := range s.months {
		if m == period {
			return true
		}
	}
	return false
}

// EvaluateMonth evaluates every record of month.
func (s *BonusService) EvaluateMonth(ctx context.Context, month string) ([]engine.EvaluationResult, error) {
	month = engine.Normalize(month)
	if !s.isMonth(month) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, month)
	}
	indicators, ok := s.rules.Indicators(month)
	if !ok {
		return nil, fmt.Errorf("%w: no indicators published for %s", ErrUnknownPeriod, month)
	}

	srcCtx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()

	records, err := s.source.MonthRecords(srcCtx, month)
	if err != nil {
		if errors.Is(err, sheet.ErrSheetNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNoRecords, err)
		}
		s.logger.Error("failed to read month records", zap.String("month", month), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSourceFailure, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecords, month)
	}

	results := s.evaluator.EvaluateMonth(records, indicators)

	s.logger.Info("evaluated month",
		zap.String("month", month),
		zap.Int("records", len(records)))

	return results, nil
}

// EvaluateQuarter evaluates every configured month and aggregates the results
// per employee. Months without records are skipped.
func (s *BonusService) EvaluateQuarter(ctx context.Context) ([]engine.QuarterlyAggregate, error) {
	var all []engine.EvaluationResult
	for _, month := range s.months {
		results, err := s.EvaluateMonth(ctx, month)
		if err != nil {
			if errors.Is(err, ErrNoRecords) {
				s.logger.Warn("month without records skipped", zap.String("month", month))
				continue
			}
			return nil, fmt.Errorf("quarter month %s: %w", month, err)
		}
		all = append(all, results...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecords, s.quarterLabel)
	}

	aggs := engine.Aggregate(all)

	s.logger.Info("evaluated quarter",
		zap.String("quarter", s.quarterLabel),
		zap.Int("employees", len(aggs)))

	return aggs, nil
}

// Cards evaluates a period into dashboard cards, in source order.
func (s *BonusService) Cards(ctx context.Context, period string) ([]report.Card, error) {
	period = engine.Normalize(period)
	if period == "" || period == s.quarterLabel {
		aggs, err := s.EvaluateQuarter(ctx)
		if err != nil {
			return nil, err
		}
		cards := make([]report.Card, 0, len(aggs))
		for _, a := range aggs {
			cards = append(cards, report.FromAggregate(s.quarterLabel, a))
		}
		return cards, nil
	}

	results, err := s.EvaluateMonth(ctx, period)
	if err != nil {
		return nil, err
	}
	cards := make([]report.Card, 0, len(results))
	for _, r := range results {
		cards = append(cards, report.FromResult(r))
	}
	return cards, nil
}

// Panel evaluates a period and applies the filter, sort and totals. An empty
// period selects the quarter.
func (s *BonusService) Panel(ctx context.Context, period string, filter report.Filter) (report.Panel, error) {
	cards, err := s.Cards(ctx, period)
	if err != nil {
		return report.Panel{}, err
	}
	return report.BuildPanel(s.periodName(period), cards, filter), nil
}

// FilterOptions lists the filter values present in a period.
func (s *BonusService) FilterOptions(ctx context.Context, period string) (report.Options, error) {
	cards, err := s.Cards(ctx, period)
	if err != nil {
		return report.Options{}, err
	}
	ids := make([]engine.Identity, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.Identity)
	}
	return report.BuildOptions(s.Periods(), ids, s.rules.Roles()), nil
}

// Card returns the card of one employee, matched by exact name ignoring case.
func (s *BonusService) Card(ctx context.Context, period, name string) (report.Card, error) {
	cards, err := s.Cards(ctx, period)
	if err != nil {
		return report.Card{}, err
	}
	want := engine.Normalize(name)
	for _, c := range cards {
		if engine.Normalize(c.Name) == want {
			return c, nil
		}
	}
	return report.Card{}, fmt.Errorf("%w: %q in %s", ErrEmployeeNotFound, name, s.periodName(period))
}

func (s *BonusService) periodName(period string) string {
	if p := engine.Normalize(period); p != "" {
		return p
	}
	return s.quarterLabel
}

// PanelCacheKey identifies a panel in the cache. The ruleset fingerprint makes
// rule edits invalidate earlier entries.
func PanelCacheKey(fingerprint, period string, filter report.Filter) string {
	return fmt.Sprintf("panel:%s:%s:%s", fingerprint, engine.Normalize(period), filter.Key())
}

// OptionsCacheKey identifies the filter options of a period in the cache.
func OptionsCacheKey(fingerprint, period string) string {
	return fmt.Sprintf("options:%s:%s", fingerprint, engine.Normalize(period))
}
