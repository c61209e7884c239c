package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// slice is the monetary share of one sub-target being evaluated.
type slice struct {
	record     EmployeeMonthRecord
	role       string
	amount     decimal.Decimal
	indicators MonthlyIndicators
}

type outcome struct {
	earned    decimal.Decimal
	lost      decimal.Decimal
	indicator *Indicator
}

type strategy func(e *Evaluator, s slice) outcome

// strategies dispatches each sub-target kind to its evaluation rule. New kinds
// are added here and in ClassifySubTarget.
var strategies = map[Kind]strategy{
	KindGeneric:       evaluateGeneric,
	KindProduction:    evaluateProduction,
	KindQuality:       evaluateQuality,
	KindProfitability: evaluateProfitability,
}

// titleCity renders "SÃO LUÍS" as "São Luís". A Caser keeps state, so one is
// built per call.
func titleCity(city string) string {
	return cases.Title(language.BrazilianPortuguese).String(strings.ToLower(city))
}

func evaluateGeneric(_ *Evaluator, s slice) outcome {
	return outcome{earned: s.amount, lost: decimal.Zero}
}

func evaluateProduction(e *Evaluator, s slice) outcome {
	if s.role == RoleSupervisor {
		if cities, ok := e.supervisors[Normalize(s.record.Name)]; ok && len(cities) > 0 {
			return evaluateSupervisorProduction(s, cities)
		}
	}

	if s.indicators.ProductionPassed(s.record.City) {
		return outcome{earned: s.amount, lost: decimal.Zero}
	}
	city := strings.TrimSpace(s.record.City)
	return outcome{
		earned: decimal.Zero,
		lost:   s.amount,
		indicator: &Indicator{
			Kind:   KindProduction,
			Label:  "Production – " + titleCity(city),
			Tier:   TierNone,
			Lost:   s.amount,
			Cities: []string{city},
		},
	}
}

// evaluateSupervisorProduction splits the production slice across the
// supervisor's cities in proportion to their weights.
func evaluateSupervisorProduction(s slice, cities map[string]decimal.Decimal) outcome {
	names := make([]string, 0, len(cities))
	base := decimal.Zero
	for city, weight := range cities {
		names = append(names, city)
		base = base.Add(weight)
	}
	sort.Strings(names)
	if base.IsZero() {
		base = decimal.NewFromInt(1)
	}

	lost := decimal.Zero
	var failed []string
	for _, city := range names {
		if s.indicators.ProductionPassed(city) {
			continue
		}
		lost = lost.Add(s.amount.Mul(cities[city]).Div(base))
		failed = append(failed, city)
	}

	out := outcome{earned: s.amount.Sub(lost), lost: lost}
	if len(failed) > 0 {
		tier := TierPartial
		if len(failed) == len(names) {
			tier = TierNone
		}
		out.indicator = &Indicator{
			Kind:   KindProduction,
			Label:  "Production – " + strings.Join(failed, ", "),
			Tier:   tier,
			Lost:   lost,
			Cities: failed,
		}
	}
	return out
}

func evaluateQuality(e *Evaluator, s slice) outcome {
	if _, ok := inspectorRoles[s.role]; ok {
		return evaluateInspectorQuality(e, s)
	}
	if s.indicators.Quality {
		return outcome{earned: s.amount, lost: decimal.Zero}
	}
	return outcome{
		earned: decimal.Zero,
		lost:   s.amount,
		indicator: &Indicator{
			Kind:  KindQuality,
			Label: "Quality",
			Tier:  TierNone,
			Lost:  s.amount,
		},
	}
}

// evaluateInspectorQuality grades the slice from the month's error counters.
// The indicator is always recorded; at TierFull it is informational.
func evaluateInspectorQuality(e *Evaluator, s slice) outcome {
	total, severe := s.record.TotalErrors, s.record.SevereErrors
	tier := e.thresholds.Tier(total, severe)
	earned, lost := tier.earnedShare(s.amount)
	return outcome{
		earned: earned,
		lost:   lost,
		indicator: &Indicator{
			Kind:         KindQuality,
			Label:        fmt.Sprintf("Quality (%d%%) — errors: %d | severe: %d", tier.Percent(), total, severe),
			Tier:         tier,
			Lost:         lost,
			TotalErrors:  total,
			SevereErrors: severe,
		},
	}
}

func evaluateProfitability(_ *Evaluator, s slice) outcome {
	if s.indicators.Profitability {
		return outcome{earned: s.amount, lost: decimal.Zero}
	}
	return outcome{
		earned: decimal.Zero,
		lost:   s.amount,
		indicator: &Indicator{
			Kind:  KindProfitability,
			Label: "Profitability",
			Tier:  TierNone,
			Lost:  s.amount,
		},
	}
}
