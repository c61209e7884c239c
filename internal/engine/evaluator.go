package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

const RoleSupervisor = "SUPERVISOR"

// inspectorRoles are graded on error counters instead of the company-wide
// quality flag.
var inspectorRoles = map[string]struct{}{
	"VISTORIADOR": {},
	"INSPECTOR":   {},
}

const (
	defaultMaxTotalErrors  = 7
	defaultMaxSevereErrors = 5
)

// Thresholds bound the monthly error counters of inspectors.
type Thresholds struct {
	MaxTotalErrors  int
	MaxSevereErrors int
}

// Tier grades a pair of counters: both within bounds earn the full slice, one
// violation earns half, two earn nothing.
func (t Thresholds) Tier(totalErrors, severeErrors int) Tier {
	violations := 0
	if totalErrors > t.MaxTotalErrors {
		violations++
	}
	if severeErrors > t.MaxSevereErrors {
		violations++
	}
	switch violations {
	case 0:
		return TierFull
	case 1:
		return TierHalf
	default:
		return TierNone
	}
}

type Option func(*Evaluator)

func WithThresholds(t Thresholds) Option {
	return func(e *Evaluator) {
		e.thresholds = t
	}
}

// Evaluator computes monthly bonus outcomes. It holds only immutable inputs
// and is safe for concurrent use.
type Evaluator struct {
	weights     map[string]RoleWeighting
	supervisors SupervisorCities
	thresholds  Thresholds
}

// NewEvaluator builds an Evaluator. Weighting and supervisor keys must already
// be normalized.
func NewEvaluator(weights map[string]RoleWeighting, supervisors SupervisorCities, opts ...Option) *Evaluator {
	e := &Evaluator{
		weights:     weights,
		supervisors: supervisors,
		thresholds: Thresholds{
			MaxTotalErrors:  defaultMaxTotalErrors,
			MaxSevereErrors: defaultMaxSevereErrors,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the outcome of one employee-month record.
func (e *Evaluator) Evaluate(rec EmployeeMonthRecord, indicators MonthlyIndicators) EvaluationResult {
	res := EvaluationResult{
		Identity:    rec.Identity(),
		Month:       rec.Month,
		Target:      decimal.Zero,
		Earned:      decimal.Zero,
		Lost:        decimal.Zero,
		Observation: ObservationText(rec.Observation),
	}

	ok, badge := Eligibility(rec.TargetValue, rec.Observation)
	if !ok {
		res.Badge = badge
		return res
	}

	role := Normalize(rec.Role)
	weighting, found := e.weights[role]
	if !found {
		res.Target = rec.TargetValue
		res.Earned = rec.TargetValue
		res.Percentage = percentage(res.Earned, res.Target)
		return res
	}

	total := rec.TargetValue
	if weighting.Total.Valid {
		total = weighting.Total.Decimal
	}

	names := make([]string, 0, len(weighting.SubTargets))
	for name := range weighting.SubTargets {
		names = append(names, name)
	}
	sort.Strings(names)

	earned, lost, allocated := decimal.Zero, decimal.Zero, decimal.Zero
	for _, name := range names {
		amount := total.Mul(weighting.SubTargets[name])
		allocated = allocated.Add(amount)

		out := strategies[ClassifySubTarget(name)](e, slice{
			record:     rec,
			role:       role,
			amount:     amount,
			indicators: indicators,
		})
		earned = earned.Add(out.earned)
		lost = lost.Add(out.lost)
		if out.indicator != nil {
			res.Indicators = append(res.Indicators, *out.indicator)
		}
	}
	// Weights summing below 1 leave a remainder no indicator gates. It is
	// credited as earned so earned+lost always equals the target. Sums above 1
	// are rescaled when the rules load, so the remainder is never negative
	// beyond decimal rounding.
	earned = earned.Add(total.Sub(allocated))

	res.Target = total
	res.Earned = earned
	res.Lost = lost
	res.Percentage = percentage(earned, total)
	return res
}

// EvaluateMonth evaluates every record of one month against that month's
// indicators.
func (e *Evaluator) EvaluateMonth(records []EmployeeMonthRecord, indicators MonthlyIndicators) []EvaluationResult {
	out := make([]EvaluationResult, 0, len(records))
	for _, rec := range records {
		out = append(out, e.Evaluate(rec, indicators))
	}
	return out
}
