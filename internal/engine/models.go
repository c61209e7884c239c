package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Identity groups the columns that identify one employee across months.
type Identity struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	City          string `json:"city"`
	AdmissionDate string `json:"admissionDate"`
	Tenure        string `json:"tenure"`
}

// EmployeeMonthRecord is one spreadsheet row: one employee in one month.
type EmployeeMonthRecord struct {
	Month         string
	Name          string
	Role          string
	City          string
	AdmissionDate string
	Tenure        string
	TargetValue   decimal.Decimal
	Observation   string
	TotalErrors   int
	SevereErrors  int
}

func (r EmployeeMonthRecord) Identity() Identity {
	return Identity{
		Name:          r.Name,
		Role:          r.Role,
		City:          r.City,
		AdmissionDate: r.AdmissionDate,
		Tenure:        r.Tenure,
	}
}

// RoleWeighting is the bonus definition of one role. When Total is not valid
// the record's own monthly target is used as the total.
type RoleWeighting struct {
	Total      decimal.NullDecimal
	SubTargets map[string]decimal.Decimal
}

// MonthlyIndicators holds the pass flags published for one month.
type MonthlyIndicators struct {
	ProductionByCity map[string]bool
	Quality          bool
	Profitability    bool
}

// ProductionPassed reports the production flag of a city. Cities without a
// published flag pass.
func (m MonthlyIndicators) ProductionPassed(city string) bool {
	passed, ok := m.ProductionByCity[Normalize(city)]
	if !ok {
		return true
	}
	return passed
}

// SupervisorCities maps a supervisor name to the cities under their
// responsibility and the relative weight of each city.
type SupervisorCities map[string]map[string]decimal.Decimal

// Indicator is the outcome of one gated sub-target.
type Indicator struct {
	Kind         Kind            `json:"kind"`
	Label        string          `json:"label"`
	Tier         Tier            `json:"tier"`
	Lost         decimal.Decimal `json:"lost"`
	Cities       []string        `json:"cities,omitempty"`
	TotalErrors  int             `json:"totalErrors,omitempty"`
	SevereErrors int             `json:"severeErrors,omitempty"`
}

// Missed reports whether any part of the sub-target was lost.
func (i Indicator) Missed() bool {
	return i.Tier != TierFull
}

// EvaluationResult is the bonus outcome of one employee in one month.
type EvaluationResult struct {
	Identity
	Month       string          `json:"month"`
	Target      decimal.Decimal `json:"target"`
	Earned      decimal.Decimal `json:"earned"`
	Lost        decimal.Decimal `json:"lost"`
	Percentage  float64         `json:"percentage"`
	Badge       string          `json:"badge,omitempty"`
	Observation string          `json:"observation,omitempty"`
	Indicators  []Indicator     `json:"indicators,omitempty"`
}

func (r EvaluationResult) Eligible() bool {
	return r.Badge == ""
}

// Missed returns the indicators that lost part or all of their slice.
func (r EvaluationResult) Missed() []Indicator {
	var out []Indicator
	for _, ind := range r.Indicators {
		if ind.Missed() {
			out = append(out, ind)
		}
	}
	return out
}

// MonthIndicator is a missed indicator tagged with the month it was missed in.
type MonthIndicator struct {
	Month     string    `json:"month"`
	Indicator Indicator `json:"indicator"`
}

func (m MonthIndicator) String() string {
	return fmt.Sprintf("%s (%s)", m.Indicator.Label, m.Month)
}

// QuarterlyAggregate sums the monthly results of one employee.
type QuarterlyAggregate struct {
	Identity
	Months      []string         `json:"months"`
	Target      decimal.Decimal  `json:"target"`
	Earned      decimal.Decimal  `json:"earned"`
	Lost        decimal.Decimal  `json:"lost"`
	Percentage  float64          `json:"percentage"`
	Badge       string           `json:"badge,omitempty"`
	Observation string           `json:"observation,omitempty"`
	Missed      []MonthIndicator `json:"missed,omitempty"`
}

// Normalize upper-cases and trims a lookup key (role, city, name, month).
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func percentage(earned, target decimal.Decimal) float64 {
	if target.IsZero() {
		return 0
	}
	return earned.Div(target).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
