// Package report turns evaluation results into dashboard view models: cards,
// filters, totals and printable statements.
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/godilite/bonus-panel/internal/engine"
)

// Filter narrows a panel. Empty fields match everything. Name matches as a
// case-insensitive substring, the other fields exactly.
type Filter struct {
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	City   string `json:"city,omitempty"`
	Tenure string `json:"tenure,omitempty"`
}

// Key renders the filter for use in cache keys.
func (f Filter) Key() string {
	return strings.Join([]string{
		engine.Normalize(f.Name),
		engine.Normalize(f.Role),
		engine.Normalize(f.City),
		strings.TrimSpace(f.Tenure),
	}, "|")
}

func (f Filter) Matches(id engine.Identity) bool {
	if name := engine.Normalize(f.Name); name != "" && !strings.Contains(engine.Normalize(id.Name), name) {
		return false
	}
	if role := engine.Normalize(f.Role); role != "" && engine.Normalize(id.Role) != role {
		return false
	}
	if city := engine.Normalize(f.City); city != "" && engine.Normalize(id.City) != city {
		return false
	}
	if tenure := strings.TrimSpace(f.Tenure); tenure != "" && strings.TrimSpace(id.Tenure) != tenure {
		return false
	}
	return true
}

// Card is one employee on the panel. Money fields are exact decimals.
type Card struct {
	engine.Identity
	Period      string          `json:"period"`
	Months      []string        `json:"months"`
	Target      decimal.Decimal `json:"target"`
	Earned      decimal.Decimal `json:"earned"`
	Lost        decimal.Decimal `json:"lost"`
	Percentage  float64         `json:"percentage"`
	Badge       string          `json:"badge,omitempty"`
	Observation string          `json:"observation,omitempty"`
	Missed      []string        `json:"missed,omitempty"`
	Notes       []string        `json:"notes,omitempty"`
}

// Eligible reports whether the card has no ineligibility badge.
func (c Card) Eligible() bool {
	return c.Badge == ""
}

// FromResult builds a card for a single month. Indicators that were not missed
// are kept as notes.
func FromResult(r engine.EvaluationResult) Card {
	c := Card{
		Identity:    r.Identity,
		Period:      r.Month,
		Months:      []string{r.Month},
		Target:      r.Target,
		Earned:      r.Earned,
		Lost:        r.Lost,
		Percentage:  r.Percentage,
		Badge:       r.Badge,
		Observation: r.Observation,
	}
	for _, ind := range r.Indicators {
		if ind.Missed() {
			c.Missed = append(c.Missed, ind.Label)
		} else {
			c.Notes = append(c.Notes, ind.Label)
		}
	}
	return c
}

// FromAggregate builds a card for a multi-month period.
func FromAggregate(period string, a engine.QuarterlyAggregate) Card {
	c := Card{
		Identity:    a.Identity,
		Period:      period,
		Months:      a.Months,
		Target:      a.Target,
		Earned:      a.Earned,
		Lost:        a.Lost,
		Percentage:  a.Percentage,
		Badge:       a.Badge,
		Observation: a.Observation,
	}
	for _, m := range a.Missed {
		c.Missed = append(c.Missed, m.String())
	}
	return c
}

// Summary totals the cards on a panel.
type Summary struct {
	Employees  int             `json:"employees"`
	Target     decimal.Decimal `json:"target"`
	Earned     decimal.Decimal `json:"earned"`
	Lost       decimal.Decimal `json:"lost"`
	Percentage float64         `json:"percentage"`
}

type Panel struct {
	Period  string  `json:"period"`
	Filter  Filter  `json:"filter"`
	Summary Summary `json:"summary"`
	Cards   []Card  `json:"cards"`
}

// BuildPanel filters the cards, orders them by percentage (highest first,
// ties keep their input order) and totals what is left.
func BuildPanel(period string, cards []Card, f Filter) Panel {
	kept := make([]Card, 0, len(cards))
	for _, c := range cards {
		if f.Matches(c.Identity) {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Percentage > kept[j].Percentage
	})

	sum := Summary{
		Employees: len(kept),
		Target:    decimal.Zero,
		Earned:    decimal.Zero,
		Lost:      decimal.Zero,
	}
	for _, c := range kept {
		sum.Target = sum.Target.Add(c.Target)
		sum.Earned = sum.Earned.Add(c.Earned)
		sum.Lost = sum.Lost.Add(c.Lost)
	}
	if !sum.Target.IsZero() {
		sum.Percentage = sum.Earned.Div(sum.Target).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	return Panel{Period: period, Filter: f, Summary: sum, Cards: kept}
}

// Options are the values offered by the dashboard filters.
type Options struct {
	Periods []string `json:"periods"`
	Roles   []string `json:"roles"`
	Cities  []string `json:"cities"`
	Tenures []string `json:"tenures"`
}

// BuildOptions collects the distinct filter values of the given identities.
// Roles are limited to the configured ones.
func BuildOptions(periods []string, identities []engine.Identity, configuredRoles []string) Options {
	configured := make(map[string]struct{}, len(configuredRoles))
	for _, r := range configuredRoles {
		configured[engine.Normalize(r)] = struct{}{}
	}

	roles := make(map[string]struct{})
	cities := make(map[string]struct{})
	tenures := make(map[string]struct{})
	for _, id := range identities {
		if role := engine.Normalize(id.Role); role != "" {
			if _, ok := configured[role]; ok {
				roles[role] = struct{}{}
			}
		}
		if city := engine.Normalize(id.City); city != "" {
			cities[city] = struct{}{}
		}
		if tenure := strings.TrimSpace(id.Tenure); tenure != "" {
			tenures[tenure] = struct{}{}
		}
	}

	return Options{
		Periods: periods,
		Roles:   sortedKeys(roles),
		Cities:  sortedKeys(cities),
		Tenures: sortedKeys(tenures),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
