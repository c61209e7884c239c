package engine

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type quarterGroup struct {
	agg          QuarterlyAggregate
	observations map[string]struct{}
	badges       map[string]struct{}
	missed       map[string]MonthIndicator
}

// Aggregate folds monthly results into one QuarterlyAggregate per identity.
// Aggregates keep the order in which identities first appear. The percentage
// is recomputed from the sums rather than averaged across months.
func Aggregate(results []EvaluationResult) []QuarterlyAggregate {
	groups := make(map[Identity]*quarterGroup)
	var order []Identity

	for _, r := range results {
		g, ok := groups[r.Identity]
		if !ok {
			g = &quarterGroup{
				agg: QuarterlyAggregate{
					Identity: r.Identity,
					Target:   decimal.Zero,
					Earned:   decimal.Zero,
					Lost:     decimal.Zero,
				},
				observations: make(map[string]struct{}),
				badges:       make(map[string]struct{}),
				missed:       make(map[string]MonthIndicator),
			}
			groups[r.Identity] = g
			order = append(order, r.Identity)
		}

		g.agg.Months = append(g.agg.Months, r.Month)
		g.agg.Target = g.agg.Target.Add(r.Target)
		g.agg.Earned = g.agg.Earned.Add(r.Earned)
		g.agg.Lost = g.agg.Lost.Add(r.Lost)
		if r.Observation != "" {
			g.observations[r.Observation] = struct{}{}
		}
		if r.Badge != "" {
			g.badges[r.Badge] = struct{}{}
		}
		for _, ind := range r.Missed() {
			mi := MonthIndicator{Month: r.Month, Indicator: ind}
			g.missed[mi.String()] = mi
		}
	}

	out := make([]QuarterlyAggregate, 0, len(order))
	for _, id := range order {
		g := groups[id]
		g.agg.Percentage = percentage(g.agg.Earned, g.agg.Target)
		g.agg.Observation = joinSet(g.observations, ", ")
		g.agg.Badge = joinSet(g.badges, " / ")

		keys := make([]string, 0, len(g.missed))
		for k := range g.missed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			g.agg.Missed = append(g.agg.Missed, g.missed[k])
		}
		out = append(out, g.agg)
	}
	return out
}

func joinSet(set map[string]struct{}, sep string) string {
	items := make([]string, 0, len(set))
	for s := range set {
		items = append(items, s)
	}
	sort.Strings(items)
	return strings.Join(items, sep)
}
