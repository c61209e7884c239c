package engine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/bonus-panel/internal/engine"
)

func TestAggregateSumsMonthsPerIdentity(t *testing.T) {
	ev := engine.NewEvaluator(testWeights(), testSupervisors())

	july := record("SUPERVISOR", "TIMON", "1000")
	august := record("SUPERVISOR", "TIMON", "1000")
	august.Month = "AGOSTO"
	september := record("SUPERVISOR", "TIMON", "0")
	september.Month = "SETEMBRO"
	september.Observation = "Afastado"

	monthly := []engine.EvaluationResult{
		ev.Evaluate(july, allPass()),
		ev.Evaluate(august, engine.MonthlyIndicators{Quality: false, Profitability: false}),
		ev.Evaluate(september, allPass()),
	}

	aggs := engine.Aggregate(monthly)
	require.Len(t, aggs, 1)
	agg := aggs[0]

	wantTarget := monthly[0].Target.Add(monthly[1].Target).Add(monthly[2].Target)
	wantEarned := monthly[0].Earned.Add(monthly[1].Earned).Add(monthly[2].Earned)
	wantLost := monthly[0].Lost.Add(monthly[1].Lost).Add(monthly[2].Lost)
	assert.True(t, wantTarget.Equal(agg.Target))
	assert.True(t, wantEarned.Equal(agg.Earned))
	assert.True(t, wantLost.Equal(agg.Lost))
	assertDecimal(t, "2000", agg.Target)
	assertDecimal(t, "1500", agg.Earned)

	// 1500/2000, not the mean of 100%, 50% and 0%.
	assert.InDelta(t, 75.0, agg.Percentage, 1e-9)
	avg := (monthly[0].Percentage + monthly[1].Percentage + monthly[2].Percentage) / 3
	assert.NotEqual(t, avg, agg.Percentage)

	assert.Equal(t, []string{"JULHO", "AGOSTO", "SETEMBRO"}, agg.Months)
	assert.Equal(t, engine.BadgeNoEligibility, agg.Badge)
	assert.Equal(t, "Afastado", agg.Observation)
}

func TestAggregateMissedIndicators(t *testing.T) {
	ev := engine.NewEvaluator(testWeights(), nil)
	failQuality := engine.MonthlyIndicators{Quality: false, Profitability: true}

	var monthly []engine.EvaluationResult
	for _, month := range []string{"JULHO", "AGOSTO", "SETEMBRO"} {
		rec := record("VISTORIADOR", "TIMON", "600")
		rec.Month = month
		if month == "AGOSTO" {
			rec.TotalErrors = 12
		}
		monthly = append(monthly, ev.Evaluate(rec, failQuality))

		sup := record("SUPERVISOR", "TIMON", "1000")
		sup.Name = "ANA LIMA"
		sup.Month = month
		monthly = append(monthly, ev.Evaluate(sup, failQuality))
	}

	aggs := engine.Aggregate(monthly)
	require.Len(t, aggs, 2)
	assert.Equal(t, "JOÃO SILVA", aggs[0].Name)
	assert.Equal(t, "ANA LIMA", aggs[1].Name)

	inspectorMissed := make([]string, 0, len(aggs[0].Missed))
	for _, m := range aggs[0].Missed {
		inspectorMissed = append(inspectorMissed, m.String())
	}
	// Full-tier inspector quality is informational and never listed as missed.
	assert.Equal(t, []string{"Quality (50%) — errors: 12 | severe: 0 (AGOSTO)"}, inspectorMissed)

	supervisorMissed := make([]string, 0, len(aggs[1].Missed))
	for _, m := range aggs[1].Missed {
		supervisorMissed = append(supervisorMissed, m.String())
	}
	want := []string{"Quality (AGOSTO)", "Quality (JULHO)", "Quality (SETEMBRO)"}
	if diff := cmp.Diff(want, supervisorMissed); diff != "" {
		t.Errorf("missed indicators mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateDeduplicatesTexts(t *testing.T) {
	results := []engine.EvaluationResult{
		{Identity: engine.Identity{Name: "A"}, Month: "JULHO", Badge: engine.BadgeLeave, Observation: "Licença"},
		{Identity: engine.Identity{Name: "A"}, Month: "AGOSTO", Badge: engine.BadgeLeave, Observation: "Licença"},
		{Identity: engine.Identity{Name: "A"}, Month: "SETEMBRO", Badge: engine.BadgeNoEligibility, Observation: "Desligado"},
	}

	aggs := engine.Aggregate(results)

	require.Len(t, aggs, 1)
	assert.Equal(t, "leave during the month / no eligibility this month", aggs[0].Badge)
	assert.Equal(t, "Desligado, Licença", aggs[0].Observation)
	assert.Zero(t, aggs[0].Percentage)
}

func TestAggregateSeparatesIdentities(t *testing.T) {
	a := engine.EvaluationResult{Identity: engine.Identity{Name: "A", City: "TIMON"}, Month: "JULHO"}
	b := engine.EvaluationResult{Identity: engine.Identity{Name: "A", City: "CAROLINA"}, Month: "JULHO"}

	assert.Len(t, engine.Aggregate([]engine.EvaluationResult{a, b}), 2)
	assert.Empty(t, engine.Aggregate(nil))
}
