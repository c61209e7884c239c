package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	BadgeNoEligibility = "no eligibility this month"
	BadgeLeave         = "leave during the month"
)

// leaveMarker matches "licença", "license" and "licensed" in the observation.
const leaveMarker = "LICEN"

// Eligibility applies the monthly gate. The returned badge is empty for
// eligible records.
func Eligibility(target decimal.Decimal, observation string) (bool, string) {
	if target.IsZero() {
		return false, BadgeNoEligibility
	}
	if strings.Contains(Normalize(observation), leaveMarker) {
		return false, BadgeLeave
	}
	return true, ""
}

// ObservationText cleans a free-text observation cell. Spreadsheet exports
// sometimes carry "None" or "nan" for empty cells.
func ObservationText(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "nan":
		return ""
	}
	return s
}
