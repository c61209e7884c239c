package models

import (
	"github.com/shopspring/decimal"

	"github.com/godilite/bonus-panel/internal/engine"
)

// RecordRow is one stored employee-month row. Money is kept as decimal text.
type RecordRow struct {
	Month         string
	Position      int
	Name          string
	Role          string
	City          string
	AdmissionDate string
	Tenure        string
	TargetValue   string
	Observation   string
	TotalErrors   int
	SevereErrors  int
}

func FromRecord(position int, r engine.EmployeeMonthRecord) RecordRow {
	return RecordRow{
		Month:         engine.Normalize(r.Month),
		Position:      position,
		Name:          r.Name,
		Role:          r.Role,
		City:          r.City,
		AdmissionDate: r.AdmissionDate,
		Tenure:        r.Tenure,
		TargetValue:   r.TargetValue.String(),
		Observation:   r.Observation,
		TotalErrors:   r.TotalErrors,
		SevereErrors:  r.SevereErrors,
	}
}

func (r RecordRow) ToRecord() (engine.EmployeeMonthRecord, error) {
	target, err := decimal.NewFromString(r.TargetValue)
	if err != nil {
		return engine.EmployeeMonthRecord{}, err
	}
	return engine.EmployeeMonthRecord{
		Month:         r.Month,
		Name:          r.Name,
		Role:          r.Role,
		City:          r.City,
		AdmissionDate: r.AdmissionDate,
		Tenure:        r.Tenure,
		TargetValue:   target,
		Observation:   r.Observation,
		TotalErrors:   r.TotalErrors,
		SevereErrors:  r.SevereErrors,
	}, nil
}

// MonthSummary describes one imported month.
type MonthSummary struct {
	Month      string
	Records    int64
	Target     float64
	ImportedAt string
}
