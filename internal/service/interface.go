package service

import (
	"context"

	"github.com/godilite/bonus-panel/internal/engine"
)

// RecordSource supplies the employee-month rows of one month. The workbook
// reader and the SQLite staging repository both implement it.
type RecordSource interface {
	MonthRecords(ctx context.Context, month string) ([]engine.EmployeeMonthRecord, error)
}
