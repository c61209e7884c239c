package mocks

import (
	"context"
	"errors"

	"github.com/godilite/bonus-panel/internal/engine"
)

// MockRecordSource is a mock implementation of the RecordSource interface
// for testing the service layer.
type MockRecordSource struct {
	MonthRecordsFunc func(ctx context.Context, month string) ([]engine.EmployeeMonthRecord, error)
}

// MonthRecords implements the RecordSource interface
func (m *MockRecordSource) MonthRecords(ctx context.Context, month string) ([]engine.EmployeeMonthRecord, error) {
	if m.MonthRecordsFunc != nil {
		return m.MonthRecordsFunc(ctx, month)
	}
	return nil, errors.New("MonthRecordsFunc not implemented")
}
