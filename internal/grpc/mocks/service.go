package mocks

import (
	"context"
	"errors"

	"github.com/godilite/bonus-panel/internal/report"
)

// MockPanelService is a mock implementation of the PanelService interface
// for testing the handler layer.
type MockPanelService struct {
	PanelFunc         func(ctx context.Context, period string, filter report.Filter) (report.Panel, error)
	FilterOptionsFunc func(ctx context.Context, period string) (report.Options, error)
	FingerprintValue  string
}

// Panel implements the PanelService interface
func (m *MockPanelService) Panel(ctx context.Context, period string, filter report.Filter) (report.Panel, error) {
	if m.PanelFunc != nil {
		return m.PanelFunc(ctx, period, filter)
	}
	return report.Panel{}, errors.New("PanelFunc not implemented")
}

// FilterOptions implements the PanelService interface
func (m *MockPanelService) FilterOptions(ctx context.Context, period string) (report.Options, error) {
	if m.FilterOptionsFunc != nil {
		return m.FilterOptionsFunc(ctx, period)
	}
	return report.Options{}, errors.New("FilterOptionsFunc not implemented")
}

// Fingerprint implements the PanelService interface
func (m *MockPanelService) Fingerprint() string {
	return m.FingerprintValue
}
