package mocks

import (
	"context"
	"errors"

	"github.com/godilite/bonus-panel/internal/report"
)

type MockService struct {
	PanelFunc         func(ctx context.Context, period string, filter report.Filter) (report.Panel, error)
	FilterOptionsFunc func(ctx context.Context, period string) (report.Options, error)
	CardFunc          func(ctx context.Context, period, name string) (report.Card, error)
	FingerprintValue  string
}

func (m *MockService) Panel(ctx context.Context, period string, filter report.Filter) (report.Panel, error) {
	if m.PanelFunc != nil {
		return m.PanelFunc(ctx, period, filter)
	}
	return report.Panel{}, errors.New("PanelFunc not implemented")
}

func (m *MockService) FilterOptions(ctx context.Context, period string) (report.Options, error) {
	if m.FilterOptionsFunc != nil {
		return m.FilterOptionsFunc(ctx, period)
	}
	return report.Options{}, errors.New("FilterOptionsFunc not implemented")
}

func (m *MockService) Card(ctx context.Context, period, name string) (report.Card, error) {
	if m.CardFunc != nil {
		return m.CardFunc(ctx, period, name)
	}
	return report.Card{}, errors.New("CardFunc not implemented")
}

func (m *MockService) Fingerprint() string {
	if m.FingerprintValue == "" {
		return "test"
	}
	return m.FingerprintValue
}
