package grpc

import (
	"context"

	"github.com/godilite/bonus-panel/internal/report"
)

// PanelService is the part of the bonus service exposed over gRPC.
type PanelService interface {
	Panel(ctx context.Context, period string, filter report.Filter) (report.Panel, error)
	FilterOptions(ctx context.Context, period string) (report.Options, error)
	Fingerprint() string
}
