package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/bonus-panel/internal/report"
	"github.com/godilite/bonus-panel/internal/service"
	"github.com/godilite/bonus-panel/pkg/cache"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

// requestFields are the string fields a request may carry.
var requestFields = map[string]struct{}{
	"period": {},
	"name":   {},
	"role":   {},
	"city":   {},
	"tenure": {},
}

var _ BonusPanelServer = (*GRPCHandlers)(nil)

type GRPCHandlers struct {
	panels   PanelService
	cache    cache.Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group
	cacheTTL time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers. A nil cache disables caching.
func NewGRPCHandlers(panels PanelService, c cache.Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if panels == nil {
		panic("nil PanelService provided to NewGRPCHandlers")
	}
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &GRPCHandlers{
		panels:   panels,
		cache:    c,
		logger:   logger.Named("grpc-handler"),
		cacheTTL: ttl,
	}
}

// parseRequest reads {"period", "name", "role", "city", "tenure"}; all
// optional strings.
func parseRequest(req *structpb.Struct) (string, report.Filter, error) {
	values := make(map[string]string, len(requestFields))
	for key, v := range req.GetFields() {
		if _, ok := requestFields[key]; !ok {
			return "", report.Filter{}, status.Errorf(codes.InvalidArgument, "unknown field %q", key)
		}
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
				continue
			}
			return "", report.Filter{}, status.Errorf(codes.InvalidArgument, "field %q must be a string", key)
		}
		values[key] = s.StringValue
	}
	return values["period"], report.Filter{
		Name:   values["name"],
		Role:   values["role"],
		City:   values["city"],
		Tenure: values["tenure"],
	}, nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrUnknownPeriod):
		s.logger.Info("unknown period", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNoRecords):
		s.logger.Info("no records found", zap.String("op", op))
		return status.Error(codes.NotFound, "no records found for the given period")
	case errors.Is(err, service.ErrSourceFailure):
		s.logger.Error("record source failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "record source error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) GetPanel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	period, filter, err := parseRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	key := service.PanelCacheKey(s.panels.Fingerprint(), period, filter)
	panel, err := cache.FindAndCache(ctx, s.cache, &s.sfGroup, key, s.cacheTTL, true, s.logger, func(fetchCtx context.Context) (report.Panel, error) {
		return s.panels.Panel(fetchCtx, period, filter)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetPanel", err)
	}

	return toStruct(panel)
}

func (s *GRPCHandlers) GetFilterOptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	period, _, err := parseRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	key := service.OptionsCacheKey(s.panels.Fingerprint(), period)
	opts, err := cache.FindAndCache(ctx, s.cache, &s.sfGroup, key, s.cacheTTL, true, s.logger, func(fetchCtx context.Context) (report.Options, error) {
		return s.panels.FilterOptions(fetchCtx, period)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetFilterOptions", err)
	}

	return toStruct(opts)
}

// toStruct converts a view model into a Struct through its JSON form, so both
// transports expose the same field names.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
