package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/bonus-panel/internal/engine"
	"github.com/godilite/bonus-panel/internal/grpc/mocks"
	"github.com/godilite/bonus-panel/internal/report"
	"github.com/godilite/bonus-panel/internal/service"
	"github.com/godilite/bonus-panel/pkg/cache"
)

func samplePanel(period string, f report.Filter) report.Panel {
	cards := []report.Card{{
		Identity: engine.Identity{Name: "ANA LIMA", Role: "SUPERVISOR", City: "TIMON"},
		Period:   period,
		Months:   []string{period},
		Target:   decimal.NewFromInt(1000),
		Earned:   decimal.NewFromInt(500),
		Lost:     decimal.NewFromInt(500),
		Missed:   []string{"Quality"},
	}}
	return report.BuildPanel(period, cards, f)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

// TestNewGRPCHandlers tests the constructor
func TestNewGRPCHandlers(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		svc := &mocks.MockPanelService{}
		mockCache := &mocks.MockCacher{}
		ttl := 5 * time.Minute

		handlers := NewGRPCHandlers(svc, mockCache, zap.NewNop(), ttl)

		assert.Equal(t, svc, handlers.panels)
		assert.Equal(t, mockCache, handlers.cache)
		assert.Equal(t, ttl, handlers.cacheTTL)
		assert.NotNil(t, handlers.logger)
	})

	t.Run("nil panel service panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewGRPCHandlers(nil, &mocks.MockCacher{}, zap.NewNop(), time.Minute)
		})
	})

	t.Run("defaults", func(t *testing.T) {
		handlers := NewGRPCHandlers(&mocks.MockPanelService{}, nil, nil, -time.Minute)

		assert.Equal(t, defaultCacheDuration, handlers.cacheTTL)
		assert.Equal(t, cache.Noop{}, handlers.cache)
	})
}

func TestParseRequest(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		period, f, err := parseRequest(mustStruct(t, map[string]any{
			"period": "JULHO", "name": "ana", "role": "SUPERVISOR", "city": "TIMON", "tenure": "5+ anos",
		}))
		require.NoError(t, err)
		assert.Equal(t, "JULHO", period)
		assert.Equal(t, report.Filter{Name: "ana", Role: "SUPERVISOR", City: "TIMON", Tenure: "5+ anos"}, f)
	})

	t.Run("empty request", func(t *testing.T) {
		period, f, err := parseRequest(nil)
		require.NoError(t, err)
		assert.Empty(t, period)
		assert.Equal(t, report.Filter{}, f)
	})

	t.Run("null is ignored", func(t *testing.T) {
		_, _, err := parseRequest(mustStruct(t, map[string]any{"period": nil}))
		assert.NoError(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, _, err := parseRequest(mustStruct(t, map[string]any{"month": "JULHO"}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("non-string field", func(t *testing.T) {
		_, _, err := parseRequest(mustStruct(t, map[string]any{"period": 7}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Contains(t, err.Error(), "must be a string")
	})
}

func TestHandleError(t *testing.T) {
	handlers := NewGRPCHandlers(&mocks.MockPanelService{}, nil, zap.NewNop(), time.Minute)

	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "unknown period", err: fmt.Errorf("%w: MARÇO", service.ErrUnknownPeriod), code: codes.InvalidArgument},
		{name: "no records", err: service.ErrNoRecords, code: codes.NotFound},
		{name: "source failure", err: fmt.Errorf("%w: disk", service.ErrSourceFailure), code: codes.Internal},
		{name: "unexpected", err: errors.New("boom"), code: codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := handlers.handleError(context.Background(), "op", tc.err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}

	t.Run("canceled context wins", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := handlers.handleError(ctx, "op", service.ErrNoRecords)
		assert.Equal(t, codes.Canceled, status.Code(err))
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()
		err := handlers.handleError(ctx, "op", errors.New("late"))
		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	})
}

func TestGetPanel(t *testing.T) {
	var gotPeriod string
	var gotFilter report.Filter
	svc := &mocks.MockPanelService{
		FingerprintValue: "fp1",
		PanelFunc: func(_ context.Context, period string, f report.Filter) (report.Panel, error) {
			gotPeriod, gotFilter = period, f
			return samplePanel("JULHO", f), nil
		},
	}
	mockCache := &mocks.MockCacher{}
	handlers := NewGRPCHandlers(svc, mockCache, zap.NewNop(), time.Minute)

	resp, err := handlers.GetPanel(context.Background(), mustStruct(t, map[string]any{"period": "julho", "role": "supervisor"}))
	require.NoError(t, err)

	assert.Equal(t, "julho", gotPeriod)
	assert.Equal(t, "supervisor", gotFilter.Role)
	wantKey := service.PanelCacheKey("fp1", "JULHO", report.Filter{Role: "SUPERVISOR"})
	assert.Equal(t, []string{wantKey}, mockCache.GetKeys())
	assert.Equal(t, []string{wantKey}, mockCache.SetKeys())

	fields := resp.GetFields()
	assert.Equal(t, "JULHO", fields["period"].GetStringValue())
	summary := fields["summary"].GetStructValue().GetFields()
	assert.Equal(t, "500", summary["earned"].GetStringValue())
	assert.Equal(t, float64(1), summary["employees"].GetNumberValue())
	cards := fields["cards"].GetListValue().GetValues()
	require.Len(t, cards, 1)
	card := cards[0].GetStructValue().GetFields()
	assert.Equal(t, "ANA LIMA", card["name"].GetStringValue())
	assert.Equal(t, "Quality", card["missed"].GetListValue().GetValues()[0].GetStringValue())
}

func TestGetPanelServesFromCache(t *testing.T) {
	svc := &mocks.MockPanelService{
		PanelFunc: func(context.Context, string, report.Filter) (report.Panel, error) {
			return report.Panel{}, errors.New("must not be called synchronously")
		},
	}
	cached := samplePanel("AGOSTO", report.Filter{})
	mockCache := &mocks.MockCacher{
		GetFunc: func(_ context.Context, _ string, dest any) error {
			data, err := json.Marshal(cached)
			if err != nil {
				return err
			}
			return json.Unmarshal(data, dest)
		},
	}
	handlers := NewGRPCHandlers(svc, mockCache, zap.NewNop(), time.Minute)

	resp, err := handlers.GetPanel(context.Background(), mustStruct(t, map[string]any{"period": "AGOSTO"}))
	require.NoError(t, err)
	assert.Equal(t, "AGOSTO", resp.GetFields()["period"].GetStringValue())
}

func TestErrorHandling_ServiceErrors(t *testing.T) {
	svc := &mocks.MockPanelService{
		PanelFunc: func(context.Context, string, report.Filter) (report.Panel, error) {
			return report.Panel{}, fmt.Errorf("%w: OUTUBRO", service.ErrUnknownPeriod)
		},
		FilterOptionsFunc: func(context.Context, string) (report.Options, error) {
			return report.Options{}, service.ErrNoRecords
		},
	}
	handlers := NewGRPCHandlers(svc, nil, zap.NewNop(), time.Minute)

	_, err := handlers.GetPanel(context.Background(), mustStruct(t, map[string]any{"period": "OUTUBRO"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = handlers.GetFilterOptions(context.Background(), mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = handlers.GetPanel(context.Background(), mustStruct(t, map[string]any{"bogus": "x"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBonusPanelOverTheWire(t *testing.T) {
	svc := &mocks.MockPanelService{
		PanelFunc: func(_ context.Context, period string, f report.Filter) (report.Panel, error) {
			return samplePanel(period, f), nil
		},
		FilterOptionsFunc: func(context.Context, string) (report.Options, error) {
			return report.Options{Periods: []string{"JULHO", "TRIMESTRE"}, Roles: []string{"SUPERVISOR"}}, nil
		},
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterBonusPanelServer(srv, NewGRPCHandlers(svc, nil, zap.NewNop(), time.Minute))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := NewBonusPanelClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	panel, err := client.GetPanel(ctx, mustStruct(t, map[string]any{"period": "JULHO"}))
	require.NoError(t, err)
	assert.Equal(t, "JULHO", panel.GetFields()["period"].GetStringValue())

	opts, err := client.GetFilterOptions(ctx, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	roles := opts.GetFields()["roles"].GetListValue().GetValues()
	require.Len(t, roles, 1)
	assert.Equal(t, "SUPERVISOR", roles[0].GetStringValue())

	_, err = client.GetPanel(ctx, mustStruct(t, map[string]any{"period": 3}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
