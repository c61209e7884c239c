package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/bonus-panel/internal/engine"
	"github.com/godilite/bonus-panel/internal/report"
)

// memoryCache round-trips values through JSON like the redis cache does.
type memoryCache struct {
	mu     sync.Mutex
	items  map[string][]byte
	getErr error
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	data, ok := m.items[key]
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = data
	m.sets++
	return nil
}

func (m *memoryCache) Close() error { return nil }

func (m *memoryCache) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

type payload struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

func TestFindAndCacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache()
	var sf singleflight.Group
	var calls atomic.Int32

	fetch := func(context.Context) (payload, error) {
		calls.Add(1)
		return payload{Name: "JULHO", Total: 1500}, nil
	}

	got, err := FindAndCache(ctx, c, &sf, "panel:JULHO", time.Minute, false, zaptest.NewLogger(t), fetch)
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "JULHO", Total: 1500}, got)
	assert.Equal(t, 1, c.setCount())

	got, err = FindAndCache(ctx, c, &sf, "panel:JULHO", time.Minute, false, nil, fetch)
	require.NoError(t, err)
	assert.Equal(t, "JULHO", got.Name)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFindAndCachePanelSurvivesRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache()
	var sf singleflight.Group
	var builds atomic.Int32

	card := report.Card{
		Identity:   engine.Identity{Name: "ANA SOUZA", Role: "VISTORIADOR", City: "TIMON"},
		Period:     "JULHO",
		Months:     []string{"JULHO"},
		Target:     decimal.NewFromInt(600),
		Earned:     decimal.RequireFromString("420.5"),
		Lost:       decimal.RequireFromString("179.5"),
		Percentage: 70.08,
		Missed:     []string{"Quality (50%)"},
	}
	build := func(context.Context) (report.Panel, error) {
		builds.Add(1)
		return report.BuildPanel("JULHO", []report.Card{card}, report.Filter{City: "Timon"}), nil
	}

	first, err := FindAndCache(ctx, c, &sf, "panel:3f2a:JULHO:||TIMON|", time.Minute, false, zaptest.NewLogger(t), build)
	require.NoError(t, err)
	second, err := FindAndCache(ctx, c, &sf, "panel:3f2a:JULHO:||TIMON|", time.Minute, false, zaptest.NewLogger(t), build)
	require.NoError(t, err)
	assert.Equal(t, int32(1), builds.Load())

	require.Len(t, second.Cards, 1)
	assert.Equal(t, first.Period, second.Period)
	assert.Equal(t, "TIMON", second.Cards[0].City)
	assert.True(t, second.Cards[0].Earned.Equal(card.Earned))
	assert.True(t, second.Cards[0].Lost.Equal(card.Lost))
	assert.True(t, second.Summary.Target.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, 1, second.Summary.Employees)

	// A new rules fingerprint is a different key and rebuilds the panel.
	_, err = FindAndCache(ctx, c, &sf, "panel:9c1d:JULHO:||TIMON|", time.Minute, false, nil, build)
	require.NoError(t, err)
	assert.Equal(t, int32(2), builds.Load())
}

func TestFindAndCacheRefreshAhead(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache()
	require.NoError(t, c.Set(ctx, "k", payload{Name: "stale"}, time.Minute))
	var sf singleflight.Group

	got, err := FindAndCache(ctx, c, &sf, "k", time.Minute, true, nil, func(context.Context) (payload, error) {
		return payload{Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", got.Name)

	assert.Eventually(t, func() bool {
		var p payload
		return c.Get(ctx, "k", &p) == nil && p.Name == "fresh"
	}, time.Second, 10*time.Millisecond)
}

func TestFindAndCacheGetErrorIsMiss(t *testing.T) {
	c := newMemoryCache()
	c.getErr = errors.New("connection refused")
	var sf singleflight.Group

	got, err := FindAndCache(context.Background(), c, &sf, "k", time.Minute, false, nil, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestFindAndCacheFetchError(t *testing.T) {
	c := newMemoryCache()
	var sf singleflight.Group
	boom := errors.New("boom")

	_, err := FindAndCache(context.Background(), c, &sf, "k", time.Minute, false, nil, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.setCount())
}

func TestNoopAlwaysMisses(t *testing.T) {
	var n Noop
	var v int
	require.NoError(t, n.Set(context.Background(), "k", 1, time.Minute))
	assert.ErrorIs(t, n.Get(context.Background(), "k", &v), redis.Nil)
	assert.NoError(t, n.Close())
}

func TestAddTTLJitter(t *testing.T) {
	assert.Equal(t, 10*time.Second, addTTLJitter(10*time.Second))
	for i := 0; i < 50; i++ {
		got := addTTLJitter(5 * time.Minute)
		assert.GreaterOrEqual(t, got, 5*time.Minute-15*time.Second)
		assert.Less(t, got, 5*time.Minute+15*time.Second)
	}
}
