package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

// memoryCacheRepo mimics the redis repository with JSON round-trips.
type memoryCacheRepo struct {
	items  map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)

	var out []string
	hit, err := cache.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(context.Background(), "k", []string{"a"}, 0))
	assert.Equal(t, time.Minute, repo.ttls["k"])

	hit, err = cache.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "departments:1", 1, 0))
	require.NoError(t, cache.Set(ctx, "departments:list:x", 2, 0))
	require.NoError(t, cache.Set(ctx, "courses:1", 3, 0))

	require.NoError(t, cache.Invalidate(ctx, "departments:*"))
	assert.Len(t, repo.items, 1)
	assert.Contains(t, repo.items, "courses:1")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)

	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.items)

	var out int
	hit, err := cache.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}

func TestCacheServiceGetErrorIsReported(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection refused")
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	var out int
	hit, err := cache.Get(context.Background(), "k", &out)
	assert.Error(t, err)
	assert.False(t, hit)
}
