package features

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/model"
)

type fakeRedis struct {
	store  map[string]string
	getErr error
	setErr error
	sets   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.sets++
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.store[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

type countingProvider struct {
	features []model.Feature
	err      error
	calls    int
}

func (p *countingProvider) Query(_ context.Context, _ geom.T, _ map[string]string) ([]model.Feature, error) {
	p.calls++
	return p.features, p.err
}

func cafeTags() map[string]string { return map[string]string{"amenity": "cafe"} }

func TestCachedProvider_ReadThrough(t *testing.T) {
	inner := &countingProvider{features: []model.Feature{{ID: "node/1", Name: "Cafe"}}}
	rdb := newFakeRedis()
	p := NewCachedProvider(inner, rdb, time.Hour)

	first, err := p.Query(context.Background(), testArea(), cafeTags())
	require.NoError(t, err)
	second, err := p.Query(context.Background(), testArea(), cafeTags())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, rdb.sets)
}

func TestCachedProvider_DistinctQueriesDistinctEntries(t *testing.T) {
	inner := &countingProvider{features: []model.Feature{{ID: "node/1"}}}
	p := NewCachedProvider(inner, newFakeRedis(), time.Hour)

	_, err := p.Query(context.Background(), testArea(), cafeTags())
	require.NoError(t, err)
	_, err = p.Query(context.Background(), testArea(), map[string]string{"shop": "supermarket"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_RedisFailureDegrades(t *testing.T) {
	inner := &countingProvider{features: []model.Feature{{ID: "node/1"}}}
	rdb := newFakeRedis()
	rdb.getErr = eris.New("redis: connection refused")
	rdb.setErr = rdb.getErr
	p := NewCachedProvider(inner, rdb, time.Hour)

	got, err := p.Query(context.Background(), testArea(), cafeTags())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProvider_CorruptEntryOverwritten(t *testing.T) {
	inner := &countingProvider{features: []model.Feature{{ID: "node/1"}}}
	rdb := newFakeRedis()
	rdb.store[cacheKey(testArea(), cafeTags())] = "{not json"
	p := NewCachedProvider(inner, rdb, time.Hour)

	got, err := p.Query(context.Background(), testArea(), cafeTags())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, rdb.sets)
}

func TestCachedProvider_InnerErrorNotCached(t *testing.T) {
	inner := &countingProvider{err: eris.New("overpass: 504")}
	rdb := newFakeRedis()
	p := NewCachedProvider(inner, rdb, time.Hour)

	_, err := p.Query(context.Background(), testArea(), cafeTags())
	require.Error(t, err)
	assert.Zero(t, rdb.sets)
}

func TestCacheKey_SensitiveToPolygonAndTags(t *testing.T) {
	other := geom.NewPolygonFlat(geom.XY, []float64{
		-80, 34, -79, 34, -79, 35, -80, 34,
	}, []int{8})

	assert.Equal(t, cacheKey(testArea(), cafeTags()), cacheKey(testArea(), cafeTags()))
	assert.NotEqual(t, cacheKey(testArea(), cafeTags()), cacheKey(other, cafeTags()))
	assert.NotEqual(t, cacheKey(testArea(), cafeTags()), cacheKey(testArea(), map[string]string{"amenity": "bar"}))
}
