package features

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/atashie/locationAnalyzer/internal/model"
)

// redisCmds is the subset of redis.Cmdable the cache needs.
type redisCmds interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider is a read-through Redis cache around another Provider.
// Entries are keyed by a fingerprint of the exact query polygon and tag
// filter, so only identical queries share an entry. Cache failures degrade to
// the inner provider, never to an error.
type CachedProvider struct {
	inner Provider
	redis redisCmds
	ttl   time.Duration
}

// NewCachedProvider wraps a provider with a Redis cache.
func NewCachedProvider(inner Provider, rdb redisCmds, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, redis: rdb, ttl: ttl}
}

// Query serves from cache when possible, falling through to the inner
// provider and populating the cache on a miss.
func (p *CachedProvider) Query(ctx context.Context, area geom.T, tags map[string]string) ([]model.Feature, error) {
	key := cacheKey(area, tags)

	cached, err := p.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var out []model.Feature
		if unmarshalErr := json.Unmarshal([]byte(cached), &out); unmarshalErr == nil {
			return out, nil
		}
		// Corrupt entry: fall through and overwrite.
	case !eris.Is(err, redis.Nil):
		zap.L().Warn("feature cache read failed", zap.Error(err))
	}

	out, err := p.inner.Query(ctx, area, tags)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "features: encode cache entry")
	}
	if err := p.redis.Set(ctx, key, encoded, p.ttl).Err(); err != nil {
		zap.L().Warn("feature cache write failed", zap.Error(err))
	}
	return out, nil
}

// cacheKey fingerprints the query polygon and tag filter.
func cacheKey(area geom.T, tags map[string]string) string {
	h := sha256.New()
	if area != nil {
		for _, c := range area.FlatCoords() {
			fmt.Fprintf(h, "%.7f,", c)
		}
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k + "=" + tags[k] + ";"))
	}

	return "features:" + hex.EncodeToString(h.Sum(nil))
}
