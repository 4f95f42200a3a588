package apis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long an API definition stays in the cache.
const DefaultCacheTTL = 5 * time.Minute

const (
	cacheDependency = "redis"
	storeDependency = "apis"
	opFindByID      = "apis.find_by_id"
)

// CacheRecorder receives cache and load metrics. *middleware.DependencyMetrics satisfies it.
type CacheRecorder interface {
	RecordCacheHit(dependency, operation string)
	RecordCacheMiss(dependency, operation string)
	RecordRequest(dependency, operation string, duration time.Duration, err error)
}

// CachedRepository wraps a Repository with a redis read-through cache for FindByID.
// Writes go to the underlying repository first and then evict the cached entry.
// Cache failures are logged and never fail the call.
type CachedRepository struct {
	next    Repository
	rdb     *redis.Client
	ttl     time.Duration
	logger  zerolog.Logger
	metrics CacheRecorder
}

// CachedRepositoryConfig holds configuration for the cached repository.
type CachedRepositoryConfig struct {
	Repository Repository
	Client     *redis.Client
	TTL        time.Duration
	Logger     zerolog.Logger
	Metrics    CacheRecorder // optional
}

// NewCachedRepository creates a new redis-backed read-through repository.
func NewCachedRepository(cfg CachedRepositoryConfig) *CachedRepository {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &CachedRepository{
		next:    cfg.Repository,
		rdb:     cfg.Client,
		ttl:     ttl,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// CacheKey returns the redis key an API definition is cached under.
func CacheKey(id string) string {
	return "api:" + id
}

// FindAll bypasses the cache.
func (r *CachedRepository) FindAll(ctx context.Context) ([]*API, error) {
	return r.next.FindAll(ctx)
}

// FindByID serves the API from redis when present, otherwise loads and caches it.
func (r *CachedRepository) FindByID(ctx context.Context, id string) (*API, error) {
	key := CacheKey(id)

	data, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var api API
		if err := json.Unmarshal(data, &api); err == nil {
			if r.metrics != nil {
				r.metrics.RecordCacheHit(cacheDependency, opFindByID)
			}
			return &api, nil
		}
		r.logger.Warn().Str("api_id", id).Msg("discarding undecodable cached api")
	case !errors.Is(err, redis.Nil):
		r.logger.Warn().Err(err).Str("api_id", id).Msg("api cache read failed")
	}

	if r.metrics != nil {
		r.metrics.RecordCacheMiss(cacheDependency, opFindByID)
	}

	start := time.Now()
	api, err := r.next.FindByID(ctx, id)
	if r.metrics != nil {
		r.metrics.RecordRequest(storeDependency, opFindByID, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(api)
	if err != nil {
		return api, nil
	}
	if err := r.rdb.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("api_id", id).Msg("api cache write failed")
	}

	return api, nil
}

// Create stores the API in the underlying repository.
func (r *CachedRepository) Create(ctx context.Context, api *API) error {
	if err := r.next.Create(ctx, api); err != nil {
		return err
	}
	r.evict(ctx, api.ID)
	return nil
}

// Update replaces the API and evicts the cached copy.
func (r *CachedRepository) Update(ctx context.Context, api *API) error {
	if err := r.next.Update(ctx, api); err != nil {
		return err
	}
	r.evict(ctx, api.ID)
	return nil
}

// Delete removes the API and evicts the cached copy.
func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

func (r *CachedRepository) evict(ctx context.Context, id string) {
	if err := r.rdb.Del(ctx, CacheKey(id)).Err(); err != nil {
		r.logger.Warn().Err(err).Str("api_id", id).Msg("api cache eviction failed")
	}
}

// Ensure CachedRepository implements Repository interface.
var _ Repository = (*CachedRepository)(nil)
