package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/session"
)

// Cache is a best-effort byte cache; failures read as misses
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

type memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory returns an in-process cache
func NewMemory() Cache { return newMemory(time.Now) }

func newMemory(now func() time.Time) *memory {
	return &memory{m: make(map[string]entry), now: now}
}

func (c *memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	c.m[key] = e
}

// redisCache is used when a redis address is configured
type redisCache struct {
	r       *redis.Client
	timeout time.Duration
}

// NewRedis wraps a go-redis client
func NewRedis(client *redis.Client) Cache {
	return &redisCache{r: client, timeout: 500 * time.Millisecond}
}

// NewAuto picks redis when addr is set and memory otherwise
func NewAuto(addr string, db int) Cache {
	if addr != "" {
		log.Info().Str("addr", addr).Msg("Prediction cache on redis")
		return NewRedis(redis.NewClient(&redis.Options{Addr: addr, DB: db}))
	}
	return NewMemory()
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	v, err := r.r.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, false
	}
	return v, true
}

func (r *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.r.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Forecasts stores session forecasts as JSON under a key prefix
type Forecasts struct {
	cache  Cache
	prefix string
	ttl    time.Duration
}

var _ session.ForecastCache = (*Forecasts)(nil)

// NewForecasts adapts c into a forecast cache
func NewForecasts(c Cache, prefix string, ttl time.Duration) *Forecasts {
	return &Forecasts{cache: c, prefix: prefix, ttl: ttl}
}

func (f *Forecasts) Get(ctx context.Context, key string) (session.Forecast, bool) {
	raw, ok := f.cache.Get(ctx, f.prefix+":forecast:"+key)
	if !ok {
		return session.Forecast{}, false
	}
	var out session.Forecast
	if err := json.Unmarshal(raw, &out); err != nil {
		return session.Forecast{}, false
	}
	return out, true
}

func (f *Forecasts) Set(ctx context.Context, key string, fc session.Forecast) {
	raw, err := json.Marshal(fc)
	if err != nil {
		return
	}
	f.cache.Set(ctx, f.prefix+":forecast:"+key, raw, f.ttl)
}
