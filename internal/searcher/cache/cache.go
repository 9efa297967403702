// Package cache memoises ranked results per (index, parameters, query) in a
// bounded in-process LRU with an optional shared Redis tier behind it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/resilience"
)

const (
	keyPrefix     = "search:"
	remoteTimeout = 200 * time.Millisecond
)

// Remote is a shared byte store. *redis.Client implements it.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies a ranked result. Terms must be sorted.
type Key struct {
	Fingerprint string
	K1          float64
	B           float64
	Terms       []string
	RankCap     int
}

func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Fingerprint)
	sb.WriteString("|k1=")
	sb.WriteString(strconv.FormatFloat(k.K1, 'g', -1, 64))
	sb.WriteString("|b=")
	sb.WriteString(strconv.FormatFloat(k.B, 'g', -1, 64))
	sb.WriteString("|cap=")
	sb.WriteString(strconv.Itoa(k.RankCap))
	sb.WriteString("|")
	sb.WriteString(strings.Join(k.Terms, ","))
	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// Entry is a cached search outcome: the capped results plus the number of
// documents that scored above zero.
type Entry struct {
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

type QueryCache struct {
	local   *lru.Cache[string, *Entry]
	remote  Remote
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache holding up to size entries in memory. remote may be
// nil to disable the shared tier.
func New(size int, remote Remote, ttl time.Duration, m *metrics.Metrics) (*QueryCache, error) {
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &QueryCache{
		local:  local,
		remote: remote,
		ttl:    ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     30 * time.Second,
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}, nil
}

// Get looks the key up in memory, then in the remote tier. Remote hits are
// promoted into memory.
func (c *QueryCache) Get(ctx context.Context, key Key) (*Entry, bool) {
	k := key.String()
	if e, ok := c.local.Get(k); ok {
		c.hit("memory")
		return e, true
	}
	if e, ok := c.getRemote(ctx, k); ok {
		c.local.Add(k, e)
		c.hit("redis")
		return e, true
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return nil, false
}

func (c *QueryCache) Set(ctx context.Context, key Key, e *Entry) {
	k := key.String()
	c.local.Add(k, e)
	c.setRemote(ctx, k, e)
}

// GetOrCompute returns the cached entry for key or computes it once, even
// when several callers miss concurrently.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, computeFn func() (*Entry, error)) (*Entry, bool, error) {
	if e, ok := c.Get(ctx, key); ok {
		return e, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		if e, ok := c.local.Get(key.String()); ok {
			return e, nil
		}
		e, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, e)
		return e, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate drops every cached entry in both tiers.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.remote == nil {
		return nil
	}
	var deleted int64
	err := resilience.WithTimeout(ctx, 5*time.Second, "redis flush", func(ctx context.Context) error {
		var err error
		deleted, err = c.remote.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "remote_keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit(tier string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (c *QueryCache) getRemote(ctx context.Context, key string) (*Entry, bool) {
	if c.remote == nil {
		return nil, false
	}
	var (
		data  []byte
		found bool
	)
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, remoteTimeout, "redis get", func(ctx context.Context) error {
			var err error
			data, found, err = c.remote.Get(ctx, key)
			return err
		})
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &e, true
}

func (c *QueryCache) setRemote(ctx context.Context, key string, e *Entry) {
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, remoteTimeout, "redis set", func(ctx context.Context) error {
			return c.remote.Set(ctx, key, data, c.ttl)
		})
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}
