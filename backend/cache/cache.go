// Package cache provides a two-level search result cache: an in-process LRU
// backed by an optional shared Redis tier. Search results are immutable for a
// given query, so caching is transparent to the pipeline.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/internal/metrics"
)

// Key derives a stable cache key from the search call signature. Params are
// sorted so map iteration order does not change the key.
func Key(provider, query string, opts backend.SearchOptions) string {
	var sb strings.Builder
	sb.WriteString(provider)
	sb.WriteByte('|')
	sb.WriteString(query)
	fmt.Fprintf(&sb, "|%d", opts.TopK)

	keys := make([]string, 0, len(opts.Params))
	for k := range opts.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%s", k, opts.Params[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return "search:" + hex.EncodeToString(sum[:16])
}

type localEntry struct {
	key       string
	docs      []backend.SourceDocument
	expiresAt time.Time
}

// localLRU is a size-bounded TTL LRU. Safe for concurrent use.
type localLRU struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List
	items   map[string]*list.Element
}

func newLocalLRU(maxSize int, ttl time.Duration) *localLRU {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &localLRU{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

func (l *localLRU) get(key string) ([]backend.SourceDocument, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*localEntry)
	if time.Now().After(entry.expiresAt) {
		l.order.Remove(el)
		delete(l.items, key)
		return nil, false
	}
	l.order.MoveToFront(el)
	return entry.docs, true
}

func (l *localLRU) set(key string, docs []backend.SourceDocument) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.items[key]; ok {
		entry := el.Value.(*localEntry)
		entry.docs = docs
		entry.expiresAt = time.Now().Add(l.ttl)
		l.order.MoveToFront(el)
		return
	}
	el := l.order.PushFront(&localEntry{key: key, docs: docs, expiresAt: time.Now().Add(l.ttl)})
	l.items[key] = el
	if l.order.Len() > l.maxSize {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.items, oldest.Value.(*localEntry).key)
	}
}

func (l *localLRU) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// SearchCache is the two-level cache. The Redis tier is optional; with a nil
// client the cache is local-only.
type SearchCache struct {
	local    *localLRU
	rdb      *redis.Client
	redisTTL time.Duration
	logger   *zap.Logger
}

// Options configures a SearchCache.
type Options struct {
	LocalMaxSize int
	LocalTTL     time.Duration
	RedisClient  *redis.Client
	RedisTTL     time.Duration
	Logger       *zap.Logger
}

// New creates a search cache.
func New(opts Options) *SearchCache {
	if opts.LocalTTL <= 0 {
		opts.LocalTTL = 5 * time.Minute
	}
	if opts.RedisTTL <= 0 {
		opts.RedisTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &SearchCache{
		local:    newLocalLRU(opts.LocalMaxSize, opts.LocalTTL),
		rdb:      opts.RedisClient,
		redisTTL: opts.RedisTTL,
		logger:   opts.Logger,
	}
}

// Get looks up cached documents, local tier first. A Redis hit is promoted
// into the local tier.
func (c *SearchCache) Get(ctx context.Context, key string) ([]backend.SourceDocument, bool) {
	if docs, ok := c.local.get(key); ok {
		return docs, true
	}
	if c.rdb == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var docs []backend.SourceDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.Warn("redis cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	c.local.set(key, docs)
	return docs, true
}

// Set stores documents in both tiers. Redis failures are logged, not
// returned; the cache never blocks a search.
func (c *SearchCache) Set(ctx context.Context, key string, docs []backend.SourceDocument) {
	c.local.set(key, docs)
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.redisTTL).Err(); err != nil {
		c.logger.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// LocalLen returns the local tier entry count.
func (c *SearchCache) LocalLen() int { return c.local.len() }

// CachingSearcher wraps a Searcher with a SearchCache.
type CachingSearcher struct {
	inner    backend.Searcher
	provider string
	cache    *SearchCache
	metrics  *metrics.Collector
}

// NewCachingSearcher wraps inner so repeated identical queries hit the cache.
func NewCachingSearcher(inner backend.Searcher, provider string, cache *SearchCache) *CachingSearcher {
	return &CachingSearcher{inner: inner, provider: provider, cache: cache}
}

// WithMetrics attaches a collector so cache hits and misses surface as
// counters.
func (s *CachingSearcher) WithMetrics(c *metrics.Collector) *CachingSearcher {
	s.metrics = c
	return s
}

// Search serves from cache when possible, otherwise delegates and stores the
// result. Errors are never cached.
func (s *CachingSearcher) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SourceDocument, error) {
	key := Key(s.provider, query, opts)
	if docs, ok := s.cache.Get(ctx, key); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit("search")
		}
		return docs, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss("search")
	}
	docs, err := s.inner.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, docs)
	return docs, nil
}
