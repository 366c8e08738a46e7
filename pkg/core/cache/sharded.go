package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

type CacheOptions struct {
	NumShards int
	// default ttl, used when Set is called with ttl <= 0
	TTL           time.Duration
	CleanInterval time.Duration
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

// ShardedCache is an in-process TTL cache. Keys are spread over shards by
// xxh3 hash so readers of different users rarely contend.
type ShardedCache struct {
	name    string
	shards  []*shard
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

func NewShardedCache(name string, opts CacheOptions) *ShardedCache {
	if opts.NumShards <= 0 {
		opts.NumShards = 16
	}
	c := &ShardedCache{
		name:   name,
		shards: make([]*shard, opts.NumShards),
		ttl:    opts.TTL,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i] = &shard{items: map[string]entry{}}
	}
	if opts.CleanInterval > 0 {
		go c.janitor(opts.CleanInterval)
	}
	return c
}

func (c *ShardedCache) Name() string {
	return c.name
}

func (c *ShardedCache) shardFor(key string) *shard {
	return c.shards[xxh3.HashString(key)%uint64(len(c.shards))]
}

func (c *ShardedCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *ShardedCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	s := c.shardFor(key)
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
	return nil
}

func (c *ShardedCache) Delete(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

func (c *ShardedCache) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	deleted := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k := range s.items {
			if strings.HasPrefix(k, prefix) {
				delete(s.items, k)
				deleted++
			}
		}
		s.mu.Unlock()
	}
	return deleted, nil
}

// Len counts entries including expired ones not yet collected.
func (c *ShardedCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

func (c *ShardedCache) removeExpired() {
	now := c.now()
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
				delete(s.items, k)
			}
		}
		s.mu.Unlock()
	}
}

func (c *ShardedCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *ShardedCache) Close() error {
	c.stopped.Do(func() { close(c.stop) })
	return nil
}
