package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/MikhailRaia/codekeeper/internal/model"
)

// Memory is an in-process cache backed by patrickmn/go-cache.
type Memory struct {
	cache *gocache.Cache
	hold  time.Duration
}

// tombstone marks a code evicted by Delete.
type tombstone struct{}

// NewMemory creates a cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		cache: gocache.New(ttl, 2*ttl),
		hold:  tombstoneTTL(ttl),
	}
}

func (c *Memory) Get(_ context.Context, code string) (model.URLMapping, error) {
	val, found := c.cache.Get(code)
	if !found {
		return model.URLMapping{}, ErrMiss
	}

	m, ok := val.(model.URLMapping)
	if !ok {
		return model.URLMapping{}, ErrMiss
	}
	return m, nil
}

// Set caches m unless its code holds an entry or a tombstone.
func (c *Memory) Set(_ context.Context, m model.URLMapping) error {
	_ = c.cache.Add(m.ShortCode, m, gocache.DefaultExpiration)
	return nil
}

func (c *Memory) Delete(_ context.Context, codes ...string) error {
	for _, code := range codes {
		c.cache.Set(code, tombstone{}, c.hold)
	}
	return nil
}

// Len returns the number of cached entries and tombstones, including
// expired ones not yet purged.
func (c *Memory) Len() int {
	return c.cache.ItemCount()
}
