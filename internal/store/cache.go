package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"musicresolver/internal/core"
)

// MemoryCache is a process-local search result cache with LRU eviction and a TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, []core.Track]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, []core.Track](max(size, 1), nil, ttl),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]core.Track, bool) {
	tracks, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return cloneTracks(tracks), true
}

func (c *MemoryCache) Set(_ context.Context, key string, tracks []core.Track) {
	c.lru.Add(key, cloneTracks(tracks))
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// cloneTracks copies tracks without caller data so cached entries never alias or leak it.
func cloneTracks(tracks []core.Track) []core.Track {
	out := make([]core.Track, len(tracks))
	for i := range tracks {
		out[i] = tracks[i]
		out[i].Data = nil
	}
	return out
}
