package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"musicresolver/internal/core"
)

func sampleTracks() []core.Track {
	return []core.Track{
		{Name: "Never Gonna Give You Up", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Duration: "03:33", Data: "alice"},
		{Name: "Together Forever", URL: "https://www.youtube.com/watch?v=yPYZpwSpKmA", Duration: "03:25"},
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, time.Minute)

	if _, ok := cache.Get(ctx, "rick astley|||5"); ok {
		t.Fatal("empty cache reported a hit")
	}

	cache.Set(ctx, "rick astley|||5", sampleTracks())

	tracks, ok := cache.Get(ctx, "rick astley|||5")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(tracks) != 2 || tracks[0].Name != "Never Gonna Give You Up" {
		t.Errorf("cached tracks = %+v", tracks)
	}
	if tracks[0].Data != nil {
		t.Errorf("cached track kept caller data %v", tracks[0].Data)
	}

	tracks[0].Name = "changed"
	again, _ := cache.Get(ctx, "rick astley|||5")
	if again[0].Name != "Never Gonna Give You Up" {
		t.Error("mutating a returned slice changed the cached entry")
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(2, time.Minute)

	cache.Set(ctx, "a", sampleTracks())
	cache.Set(ctx, "b", sampleTracks())
	cache.Set(ctx, "c", sampleTracks())

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if _, ok := cache.Get(ctx, "a"); ok {
		t.Error("oldest entry should have been evicted")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, 20*time.Millisecond)

	cache.Set(ctx, "a", sampleTracks())
	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get(ctx, "a"); ok {
		t.Error("expired entry reported as hit")
	}
}

func TestRedisCache_UnreachableDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := newRedisCache(client, time.Minute, zap.NewNop())
	t.Cleanup(func() { _ = cache.Close() })

	cache.Set(ctx, "a", sampleTracks())
	if _, ok := cache.Get(ctx, "a"); ok {
		t.Error("unreachable Redis reported a hit")
	}
	if err := cache.Ping(ctx); err == nil {
		t.Error("Ping() to an unreachable Redis should fail")
	}
}
