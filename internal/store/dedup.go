// Package store provides the resolver's storage: search result caches and URL de-duplication.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"musicresolver/internal/core"
)

// DefaultFalsePositiveRate is the Bloom filter error rate used by NewDedupFactory.
const DefaultFalsePositiveRate = 0.001

// DedupStore remembers up to maxURLs track URLs. The Bloom filter answers most misses
// without touching the map; the map keeps Has exact. Beyond capacity the oldest URL is
// forgotten.
type DedupStore struct {
	urls  map[string]struct{}
	bloom *bloom.BloomFilter
	lru   *lru.Cache[string, struct{}]
	mutex sync.RWMutex
}

// NewDedupStore creates a store for maxURLs entries. Capacities below one are raised to one.
func NewDedupStore(maxURLs int, falsePositiveRate float64) *DedupStore {
	maxURLs = max(maxURLs, 1)

	ds := &DedupStore{
		urls:  make(map[string]struct{}, maxURLs),
		bloom: bloom.NewWithEstimates(uint(maxURLs), falsePositiveRate),
	}
	// Evictions run inside lru.Add, which Add calls with the mutex held.
	ds.lru, _ = lru.NewWithEvict(maxURLs, func(url string, _ struct{}) {
		delete(ds.urls, url)
	})
	return ds
}

// NewDedupFactory returns a core.Dependencies.NewDedup that builds one store per playlist.
func NewDedupFactory(falsePositiveRate float64) func(capacity int) core.DedupStore {
	return func(capacity int) core.DedupStore {
		return NewDedupStore(capacity, falsePositiveRate)
	}
}

// Has reports whether url was added and not yet evicted.
func (ds *DedupStore) Has(url string) bool {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.bloom.TestString(url) {
		return false
	}

	_, exists := ds.urls[url]
	return exists
}

// Add records url.
func (ds *DedupStore) Add(url string) {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if _, exists := ds.urls[url]; exists {
		return
	}

	ds.urls[url] = struct{}{}
	ds.bloom.AddString(url)
	ds.lru.Add(url, struct{}{})
}

// Size returns the number of URLs currently stored.
func (ds *DedupStore) Size() int {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return len(ds.urls)
}
