// Package flood rate limits API clients with a per-client sliding window.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed sliding window (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle clients are dropped
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a client may stay silent before its entry is dropped
	idleTimeout = 10 * time.Minute
)

// Floodgate limits each client to limitPerMinute requests per sliding minute.
type Floodgate struct {
	limitPerMinute int
	clients        map[string]*window // Key: client address
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

// window is the request log of one client, oldest first.
type window struct {
	requests []time.Time
	lastSeen time.Time
}

// inWindow returns the requests younger than windowDuration at now. requests is sorted, so
// the stale ones form a prefix.
func (w *window) inWindow(now time.Time) []time.Time {
	start := now.Add(-windowDuration)
	i := 0
	for i < len(w.requests) && !w.requests[i].After(start) {
		i++
	}
	return w.requests[i:]
}

// wait is how long until a request fits under limit at now.
func (w *window) wait(now time.Time, limit int) time.Duration {
	recent := w.inWindow(now)
	if len(recent) < limit {
		return 0
	}
	return max(recent[len(recent)-limit].Add(windowDuration).Sub(now), 0)
}

// New creates a Floodgate and starts its background cleanup. A limit of zero or less
// disables limiting.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		clients:        make(map[string]*window),
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine. It is safe to call more than once.
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow reports whether a request from clientID fits in its window, and records it if so.
func (fg *Floodgate) Allow(clientID string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	now := time.Now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	w, exists := fg.clients[clientID]
	if !exists {
		w = &window{requests: make([]time.Time, 0, fg.limitPerMinute)}
		fg.clients[clientID] = w
	}
	w.lastSeen = now
	w.requests = w.inWindow(now)

	if w.wait(now, fg.limitPerMinute) > 0 {
		return false
	}

	w.requests = append(w.requests, now)
	return true
}

// RetryAfter is how long clientID must wait before its next request is allowed.
func (fg *Floodgate) RetryAfter(clientID string) time.Duration {
	if fg.limitPerMinute <= 0 {
		return 0
	}

	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	w, exists := fg.clients[clientID]
	if !exists {
		return 0
	}
	return w.wait(time.Now(), fg.limitPerMinute)
}

func (fg *Floodgate) cleanup() {
	fg.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

// performCleanup removes clients idle for longer than idleTimeout
func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	for key, w := range fg.clients {
		if w.lastSeen.Before(cutoff) {
			delete(fg.clients, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveClients:  len(fg.clients),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
