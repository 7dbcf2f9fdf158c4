package flood

import (
	"testing"
	"time"
)

func TestFloodgate_Allow_NormalUsage(t *testing.T) {
	fg := New(3) // 3 requests per minute
	defer fg.Stop()

	for i := 0; i < 3; i++ {
		if !fg.Allow("10.0.0.1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if fg.Allow("10.0.0.1") {
		t.Error("4th request should be blocked")
	}
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg := New(2)
	defer fg.Stop()

	client := "10.0.0.1"

	if !fg.Allow(client) || !fg.Allow(client) {
		t.Fatal("First two requests should be allowed")
	}
	if fg.Allow(client) {
		t.Error("Third request should be blocked")
	}

	// Age the logged requests past the window
	fg.mutex.Lock()
	if w, exists := fg.clients[client]; exists {
		pastTime := time.Now().Add(-61 * time.Second)
		for i := range w.requests {
			w.requests[i] = pastTime
		}
	}
	fg.mutex.Unlock()

	if !fg.Allow(client) {
		t.Error("Request after window slide should be allowed")
	}
}

func TestFloodgate_Allow_PerClient(t *testing.T) {
	fg := New(2)
	defer fg.Stop()

	for i := 0; i < 2; i++ {
		if !fg.Allow("10.0.0.1") {
			t.Errorf("Request %d from client 1 should be allowed", i+1)
		}
		if !fg.Allow("10.0.0.2") {
			t.Errorf("Request %d from client 2 should be allowed", i+1)
		}
	}

	if fg.Allow("10.0.0.1") {
		t.Error("Extra request from client 1 should be blocked")
	}
	if fg.Allow("10.0.0.2") {
		t.Error("Extra request from client 2 should be blocked")
	}
}

func TestFloodgate_RetryAfter(t *testing.T) {
	fg := New(1)
	defer fg.Stop()

	if got := fg.RetryAfter("10.0.0.1"); got != 0 {
		t.Errorf("RetryAfter() for an unknown client = %v, want 0", got)
	}

	fg.Allow("10.0.0.1")
	got := fg.RetryAfter("10.0.0.1")
	if got <= 50*time.Second || got > windowDuration {
		t.Errorf("RetryAfter() = %v, want just under %v", got, windowDuration)
	}

	fg.mutex.Lock()
	fg.clients["10.0.0.1"].requests[0] = time.Now().Add(-61 * time.Second)
	fg.mutex.Unlock()

	if got := fg.RetryAfter("10.0.0.1"); got != 0 {
		t.Errorf("RetryAfter() after the window = %v, want 0", got)
	}
}

func TestFloodgate_RetryAfterIgnoresExpiredRequests(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		requests []time.Duration // ages of the logged requests, oldest first
		wantMin  time.Duration
		wantMax  time.Duration
	}{
		{"full log with one expired request", []time.Duration{70 * time.Second, 30 * time.Second}, 0, 0},
		{"full log all expired", []time.Duration{90 * time.Second, 61 * time.Second}, 0, 0},
		{"full log in window", []time.Duration{40 * time.Second, 10 * time.Second}, 19 * time.Second, 20 * time.Second},
		{"stale prefix before a full window", []time.Duration{80 * time.Second, 45 * time.Second, 5 * time.Second},
			14 * time.Second, 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := New(2)
			defer fg.Stop()

			w := &window{lastSeen: now}
			for _, age := range tt.requests {
				w.requests = append(w.requests, now.Add(-age))
			}
			fg.mutex.Lock()
			fg.clients["10.0.0.1"] = w
			fg.mutex.Unlock()

			got := fg.RetryAfter("10.0.0.1")
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("RetryAfter() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
			if allowed := fg.Allow("10.0.0.1"); allowed != (tt.wantMax == 0) {
				t.Errorf("Allow() = %v, disagrees with RetryAfter() = %v", allowed, got)
			}
		})
	}
}

func TestFloodgate_GetStats(t *testing.T) {
	fg := New(5)
	defer fg.Stop()

	stats := fg.GetStats()
	if stats.ActiveClients != 0 {
		t.Errorf("Expected 0 active clients initially, got %d", stats.ActiveClients)
	}
	if stats.LimitPerMinute != 5 {
		t.Errorf("Expected limit per minute 5, got %d", stats.LimitPerMinute)
	}
	if stats.WindowSeconds != 60 {
		t.Errorf("Expected window seconds 60, got %d", stats.WindowSeconds)
	}

	fg.Allow("10.0.0.1")
	fg.Allow("10.0.0.2")
	fg.Allow("10.0.0.1")

	if stats = fg.GetStats(); stats.ActiveClients != 2 {
		t.Errorf("Expected 2 active clients, got %d", stats.ActiveClients)
	}
}

func TestFloodgate_EdgeCases(t *testing.T) {
	t.Run("Zero limit disables limiting", func(t *testing.T) {
		fg := New(0)
		defer fg.Stop()

		for i := 0; i < 100; i++ {
			if !fg.Allow("10.0.0.1") {
				t.Fatal("Zero limit should never block")
			}
		}
		if fg.RetryAfter("10.0.0.1") != 0 {
			t.Error("Zero limit should never ask to wait")
		}
	})

	t.Run("Empty identifier", func(t *testing.T) {
		fg := New(1)
		defer fg.Stop()

		if !fg.Allow("") {
			t.Error("Should allow request with empty identifier")
		}
		if fg.Allow("") {
			t.Error("Second request with empty identifier should be blocked")
		}
	})

	t.Run("Stop twice", func(t *testing.T) {
		fg := New(1)
		fg.Stop()
		fg.Stop()
	})
}

func TestFloodgate_Cleanup(t *testing.T) {
	fg := New(1)
	defer fg.Stop()

	fg.Allow("10.0.0.1")
	fg.Allow("10.0.0.2")

	fg.mutex.Lock()
	fg.clients["10.0.0.1"].lastSeen = time.Now().Add(-idleTimeout - time.Minute)
	fg.mutex.Unlock()

	fg.performCleanup()

	if stats := fg.GetStats(); stats.ActiveClients != 1 {
		t.Errorf("Expected 1 active client after cleanup, got %d", stats.ActiveClients)
	}
	if !fg.Allow("10.0.0.1") {
		t.Error("Idle client should start with a fresh window")
	}
}

func TestFloodgate_ConcurrentAccess(t *testing.T) {
	fg := New(10)
	defer fg.Stop()

	done := make(chan int, 10)

	for i := 0; i < 10; i++ {
		go func() {
			allowed := 0
			for j := 0; j < 5; j++ {
				if fg.Allow("10.0.0.1") {
					allowed++
				}
				fg.GetStats()
			}
			done <- allowed
		}()
	}

	total := 0
	for i := 0; i < 10; i++ {
		total += <-done
	}

	if total != 10 {
		t.Errorf("Expected exactly 10 allowed requests, got %d", total)
	}
}
