package core

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Search.DefaultLimit != DefaultSearchLimit {
		t.Errorf("Expected default search limit %d, got %d", DefaultSearchLimit, config.Search.DefaultLimit)
	}

	if config.HTTP.Timeout != DefaultHTTPTimeout {
		t.Errorf("Expected default HTTP timeout %v, got %v", DefaultHTTPTimeout, config.HTTP.Timeout)
	}

	if config.Cache.Backend != CacheBackendMemory {
		t.Errorf("Expected memory cache by default, got %s", config.Cache.Backend)
	}

	if config.YouTube.APIKey != "" || config.Spotify.ClientID != "" {
		t.Error("Expected credential-free backends by default")
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultSearchLimit <= 0 {
		t.Error("DefaultSearchLimit should be positive")
	}

	if DefaultCacheTTL <= 0 || DefaultCacheSize <= 0 {
		t.Error("Cache defaults should be positive")
	}

	if DefaultFloodLimitPerMinute <= 0 {
		t.Error("DefaultFloodLimitPerMinute should be positive")
	}
}
