package core

import (
	"time"
)

const (
	// DefaultSearchLimit is how many candidates a search asks for when the caller gives no limit.
	DefaultSearchLimit = 5
	// DefaultHTTPTimeout bounds every outbound provider request.
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultCacheSize is the number of search results kept by the in-memory cache.
	DefaultCacheSize = 1024
	// DefaultCacheTTL is how long a cached search result stays valid.
	DefaultCacheTTL = 30 * time.Minute
	// DefaultFloodLimitPerMinute is the per-client request budget of the HTTP API.
	DefaultFloodLimitPerMinute = 30
	// DefaultServerPort is the HTTP API port.
	DefaultServerPort = 8080

	// CacheBackendMemory keeps search results in a process-local LRU.
	CacheBackendMemory = "memory"
	// CacheBackendRedis shares search results through Redis.
	CacheBackendRedis = "redis"
	// CacheBackendNone disables search caching.
	CacheBackendNone = "none"
)

type Config struct {
	HTTP    HTTPConfig
	Search  SearchConfig
	YouTube YouTubeConfig
	Spotify SpotifyConfig
	Cache   CacheConfig
	Server  ServerConfig
	Log     LogConfig
	App     AppConfig
}

type HTTPConfig struct {
	Timeout time.Duration
}

type SearchConfig struct {
	DefaultLimit int
	// MaxConcurrency bounds playlist fan-out; zero or less means unbounded.
	MaxConcurrency int
}

type YouTubeConfig struct {
	// APIKey selects the Data API backend; empty uses the innertube client.
	APIKey string
}

type SpotifyConfig struct {
	// ClientID and ClientSecret select the Web API; empty uses embed page scraping.
	ClientID     string
	ClientSecret string
}

type CacheConfig struct {
	Backend       string
	Size          int
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TrustedProxies lists the addresses or CIDR ranges whose X-Forwarded-For header is
	// believed when identifying clients.
	TrustedProxies []string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type AppConfig struct {
	FloodLimitPerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout: DefaultHTTPTimeout,
		},
		Search: SearchConfig{
			DefaultLimit:   DefaultSearchLimit,
			MaxConcurrency: 8,
		},
		Cache: CacheConfig{
			Backend:   CacheBackendMemory,
			Size:      DefaultCacheSize,
			TTL:       DefaultCacheTTL,
			RedisAddr: "localhost:6379",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
	}
}
