// Package http serves the resolver over a small JSON API with health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"musicresolver/internal/core"
	"musicresolver/internal/flood"
	"musicresolver/pkg/text"
)

const (
	serviceName     = "musicresolver"
	requestIDHeader = "X-Request-ID"
	shutdownTimeout = 10 * time.Second
)

// Resolver is the part of core.Resolver the API serves.
type Resolver interface {
	Best(ctx context.Context, req core.TrackRequest, opts core.PlayOptions) (*core.Track, error)
	Link(ctx context.Context, text string, opts core.PlayOptions) (*core.Track, error)
	Playlist(ctx context.Context, req core.PlaylistRequest, opts core.PlaylistOptions) (*core.Playlist, error)
	Search(ctx context.Context, query string, opts core.PlayOptions, limit int) ([]*core.Track, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	config    *core.ServerConfig
	logger    *zap.Logger
	server    *http.Server
	metrics   *Metrics
	resolver  Resolver
	floodgate *flood.Floodgate
	proxies   []netip.Prefix
	parser    *text.Parser
	checks    []ReadinessCheck
}

// NewServer wires the API. floodgate may be nil to disable rate limiting.
func NewServer(
	config *core.ServerConfig,
	resolver Resolver,
	metrics *Metrics,
	floodgate *flood.Floodgate,
	logger *zap.Logger,
	checks ...ReadinessCheck,
) *Server {
	s := &Server{
		config:    config,
		logger:    logger,
		metrics:   metrics,
		resolver:  resolver,
		floodgate: floodgate,
		parser:    text.NewParser(),
		checks:    checks,
	}

	proxies, err := ParseTrustedProxies(config.TrustedProxies)
	if err != nil {
		logger.Warn("Ignoring invalid trusted proxies", zap.Error(err))
	}
	s.proxies = proxies

	if floodgate != nil {
		metrics.WatchFloodgate(floodgate)
	}

	s.server = createHTTPServer(config, s.setupRoutes())
	return s
}

// ParseTrustedProxies parses addresses and CIDR ranges. Valid entries are returned even
// when others fail.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var (
		prefixes []netip.Prefix
		errs     []error
	)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				errs = append(errs, fmt.Errorf("trusted proxy %q: %w", entry, err))
				continue
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("trusted proxy %q: %w", entry, err))
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, errors.Join(errs...)
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("GET /resolve", s.api("resolve", s.handleResolve))
	mux.Handle("GET /link", s.api("link", s.handleLink))
	mux.Handle("GET /playlist", s.api("playlist", s.handlePlaylist))
	mux.Handle("GET /search", s.api("search", s.handleSearch))

	mux.HandleFunc("GET /{$}", homeHandler(s.logger))

	return withRequestID(mux)
}

// Handler exposes the routed API, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for _, check := range s.checks {
		if err := check(r.Context()); err != nil {
			s.logger.Warn("Readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unavailable",
				"service": serviceName,
				"error":   err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
}

// apiHandler serves one API call and returns the response body or an error.
type apiHandler func(r *http.Request) (any, error)

// api applies the flood limit, maps errors to status codes and records request metrics.
func (s *Server) api(endpoint string, handle apiHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := w.Header().Get(requestIDHeader)
		logger := s.logger.With(zap.String("requestID", requestID), zap.String("endpoint", endpoint))

		if s.floodgate != nil {
			client := s.clientID(r)
			if !s.floodgate.Allow(client) {
				s.metrics.RecordFloodRejection()
				retryAfter := s.floodgate.RetryAfter(client)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				logger.Info("Request rate limited", zap.String("client", client))
				s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded", requestID)
				s.metrics.RecordRequest(endpoint, http.StatusTooManyRequests, time.Since(start))
				return
			}
		}

		body, err := handle(r)
		code := http.StatusOK
		if err != nil {
			code = statusFor(err)
			if code >= http.StatusInternalServerError {
				logger.Warn("Request failed", zap.Int("status", code), zap.Error(err))
			} else {
				logger.Debug("Request rejected", zap.Int("status", code), zap.Error(err))
			}
			s.writeError(w, code, err.Error(), requestID)
		} else {
			writeJSON(w, code, body)
		}

		s.metrics.RecordRequest(endpoint, code, time.Since(start))
	})
}

func (s *Server) writeError(w http.ResponseWriter, code int, message, requestID string) {
	writeJSON(w, code, map[string]string{"error": message, "requestId": requestID})
}

// statusFor maps resolver errors to HTTP status codes. Invalid-link errors may wrap
// ErrNoResult, so they are checked first.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidAppleLink),
		errors.Is(err, core.ErrInvalidSpotifyLink),
		errors.Is(err, core.ErrInvalidPlaylistLink):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoResult):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSearchFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func statusLabel(code int) string {
	return strconv.Itoa(code)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the caller for rate limiting. X-Forwarded-For is only read when the
// connection comes from a trusted proxy, and then the right-most hop that is not itself a
// trusted proxy is the client.
func (s *Server) clientID(r *http.Request) string {
	client, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		client = r.RemoteAddr
	}
	if !s.trusted(client) {
		return client
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		client = hop
		if !s.trusted(hop) {
			break
		}
	}
	return client
}

func (s *Server) trusted(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range s.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(homePage)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>musicresolver</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
        code { background: #f4f4f4; padding: 2px 4px; }
    </style>
</head>
<body>
    <h1 class="header">musicresolver</h1>
    <p>Resolves YouTube, Spotify and Apple Music links and search text into playable tracks.</p>

    <h2>API</h2>
    <div class="endpoint"><code>GET /resolve?q=</code> - Best match for a link or search text</div>
    <div class="endpoint"><code>GET /link?url=</code> - Track behind a single-item link</div>
    <div class="endpoint"><code>GET /playlist?url=&amp;max=&amp;shuffle=&amp;unique=</code> - Tracks of a playlist or album</div>
    <div class="endpoint"><code>GET /search?q=&amp;limit=</code> - Video search results</div>

    <h2>Operations</h2>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`
