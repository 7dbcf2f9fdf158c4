package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"musicresolver/internal/core"
	httpserver "musicresolver/internal/http"
	"musicresolver/internal/spotify"
	"musicresolver/internal/store"
	"musicresolver/internal/youtube"
	"musicresolver/pkg/musiclink"
)

type services struct {
	resolver *core.Resolver
	checks   []httpserver.ReadinessCheck
	closers  []func() error
}

func (s *services) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.Debug("Failed to close service", zap.Error(err))
		}
	}
}

// initializeServices builds the resolver and its backends. recorder may be nil.
func initializeServices(ctx context.Context, recorder core.Recorder) (*services, error) {
	httpClient := musiclink.NewHTTPClient(config.HTTP.Timeout)
	svcs := &services{}

	videos, err := createVideoBackend(ctx, httpClient)
	if err != nil {
		return nil, err
	}

	cache := createSearchCache(svcs)

	deps := core.Dependencies{
		Search:   core.NewYouTubeSearchBackend(httpClient),
		Videos:   videos,
		Spotify:  createSpotifyMetadata(ctx, httpClient),
		Apple:    core.NewAppleMusicExtractor(httpClient),
		Cache:    cache,
		NewDedup: store.NewDedupFactory(store.DefaultFalsePositiveRate),
		Recorder: recorder,
	}
	svcs.resolver = core.NewResolver(config, deps, logger.Named("resolver"))

	return svcs, nil
}

func createVideoBackend(ctx context.Context, httpClient *http.Client) (core.VideoBackend, error) {
	if config.YouTube.APIKey != "" {
		backend, err := youtube.NewDataAPIBackend(ctx, config.YouTube.APIKey, logger.Named("youtube"))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube Data API client: %w", err)
		}
		logger.Debug("Using YouTube Data API backend")
		return backend, nil
	}

	logger.Debug("Using YouTube innertube backend")
	return youtube.NewInnertubeBackend(httpClient, logger.Named("youtube")), nil
}

func createSpotifyMetadata(ctx context.Context, httpClient *http.Client) core.SpotifyMetadata {
	if config.Spotify.ClientID != "" && config.Spotify.ClientSecret != "" {
		logger.Debug("Using Spotify Web API")
		return spotify.NewClient(ctx, &config.Spotify, httpClient, logger.Named("spotify"))
	}

	logger.Debug("Using Spotify embed pages")
	return core.NewSpotifyEmbedMetadata(httpClient)
}

func createSearchCache(svcs *services) core.SearchCache {
	switch config.Cache.Backend {
	case core.CacheBackendRedis:
		cache := store.NewRedisCache(&config.Cache, logger.Named("cache"))
		svcs.checks = append(svcs.checks, cache.Ping)
		svcs.closers = append(svcs.closers, cache.Close)
		logger.Debug("Using Redis search cache", zap.String("addr", config.Cache.RedisAddr))
		return cache
	case core.CacheBackendNone:
		return nil
	default:
		return store.NewMemoryCache(config.Cache.Size, config.Cache.TTL)
	}
}
