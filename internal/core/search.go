package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	facetType       = "Type"
	facetUploadDate = "Upload date"
	facetDuration   = "Duration"
	facetSortBy     = "Sort by"

	videoFilterLabel = "Video"
	videoItemType    = "video"
)

// labelMatcher decides whether a filter label satisfies the requested option value.
type labelMatcher func(label, value string) bool

func labelContains(label, value string) bool {
	return strings.Contains(strings.ToLower(label), strings.ToLower(value))
}

func labelHasPrefix(label, value string) bool {
	return strings.HasPrefix(strings.ToLower(label), strings.ToLower(value))
}

// Search runs query through the filter chain (Type=Video, then upload date, duration and sort
// when requested) and returns up to limit video results in backend order. Every failure is
// reported as ErrSearchFailed.
func (r *Resolver) Search(ctx context.Context, query string, opts PlayOptions, limit int) ([]*Track, error) {
	if limit <= 0 {
		limit = r.config.Search.DefaultLimit
	}

	key := r.cacheKey(query, opts, limit)
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok {
			r.recorder.ObserveCache(true)
			return withData(cached, opts.Data), nil
		}
		r.recorder.ObserveCache(false)
	}

	start := time.Now()
	tracks, err := r.search(ctx, query, opts, limit)
	r.recorder.ObserveSearch(time.Since(start), err)
	if err != nil {
		r.logger.Debug("Search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	if r.cache != nil && len(tracks) > 0 {
		r.cache.Set(ctx, key, tracks)
	}

	return withData(tracks, opts.Data), nil
}

func (r *Resolver) search(ctx context.Context, query string, opts PlayOptions, limit int) ([]Track, error) {
	filters, err := r.searcher.GetFilters(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load search filters: %w", err)
	}

	current, ok := findFilter(filters, facetType, videoFilterLabel, strings.EqualFold)
	if !ok {
		return nil, fmt.Errorf("no %s=%s filter for %q", facetType, videoFilterLabel, query)
	}

	if opts.UploadDate != "" {
		if current, err = r.refineFilter(ctx, current, facetUploadDate, opts.UploadDate, labelContains); err != nil {
			return nil, err
		}
	}

	if opts.Duration != "" {
		if current, err = r.refineFilter(ctx, current, facetDuration, opts.Duration, labelHasPrefix); err != nil {
			return nil, err
		}
	}

	if opts.SortBy != "" && !strings.EqualFold(opts.SortBy, SortByRelevance) {
		if current, err = r.refineFilter(ctx, current, facetSortBy, opts.SortBy, labelContains); err != nil {
			return nil, err
		}
	}

	items, err := r.searcher.Execute(ctx, current.URL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		if !strings.EqualFold(item.Type, videoItemType) {
			continue
		}
		tracks = append(tracks, Track{
			Name:      item.Title,
			URL:       item.URL,
			Duration:  item.Duration,
			Author:    item.Author,
			IsLive:    item.IsLive,
			Thumbnail: item.Thumbnail,
		})
	}

	return tracks, nil
}

// refineFilter narrows current by one facet. When the facet is missing or no option
// matches, current is kept unchanged.
func (r *Resolver) refineFilter(
	ctx context.Context,
	current SearchFilter,
	facet, value string,
	match labelMatcher,
) (SearchFilter, error) {
	filters, err := r.searcher.GetFilters(ctx, current.URL)
	if err != nil {
		return current, fmt.Errorf("failed to load %q filters: %w", facet, err)
	}

	next, ok := findFilter(filters, facet, value, match)
	if !ok {
		r.logger.Debug("No search filter matched, keeping current filter",
			zap.String("facet", facet),
			zap.String("value", value),
			zap.String("current", current.Label))
		return current, nil
	}

	return next, nil
}

func findFilter(filters FilterSet, facet, value string, match labelMatcher) (SearchFilter, bool) {
	for _, option := range filters[facet] {
		if option.URL != "" && match(option.Label, value) {
			return option, true
		}
	}
	return SearchFilter{}, false
}

func (r *Resolver) cacheKey(query string, opts PlayOptions, limit int) string {
	return strings.Join([]string{
		r.normalizer.QueryKey(query),
		strings.ToLower(opts.UploadDate),
		strings.ToLower(opts.Duration),
		strings.ToLower(opts.SortBy),
		strconv.Itoa(limit),
	}, "|")
}

// withData copies tracks into fresh values carrying the caller's data.
func withData(tracks []Track, data any) []*Track {
	out := make([]*Track, len(tracks))
	for i := range tracks {
		track := tracks[i]
		track.Data = data
		out[i] = &track
	}
	return out
}
