package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"musicresolver/pkg/fuzzy"
	"musicresolver/pkg/musiclink"
	"musicresolver/pkg/timecode"
)

const (
	applePlaylistName   = "Apple Playlist"
	applePlaylistAuthor = "N/A"
	youtubeMixAuthor    = "YouTube Mix"
	youtubeWatchURL     = "https://youtube.com/watch?v="

	spotifyTypePlaylist = "playlist"
	spotifyTypeAlbum    = "album"

	statusOK       = "ok"
	statusNoResult = "no_result"
	statusError    = "error"
	sourceSearch   = "search"
)

// Dependencies are the provider backends a Resolver talks to. Cache, NewDedup and Recorder
// are optional.
type Dependencies struct {
	Search  SearchBackend
	Videos  VideoBackend
	Spotify SpotifyMetadata
	Apple   AppleExtractor

	Cache    SearchCache
	NewDedup func(capacity int) DedupStore
	Recorder Recorder
}

// Resolver turns search text and provider links into playable tracks and playlists.
type Resolver struct {
	config     *Config
	searcher   SearchBackend
	videos     VideoBackend
	spotify    SpotifyMetadata
	apple      AppleExtractor
	cache      SearchCache
	newDedup   func(capacity int) DedupStore
	recorder   Recorder
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func NewResolver(config *Config, deps Dependencies, logger *zap.Logger) *Resolver {
	r := &Resolver{
		config:     config,
		searcher:   deps.Search,
		videos:     deps.Videos,
		spotify:    deps.Spotify,
		apple:      deps.Apple,
		cache:      deps.Cache,
		newDedup:   deps.NewDedup,
		recorder:   deps.Recorder,
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
	if r.newDedup == nil {
		r.newDedup = func(int) DedupStore { return make(urlSet) }
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	return r
}

// Best returns req unchanged when it is already a track. Otherwise it resolves the text as a
// link, falling back to a search and the first usable candidate. ErrNoResult means nothing
// was found.
func (r *Resolver) Best(ctx context.Context, req TrackRequest, opts PlayOptions) (*Track, error) {
	switch v := req.(type) {
	case *Track:
		if v == nil {
			return nil, ErrNoResult
		}
		return v, nil
	case Query:
		track, err := r.best(ctx, string(v), opts)
		r.record("best", string(v), err)
		return track, err
	default:
		return nil, fmt.Errorf("unsupported track request %T", req)
	}
}

func (r *Resolver) best(ctx context.Context, text string, opts PlayOptions) (*Track, error) {
	track, err := r.link(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	if track != nil {
		return track, nil
	}

	candidates, err := r.Search(ctx, text, opts, r.config.Search.DefaultLimit)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if candidate != nil {
			return candidate, nil
		}
	}
	return nil, ErrNoResult
}

// Link resolves a single-item provider link. Text that is not such a link yields (nil, nil).
func (r *Resolver) Link(ctx context.Context, text string, opts PlayOptions) (*Track, error) {
	track, err := r.link(ctx, text, opts)
	if track != nil || err != nil {
		r.record("link", text, err)
	}
	return track, err
}

func (r *Resolver) link(ctx context.Context, text string, opts PlayOptions) (*Track, error) {
	ok, provider := musiclink.IsSingleItemLink(text)
	if !ok {
		return nil, nil
	}

	switch provider {
	case musiclink.ProviderApple:
		return r.linkApple(ctx, text, opts)
	case musiclink.ProviderSpotify:
		return r.linkSpotify(ctx, text, opts)
	case musiclink.ProviderYouTube:
		return r.linkYouTube(ctx, text, opts)
	default:
		return nil, nil
	}
}

func (r *Resolver) linkApple(ctx context.Context, text string, opts PlayOptions) (*Track, error) {
	result, err := r.apple.Extract(ctx, text, musiclink.LinkKindSong)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAppleLink, err)
	}
	if result == nil || result.Kind != musiclink.LinkKindSong || result.Track == nil {
		return nil, ErrInvalidAppleLink
	}

	track, err := r.first(ctx, result.Track.Query(), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAppleLink, err)
	}
	return track, nil
}

func (r *Resolver) linkSpotify(ctx context.Context, text string, opts PlayOptions) (*Track, error) {
	preview, err := r.spotify.Preview(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpotifyLink, err)
	}

	track, err := r.first(ctx, preview.Artist+" - "+preview.Title, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpotifyLink, err)
	}
	return track, nil
}

func (r *Resolver) linkYouTube(ctx context.Context, text string, opts PlayOptions) (*Track, error) {
	id, ok := musiclink.ExtractVideoID(text)
	if !ok {
		return nil, fmt.Errorf("%w: no video id in %q", ErrSearchFailed, text)
	}

	video, err := r.videos.GetVideo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	track := &Track{
		Name:      video.Title,
		URL:       text,
		Duration:  timecode.MsToTime(video.Duration.Milliseconds()),
		Author:    video.Author,
		IsLive:    video.IsLive,
		Thumbnail: video.Thumbnail,
		Data:      opts.Data,
	}

	if opts.Timecode {
		if raw, ok := musiclink.ExtractVideoTimecode(text); ok {
			if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
				track.SeekTime = seconds * 1000
			}
		}
	}

	return track, nil
}

// first re-resolves scraped metadata to the top search result.
func (r *Resolver) first(ctx context.Context, query string, opts PlayOptions) (*Track, error) {
	tracks, err := r.Search(ctx, query, opts, r.config.Search.DefaultLimit)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResult, query)
	}
	return tracks[0], nil
}

// Playlist returns req unchanged when it is already a playlist. Otherwise it resolves a
// collection link into a non-empty playlist.
func (r *Resolver) Playlist(ctx context.Context, req PlaylistRequest, opts PlaylistOptions) (*Playlist, error) {
	switch v := req.(type) {
	case *Playlist:
		if v == nil {
			return nil, ErrInvalidPlaylistLink
		}
		return v, nil
	case Query:
		playlist, err := r.playlist(ctx, string(v), opts)
		r.record("playlist", string(v), err)
		return playlist, err
	default:
		return nil, fmt.Errorf("unsupported playlist request %T", req)
	}
}

func (r *Resolver) playlist(ctx context.Context, text string, opts PlaylistOptions) (*Playlist, error) {
	ok, provider := musiclink.IsCollectionLink(text)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a collection link", ErrInvalidPlaylistLink, text)
	}

	var (
		playlist *Playlist
		err      error
	)
	switch provider {
	case musiclink.ProviderApple:
		playlist, err = r.applePlaylist(ctx, text, opts)
	case musiclink.ProviderSpotify:
		playlist, err = r.spotifyPlaylist(ctx, text, opts)
	case musiclink.ProviderYouTube:
		playlist, err = r.youtubePlaylist(ctx, text, opts)
	default:
		err = ErrInvalidPlaylistLink
	}
	if err != nil {
		return nil, err
	}

	if len(playlist.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no track of %q could be resolved", ErrInvalidPlaylistLink, text)
	}

	if opts.Unique {
		playlist.Tracks = r.unique(playlist.Tracks)
	}
	if opts.Shuffle {
		playlist.Tracks = Shuffle(playlist.Tracks)
	}

	return playlist, nil
}

func (r *Resolver) applePlaylist(ctx context.Context, text string, opts PlaylistOptions) (*Playlist, error) {
	result, err := r.apple.Extract(ctx, text, musiclink.LinkKindAlbum)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlaylistLink, err)
	}
	if result == nil || result.Kind != musiclink.LinkKindAlbum || result.List == nil {
		return nil, ErrInvalidPlaylistLink
	}

	scraped := result.List.Tracks()
	queries := make([]string, len(scraped))
	for i, track := range scraped {
		queries[i] = track.Query()
	}

	return &Playlist{
		Name:   applePlaylistName,
		Author: applePlaylistAuthor,
		URL:    text,
		Type:   PlaylistTypePlaylist,
		Tracks: r.resolveAll(ctx, queries, opts),
	}, nil
}

func (r *Resolver) spotifyPlaylist(ctx context.Context, text string, opts PlaylistOptions) (*Playlist, error) {
	collection, err := r.spotify.Collection(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlaylistLink, err)
	}
	if collection.Type != spotifyTypePlaylist && collection.Type != spotifyTypeAlbum {
		return nil, fmt.Errorf("%w: unsupported Spotify type %q", ErrInvalidPlaylistLink, collection.Type)
	}

	queries := make([]string, len(collection.Tracks))
	for i, track := range collection.Tracks {
		queries[i] = track.Subtitle + " - " + track.Title
	}

	return &Playlist{
		Name:   collection.Name,
		Author: collection.Subtitle,
		URL:    text,
		Type:   PlaylistType(collection.Type),
		Tracks: r.resolveAll(ctx, queries, opts),
	}, nil
}

func (r *Resolver) youtubePlaylist(ctx context.Context, text string, opts PlaylistOptions) (*Playlist, error) {
	id, ok := musiclink.ExtractPlaylistID(text)
	if !ok {
		return nil, fmt.Errorf("%w: no list id in %q", ErrInvalidPlaylistLink, text)
	}

	details, err := r.videos.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlaylistLink, err)
	}

	videos := details.Videos
	if pages := morePages(details, opts.MaxSongs); pages > 0 {
		more, err := details.More.NextPages(ctx, pages)
		if err != nil {
			r.logger.Warn("Failed to load further playlist pages",
				zap.String("playlistID", id),
				zap.Int("pages", pages),
				zap.Error(err))
		} else {
			videos = append(videos, more...)
		}
	}

	author := details.Author
	if author == "" {
		author = youtubeMixAuthor
	}

	videos = capByIndex(videos, opts.MaxSongs)
	tracks := make([]*Track, 0, len(videos))
	for _, video := range videos {
		tracks = append(tracks, &Track{
			Name:      video.Title,
			URL:       youtubeWatchURL + video.ID,
			Duration:  timecode.MsToTime(video.Duration.Milliseconds()),
			Author:    video.Author,
			IsLive:    video.IsLive,
			Thumbnail: video.Thumbnail,
			Data:      opts.Data,
		})
	}

	return &Playlist{
		Name:   details.Title,
		Author: author,
		URL:    text,
		Type:   PlaylistTypePlaylist,
		Tracks: tracks,
	}, nil
}

// morePages is the number of extra pages needed to cover maxSongs (or the whole playlist).
func morePages(details *PlaylistDetails, maxSongs int) int {
	if details.More == nil || details.VideoCount <= PlaylistPageSize {
		return 0
	}
	if maxSongs >= 0 && maxSongs <= PlaylistPageSize {
		return 0
	}

	target := details.VideoCount
	if maxSongs >= 0 && maxSongs <= details.VideoCount {
		target = maxSongs - 1
	}
	return target / PlaylistPageSize
}

// resolveAll searches every query concurrently and keeps the top result of each, in query
// order. Queries that fail or find nothing contribute no track.
func (r *Resolver) resolveAll(ctx context.Context, queries []string, opts PlaylistOptions) []*Track {
	queries = capByIndex(queries, opts.MaxSongs)
	results := make([]*Track, len(queries))

	var g errgroup.Group
	if r.config.Search.MaxConcurrency > 0 {
		g.SetLimit(r.config.Search.MaxConcurrency)
	}

	for i, query := range queries {
		g.Go(func() error {
			track, err := r.first(ctx, query, opts.PlayOptions)
			if err != nil {
				r.logger.Debug("Dropping unresolved playlist entry",
					zap.Int("index", i),
					zap.String("query", query),
					zap.Error(err))
				return nil
			}
			results[i] = track
			return nil
		})
	}
	_ = g.Wait()

	tracks := make([]*Track, 0, len(results))
	for _, track := range results {
		if track != nil {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

func (r *Resolver) unique(tracks []*Track) []*Track {
	seen := r.newDedup(len(tracks))
	kept := tracks[:0]
	for _, track := range tracks {
		if seen.Has(track.URL) {
			continue
		}
		seen.Add(track.URL)
		kept = append(kept, track)
	}
	return kept
}

// capByIndex keeps the first maxItems entries; a negative maxItems keeps everything.
func capByIndex[T any](items []T, maxItems int) []T {
	if maxItems >= 0 && maxItems < len(items) {
		return items[:maxItems]
	}
	return items
}

func (r *Resolver) record(operation, text string, err error) {
	status := statusOK
	switch {
	case errors.Is(err, ErrNoResult):
		status = statusNoResult
	case err != nil:
		status = statusError
	}
	r.recorder.ObserveResolution(operation, sourceOf(text), status)
}

// sourceOf names the provider a text was routed to, or "search" for free text.
func sourceOf(text string) string {
	if ok, provider := musiclink.IsSingleItemLink(text); ok {
		return provider.String()
	}
	if ok, provider := musiclink.IsCollectionLink(text); ok {
		return provider.String()
	}
	return sourceSearch
}

// urlSet is the default DedupStore for a single playlist.
type urlSet map[string]struct{}

func (s urlSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s urlSet) Add(key string) {
	s[key] = struct{}{}
}

type nopRecorder struct{}

func (nopRecorder) ObserveResolution(string, string, string) {}

func (nopRecorder) ObserveSearch(time.Duration, error) {}

func (nopRecorder) ObserveCache(bool) {}
