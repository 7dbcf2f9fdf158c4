package core

import (
	"context"
	"time"

	"musicresolver/pkg/musiclink"
	"musicresolver/pkg/timecode"
)

// Track is a playable, provider-agnostic track.
type Track struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Duration  string `json:"duration"`
	Author    string `json:"author"`
	IsLive    bool   `json:"isLive"`
	Thumbnail string `json:"thumbnail"`
	// SeekTime is the start offset in milliseconds; zero plays from the beginning.
	SeekTime int64 `json:"seekTime,omitempty"`
	// Data is opaque caller data carried along with the track. It is never serialized.
	Data any `json:"-"`
}

// DurationMs converts the formatted duration back to milliseconds.
func (t *Track) DurationMs() int64 {
	return timecode.TimeToMs(t.Duration)
}

type PlaylistType string

const (
	PlaylistTypePlaylist PlaylistType = "playlist"
	PlaylistTypeAlbum    PlaylistType = "album"
)

// Playlist is a resolved collection. It always holds at least one track.
type Playlist struct {
	Name   string       `json:"name"`
	Author string       `json:"author"`
	URL    string       `json:"url"`
	Type   PlaylistType `json:"type"`
	Tracks []*Track     `json:"tracks"`
}

// TrackRequest is either a Query to resolve or an already resolved *Track.
type TrackRequest interface {
	trackRequest()
}

// PlaylistRequest is either a Query to resolve or an already resolved *Playlist.
type PlaylistRequest interface {
	playlistRequest()
}

// Query is raw user input: search text or a provider link.
type Query string

func (Query) trackRequest() {}

func (Query) playlistRequest() {}

func (*Track) trackRequest() {}

func (*Playlist) playlistRequest() {}

// PlayOptions narrow a search and decorate the resolved track.
type PlayOptions struct {
	// UploadDate, Duration and SortBy select search filters by label ("week", "under", "view").
	// Empty leaves the facet alone; SortBy "relevance" is the backend default.
	UploadDate string `json:"uploadDate,omitempty"`
	Duration   string `json:"duration,omitempty"`
	SortBy     string `json:"sortBy,omitempty"`
	// Timecode honours a t= start offset on YouTube links.
	Timecode bool `json:"timecode,omitempty"`
	Data     any  `json:"-"`
}

const (
	// SortByRelevance is the backend's native order and never selects a filter.
	SortByRelevance = "relevance"
	// NoLimit disables PlaylistOptions.MaxSongs.
	NoLimit = -1
)

// PlaylistOptions control how a collection is resolved.
type PlaylistOptions struct {
	PlayOptions
	// MaxSongs caps tracks by source index; NoLimit keeps all.
	MaxSongs int  `json:"maxSongs"`
	Shuffle  bool `json:"shuffle,omitempty"`
	// Unique drops tracks that resolve to a URL already in the playlist.
	Unique bool `json:"unique,omitempty"`
}

// DefaultPlaylistOptions keeps every track in source order.
func DefaultPlaylistOptions() PlaylistOptions {
	return PlaylistOptions{MaxSongs: NoLimit}
}

// SearchFilter is one option of a search facet. Its URL is the handle passed to the next query.
type SearchFilter struct {
	Label string
	URL   string
}

// FilterSet maps facet names to their options in page order.
type FilterSet map[string][]SearchFilter

// SearchItem is a raw search backend result.
type SearchItem struct {
	Type      string
	Title     string
	URL       string
	Duration  string
	Author    string
	IsLive    bool
	Thumbnail string
}

// Video is a YouTube video as the video backend reports it.
type Video struct {
	ID        string
	Title     string
	Duration  time.Duration
	Author    string
	IsLive    bool
	Thumbnail string
}

// PlaylistDetails is a fetched YouTube playlist or mix. Videos holds what the first fetch
// returned; More is nil when nothing is left to load.
type PlaylistDetails struct {
	ID         string
	Title      string
	Author     string
	VideoCount int
	Videos     []Video
	More       PlaylistPager
}

// PlaylistPager loads further pages of a playlist, up to PlaylistPageSize videos per page.
type PlaylistPager interface {
	NextPages(ctx context.Context, pages int) ([]Video, error)
}

// PlaylistPageSize is the number of videos in one playlist page.
const PlaylistPageSize = 100

// SpotifyPreview is the artist and title of a Spotify track link.
type SpotifyPreview struct {
	Artist string
	Title  string
}

// SpotifyCollectionTrack is one entry of a Spotify album or playlist. Subtitle holds the artists.
type SpotifyCollectionTrack struct {
	Title    string
	Subtitle string
}

// SpotifyCollection is a Spotify album or playlist.
type SpotifyCollection struct {
	Type     string
	Name     string
	Subtitle string
	Tracks   []SpotifyCollectionTrack
}

type SearchBackend interface {
	GetFilters(ctx context.Context, queryOrURL string) (FilterSet, error)
	Execute(ctx context.Context, filterURL string, limit int) ([]SearchItem, error)
}

type VideoBackend interface {
	GetVideo(ctx context.Context, id string) (*Video, error)
	GetPlaylist(ctx context.Context, id string) (*PlaylistDetails, error)
}

type SpotifyMetadata interface {
	Preview(ctx context.Context, url string) (*SpotifyPreview, error)
	Collection(ctx context.Context, url string) (*SpotifyCollection, error)
}

// AppleExtractor scrapes Apple Music pages. Any error means "no result".
type AppleExtractor interface {
	Extract(ctx context.Context, url string, kind musiclink.LinkKind) (*musiclink.PageResult, error)
}

// SearchCache stores search results by key. Implementations must not retain Track.Data.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]Track, bool)
	Set(ctx context.Context, key string, tracks []Track)
}

type DedupStore interface {
	Has(key string) bool
	Add(key string)
}

// Recorder receives resolution metrics.
type Recorder interface {
	ObserveResolution(operation, provider, status string)
	ObserveSearch(duration time.Duration, err error)
	ObserveCache(hit bool)
}
