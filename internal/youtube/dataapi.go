package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"musicresolver/internal/core"
)

const (
	// dataAPIPageSize is the largest page the Data API serves.
	dataAPIPageSize = 50
	// requestsPerPage Data API requests make up one playlist page.
	requestsPerPage = core.PlaylistPageSize / dataAPIPageSize

	liveBroadcastContent = "live"
)

var (
	ErrVideoNotFound    = errors.New("video not found")
	ErrPlaylistNotFound = errors.New("playlist not found")

	videoParts    = []string{"snippet", "contentDetails"}
	playlistParts = []string{"snippet", "contentDetails"}
	itemParts     = []string{"contentDetails"}

	isoDurationRegex = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// DataAPIBackend reads videos and playlists through the YouTube Data API v3.
// Playlists are served in pages of core.PlaylistPageSize videos.
type DataAPIBackend struct {
	service *ytapi.Service
	logger  *zap.Logger
}

func NewDataAPIBackend(ctx context.Context, apiKey string, logger *zap.Logger) (*DataAPIBackend, error) {
	service, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube Data API service: %w", err)
	}
	return newDataAPIBackend(service, logger), nil
}

func newDataAPIBackend(service *ytapi.Service, logger *zap.Logger) *DataAPIBackend {
	return &DataAPIBackend{service: service, logger: logger}
}

func (b *DataAPIBackend) GetVideo(ctx context.Context, id string) (*core.Video, error) {
	videos, err := b.videos(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	video, ok := videos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, id)
	}
	return &video, nil
}

func (b *DataAPIBackend) GetPlaylist(ctx context.Context, id string) (*core.PlaylistDetails, error) {
	resp, err := b.service.Playlists.List(playlistParts).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, id)
	}
	playlist := resp.Items[0]

	pager := &dataAPIPager{backend: b, playlistID: id}
	videos, err := pager.load(ctx, 1)
	if err != nil {
		return nil, err
	}

	details := &core.PlaylistDetails{
		ID:     playlist.Id,
		Videos: videos,
	}
	if playlist.Snippet != nil {
		details.Title = playlist.Snippet.Title
		details.Author = playlist.Snippet.ChannelTitle
	}
	if playlist.ContentDetails != nil {
		details.VideoCount = int(playlist.ContentDetails.ItemCount)
	}
	if !pager.done {
		details.More = pager
	}

	b.logger.Debug("Loaded playlist page",
		zap.String("playlistID", id),
		zap.Int("videos", len(videos)),
		zap.Int("total", details.VideoCount))

	return details, nil
}

// videos looks up ids in one request and returns the ones that still exist, keyed by id.
func (b *DataAPIBackend) videos(ctx context.Context, ids []string) (map[string]core.Video, error) {
	resp, err := b.service.Videos.List(videoParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	videos := make(map[string]core.Video, len(resp.Items))
	for _, item := range resp.Items {
		videos[item.Id] = toVideo(item)
	}
	return videos, nil
}

func toVideo(item *ytapi.Video) core.Video {
	video := core.Video{ID: item.Id}
	if item.Snippet != nil {
		video.Title = item.Snippet.Title
		video.Author = item.Snippet.ChannelTitle
		video.IsLive = item.Snippet.LiveBroadcastContent == liveBroadcastContent
		video.Thumbnail = bestThumbnailDetails(item.Snippet.Thumbnails)
	}
	if item.ContentDetails != nil {
		video.Duration = parseISODuration(item.ContentDetails.Duration)
	}
	return video
}

// dataAPIPager walks a playlist with page tokens. It is not safe for concurrent use.
type dataAPIPager struct {
	backend    *DataAPIBackend
	playlistID string
	token      string
	done       bool
}

func (p *dataAPIPager) NextPages(ctx context.Context, pages int) ([]core.Video, error) {
	return p.load(ctx, pages)
}

func (p *dataAPIPager) load(ctx context.Context, pages int) ([]core.Video, error) {
	var videos []core.Video
	for range pages * requestsPerPage {
		if p.done {
			break
		}

		call := p.backend.service.PlaylistItems.List(itemParts).
			PlaylistId(p.playlistID).
			MaxResults(dataAPIPageSize).
			Context(ctx)
		if p.token != "" {
			call = call.PageToken(p.token)
		}

		resp, err := call.Do()
		if err != nil {
			return videos, fmt.Errorf("failed to list playlist items: %w", err)
		}

		page, err := p.resolve(ctx, resp.Items)
		if err != nil {
			return videos, err
		}
		videos = append(videos, page...)

		p.token = resp.NextPageToken
		p.done = p.token == ""
	}
	return videos, nil
}

// resolve looks up the videos of one item page, keeping playlist order. Private and deleted
// videos are skipped.
func (p *dataAPIPager) resolve(ctx context.Context, items []*ytapi.PlaylistItem) ([]core.Video, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			ids = append(ids, item.ContentDetails.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := p.backend.videos(ctx, ids)
	if err != nil {
		return nil, err
	}

	videos := make([]core.Video, 0, len(ids))
	for _, id := range ids {
		if video, ok := found[id]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

func bestThumbnailDetails(details *ytapi.ThumbnailDetails) string {
	if details == nil {
		return ""
	}
	for _, t := range []*ytapi.Thumbnail{details.Maxres, details.Standard, details.High, details.Medium, details.Default} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}

// parseISODuration converts the Data API's ISO 8601 durations ("PT3M33S", "P1DT2H") and
// returns zero for anything it cannot read.
func parseISODuration(s string) time.Duration {
	matches := isoDurationRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		if matches[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return 0
		}
		total += time.Duration(n) * unit
	}
	return total
}
