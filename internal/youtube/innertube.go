// Package youtube provides the video and playlist backends used to resolve YouTube links.
package youtube

import (
	"context"
	"fmt"
	"net/http"

	ytdl "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"musicresolver/internal/core"
)

// InnertubeBackend reads videos and playlists through YouTube's internal player API.
// It needs no credentials and always loads a playlist in full.
type InnertubeBackend struct {
	client *ytdl.Client
	logger *zap.Logger
}

func NewInnertubeBackend(httpClient *http.Client, logger *zap.Logger) *InnertubeBackend {
	return &InnertubeBackend{
		client: &ytdl.Client{HTTPClient: httpClient},
		logger: logger,
	}
}

func (b *InnertubeBackend) GetVideo(ctx context.Context, id string) (*core.Video, error) {
	video, err := b.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get video %s: %w", id, err)
	}

	return &core.Video{
		ID:       video.ID,
		Title:    video.Title,
		Duration: video.Duration,
		Author:   video.Author,
		// Live streams only expose an HLS manifest and report no duration.
		IsLive:    video.HLSManifestURL != "" && video.Duration == 0,
		Thumbnail: bestThumbnail(video.Thumbnails),
	}, nil
}

func (b *InnertubeBackend) GetPlaylist(ctx context.Context, id string) (*core.PlaylistDetails, error) {
	playlist, err := b.client.GetPlaylistContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	videos := make([]core.Video, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		videos = append(videos, playlistEntryVideo(entry))
	}

	b.logger.Debug("Loaded playlist",
		zap.String("playlistID", id),
		zap.Int("videos", len(videos)))

	return &core.PlaylistDetails{
		ID:         playlist.ID,
		Title:      playlist.Title,
		Author:     playlist.Author,
		VideoCount: len(videos),
		Videos:     videos,
	}, nil
}

// playlistEntryVideo maps a playlist entry. Entries carry no manifest, so a live stream is
// recognised by its missing duration alone.
func playlistEntryVideo(entry *ytdl.PlaylistEntry) core.Video {
	return core.Video{
		ID:        entry.ID,
		Title:     entry.Title,
		Duration:  entry.Duration,
		Author:    entry.Author,
		IsLive:    entry.Duration == 0,
		Thumbnail: bestThumbnail(entry.Thumbnails),
	}
}

// bestThumbnail returns the URL of the widest thumbnail.
func bestThumbnail(thumbnails ytdl.Thumbnails) string {
	var best ytdl.Thumbnail
	for _, t := range thumbnails {
		if t.Width >= best.Width {
			best = t
		}
	}
	return best.URL
}
