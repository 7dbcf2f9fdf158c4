// Package spotify reads track, album and playlist metadata from the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"musicresolver/internal/core"
	"musicresolver/pkg/musiclink"
)

const (
	// AlbumTracksPageLimit is the largest album track page the Web API serves.
	AlbumTracksPageLimit = 50
	// PlaylistItemsPageLimit is the largest playlist item page the Web API serves.
	PlaylistItemsPageLimit = 100
	// UnknownArtist is used when a track carries no artist credit.
	UnknownArtist = "Unknown"

	entityTrack    = "track"
	entityAlbum    = "album"
	entityPlaylist = "playlist"
)

// Client implements core.SpotifyMetadata with app-only client credentials. It never acts
// on behalf of a user, so no OAuth redirect flow is involved.
type Client struct {
	client *spotify.Client
	logger *zap.Logger
}

// NewClient authenticates lazily: the first request fetches a client credentials token
// through httpClient, and the token is refreshed as it expires.
func NewClient(ctx context.Context, config *core.SpotifyConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	credentials := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	return newClient(spotify.New(credentials.Client(ctx)), logger)
}

func newClient(client *spotify.Client, logger *zap.Logger) *Client {
	return &Client{client: client, logger: logger}
}

// Preview returns the artist and title of a Spotify track link.
func (c *Client) Preview(ctx context.Context, rawURL string) (*core.SpotifyPreview, error) {
	kind, id, ok := musiclink.ParseSpotifyLink(rawURL)
	if !ok || kind != entityTrack {
		return nil, fmt.Errorf("not a Spotify track link: %q", rawURL)
	}

	track, err := c.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}

	return &core.SpotifyPreview{
		Artist: joinArtists(track.Artists),
		Title:  track.Name,
	}, nil
}

// Collection returns a Spotify album or playlist with every track, in order.
func (c *Client) Collection(ctx context.Context, rawURL string) (*core.SpotifyCollection, error) {
	kind, id, ok := musiclink.ParseSpotifyLink(rawURL)
	if !ok {
		return nil, fmt.Errorf("not a Spotify link: %q", rawURL)
	}

	switch kind {
	case entityAlbum:
		return c.album(ctx, spotify.ID(id))
	case entityPlaylist:
		return c.playlist(ctx, spotify.ID(id))
	default:
		return &core.SpotifyCollection{Type: kind}, nil
	}
}

func (c *Client) album(ctx context.Context, id spotify.ID) (*core.SpotifyCollection, error) {
	album, err := c.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", err)
	}

	collection := &core.SpotifyCollection{
		Type:     entityAlbum,
		Name:     album.Name,
		Subtitle: joinArtists(album.Artists),
	}

	limit := AlbumTracksPageLimit
	offset := 0
	for {
		page, err := c.client.GetAlbumTracks(ctx, id, spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to get album tracks: %w", err)
		}

		for i := range page.Tracks {
			collection.Tracks = append(collection.Tracks, core.SpotifyCollectionTrack{
				Title:    page.Tracks[i].Name,
				Subtitle: joinArtists(page.Tracks[i].Artists),
			})
		}

		if len(page.Tracks) < limit {
			break
		}
		offset += limit
	}

	c.logger.Debug("Retrieved album tracks",
		zap.String("albumID", string(id)),
		zap.Int("count", len(collection.Tracks)))

	return collection, nil
}

func (c *Client) playlist(ctx context.Context, id spotify.ID) (*core.SpotifyCollection, error) {
	playlist, err := c.client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	collection := &core.SpotifyCollection{
		Type:     entityPlaylist,
		Name:     playlist.Name,
		Subtitle: playlist.Owner.DisplayName,
	}

	limit := PlaylistItemsPageLimit
	offset := 0
	for {
		items, err := c.client.GetPlaylistItems(ctx, id, spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist items: %w", err)
		}

		for i := range items.Items {
			// Only tracks; episodes and unavailable items are skipped
			track := items.Items[i].Track.Track
			if track == nil {
				continue
			}
			collection.Tracks = append(collection.Tracks, core.SpotifyCollectionTrack{
				Title:    track.Name,
				Subtitle: joinArtists(track.Artists),
			})
		}

		if len(items.Items) < limit {
			break
		}
		offset += limit
	}

	c.logger.Debug("Retrieved playlist tracks",
		zap.String("playlistID", string(id)),
		zap.Int("count", len(collection.Tracks)))

	return collection, nil
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		if artist.Name != "" {
			names = append(names, artist.Name)
		}
	}
	if len(names) == 0 {
		return UnknownArtist
	}
	return strings.Join(names, ", ")
}
