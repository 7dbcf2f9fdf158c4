package core

import (
	"context"
	"net/http"

	"musicresolver/pkg/musiclink"
)

// youtubeSearchAdapter adapts musiclink.YouTubeSearchClient to core.SearchBackend.
type youtubeSearchAdapter struct {
	client *musiclink.YouTubeSearchClient
}

// NewYouTubeSearchBackend creates a search backend scraping YouTube result pages.
func NewYouTubeSearchBackend(client *http.Client) SearchBackend {
	return &youtubeSearchAdapter{
		client: musiclink.NewYouTubeSearchClient(client),
	}
}

// GetFilters returns the filter facets of a query or filter URL.
func (a *youtubeSearchAdapter) GetFilters(ctx context.Context, queryOrURL string) (FilterSet, error) {
	groups, err := a.client.Filters(ctx, queryOrURL)
	if err != nil {
		return nil, err
	}

	filters := make(FilterSet, len(groups))
	for _, group := range groups {
		options := make([]SearchFilter, 0, len(group.Filters))
		for _, f := range group.Filters {
			options = append(options, SearchFilter{Label: f.Label, URL: f.URL})
		}
		filters[group.Name] = options
	}
	return filters, nil
}

// Execute runs a filter URL and returns up to limit raw results.
func (a *youtubeSearchAdapter) Execute(ctx context.Context, filterURL string, limit int) ([]SearchItem, error) {
	results, err := a.client.Search(ctx, filterURL, limit)
	if err != nil {
		return nil, err
	}

	items := make([]SearchItem, len(results))
	for i, r := range results {
		items[i] = SearchItem{
			Type:      r.Type,
			Title:     r.Title,
			URL:       r.URL,
			Duration:  r.Duration,
			Author:    r.Author,
			IsLive:    r.IsLive,
			Thumbnail: r.Thumbnail,
		}
	}
	return items, nil
}

// spotifyEmbedAdapter adapts musiclink.SpotifyEmbedClient to core.SpotifyMetadata.
type spotifyEmbedAdapter struct {
	client *musiclink.SpotifyEmbedClient
}

// NewSpotifyEmbedMetadata creates a credential-free Spotify metadata source.
func NewSpotifyEmbedMetadata(client *http.Client) SpotifyMetadata {
	return &spotifyEmbedAdapter{
		client: musiclink.NewSpotifyEmbedClient(client),
	}
}

// Preview returns the artist and title of a Spotify link.
func (a *spotifyEmbedAdapter) Preview(ctx context.Context, url string) (*SpotifyPreview, error) {
	preview, err := a.client.Preview(ctx, url)
	if err != nil {
		return nil, err
	}
	return &SpotifyPreview{Artist: preview.Artist, Title: preview.Title}, nil
}

// Collection returns a Spotify album or playlist with its track list.
func (a *spotifyEmbedAdapter) Collection(ctx context.Context, url string) (*SpotifyCollection, error) {
	entity, err := a.client.Data(ctx, url)
	if err != nil {
		return nil, err
	}

	collection := &SpotifyCollection{
		Type:     entity.Type,
		Name:     entity.Name,
		Subtitle: entity.Subtitle,
		Tracks:   make([]SpotifyCollectionTrack, len(entity.TrackList)),
	}
	if collection.Name == "" {
		collection.Name = entity.Title
	}
	for i, t := range entity.TrackList {
		collection.Tracks[i] = SpotifyCollectionTrack{Title: t.Title, Subtitle: t.Subtitle}
	}
	return collection, nil
}

// NewAppleMusicExtractor creates the Apple Music page extractor.
func NewAppleMusicExtractor(client *http.Client) AppleExtractor {
	return musiclink.NewAppleMusicExtractor(client)
}
