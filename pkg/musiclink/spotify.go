package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

const (
	// SpotifyEmbedBaseURL is where Spotify serves embeddable player pages.
	SpotifyEmbedBaseURL = "https://open.spotify.com/embed"
	// spotifyNextDataScriptID marks the script element holding the embed page state.
	spotifyNextDataScriptID = "__NEXT_DATA__"
	// spotifyEntityPath locates the embedded entity inside the page state.
	spotifyEntityPath = "props.pageProps.state.data.entity"
)

var (
	spotifyPathRegex = regexp.MustCompile(`spotify\.com/(?:intl-[a-z]{2}/)?(?:embed/)?(track|album|playlist)/([\w\-]+)`)
	spotifyURIRegex  = regexp.MustCompile(`spotify:(track|album|playlist):([\w\-]+)`)
)

// SpotifyArtist is an artist credit on an embed entity.
type SpotifyArtist struct {
	Name string `json:"name"`
}

// SpotifyEmbedTrack is one row of an embed entity's track list.
type SpotifyEmbedTrack struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Duration int64  `json:"duration"`
}

// SpotifyEntity is the track, album or playlist described by an embed page.
type SpotifyEntity struct {
	Type      string              `json:"type"`
	Name      string              `json:"name"`
	Title     string              `json:"title"`
	Subtitle  string              `json:"subtitle"`
	Artists   []SpotifyArtist     `json:"artists"`
	TrackList []SpotifyEmbedTrack `json:"trackList"`
}

// SpotifyPreview is the lightweight title/artist view of an entity.
type SpotifyPreview struct {
	Type   string
	Title  string
	Artist string
}

// SpotifyEmbedClient reads Spotify metadata from public embed pages without API credentials.
type SpotifyEmbedClient struct {
	client      *http.Client
	baseURL     string
	maxReadSize int64
}

// NewSpotifyEmbedClient creates an embed client. A nil client gets the default one.
func NewSpotifyEmbedClient(client *http.Client) *SpotifyEmbedClient {
	if client == nil {
		client = NewHTTPClient(DefaultHTTPTimeout)
	}
	return &SpotifyEmbedClient{
		client:      client,
		baseURL:     SpotifyEmbedBaseURL,
		maxReadSize: DefaultMaxReadSize,
	}
}

// Data fetches the embed entity for a Spotify track, album or playlist link.
func (c *SpotifyEmbedClient) Data(ctx context.Context, rawURL string) (*SpotifyEntity, error) {
	embedURL, err := c.embedURL(rawURL)
	if err != nil {
		return nil, err
	}

	page, err := fetchHTMLFromURL(ctx, c.client, embedURL, "Spotify", c.maxReadSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Spotify embed page: %w", err)
	}

	return parseSpotifyEmbed(page)
}

// Preview returns the title and artist of a Spotify link. For collections the
// artist is taken from the first track, the title from the collection itself.
func (c *SpotifyEmbedClient) Preview(ctx context.Context, rawURL string) (*SpotifyPreview, error) {
	entity, err := c.Data(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title := entity.Name
	if title == "" {
		title = entity.Title
	}

	artist := joinArtists(entity.Artists)
	if entity.Type != "track" && len(entity.TrackList) > 0 {
		artist = entity.TrackList[0].Subtitle
	}
	if artist == "" {
		artist = entity.Subtitle
	}

	if title == "" {
		return nil, errors.New("spotify entity has no title")
	}

	return &SpotifyPreview{
		Type:   entity.Type,
		Title:  title,
		Artist: artist,
	}, nil
}

// ParseSpotifyLink returns the entity type ("track", "album" or "playlist") and id of a
// Spotify link or URI.
func ParseSpotifyLink(rawURL string) (kind, id string, ok bool) {
	matches := spotifyPathRegex.FindStringSubmatch(rawURL)
	if matches == nil {
		matches = spotifyURIRegex.FindStringSubmatch(rawURL)
	}
	if matches == nil {
		return "", "", false
	}
	return matches[1], matches[2], true
}

// embedURL maps any supported Spotify link or URI to its embed page.
func (c *SpotifyEmbedClient) embedURL(rawURL string) (string, error) {
	kind, id, ok := ParseSpotifyLink(rawURL)
	if !ok {
		return "", fmt.Errorf("not a Spotify link: %q", rawURL)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(c.baseURL, "/"), kind, id), nil
}

func parseSpotifyEmbed(page string) (*SpotifyEntity, error) {
	payload, err := findScriptText(page, func(n *html.Node) bool {
		return hasAttr(n, "id", spotifyNextDataScriptID)
	})
	if err != nil {
		return nil, err
	}

	raw := gjson.Get(payload, spotifyEntityPath)
	if !raw.Exists() || !raw.IsObject() {
		return nil, errors.New("spotify embed page has no entity")
	}

	var entity SpotifyEntity
	if err := json.Unmarshal([]byte(raw.Raw), &entity); err != nil {
		return nil, fmt.Errorf("failed to decode Spotify entity: %w", err)
	}

	return &entity, nil
}

func joinArtists(artists []SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, " & ")
}
