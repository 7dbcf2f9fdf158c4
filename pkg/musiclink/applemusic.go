package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

const (
	// appleServerDataScriptID marks the script element holding the page's serialized server data.
	appleServerDataScriptID = "serialized-server-data"
	// appleTrackListSectionMarker is contained in the id of every section listing tracks.
	appleTrackListSectionMarker = "track-list - "

	appleSectionsPath = "0.data.sections"
	appleArtistField  = "artistName"
	appleTitleField   = "title"
)

var (
	// ErrNoTracks is returned when a page yields no scraped tracks.
	ErrNoTracks = errors.New("no tracks found on page")
)

// AppleMusicExtractor scrapes track listings from Apple Music storefront pages.
type AppleMusicExtractor struct {
	client      *http.Client
	maxReadSize int64
}

// NewAppleMusicExtractor creates an extractor using the given HTTP client. A nil client gets the default one.
func NewAppleMusicExtractor(client *http.Client) *AppleMusicExtractor {
	if client == nil {
		client = NewHTTPClient(DefaultHTTPTimeout)
	}
	return &AppleMusicExtractor{
		client:      client,
		maxReadSize: DefaultMaxReadSize,
	}
}

// Extract fetches pageURL and scrapes its track list. Every failure, including network errors,
// is reported as an error meaning "no result"; nothing panics on unexpected page shapes.
func (e *AppleMusicExtractor) Extract(ctx context.Context, pageURL string, kind LinkKind) (*PageResult, error) {
	page, err := fetchHTMLFromURL(ctx, e.client, pageURL, "Apple Music", e.maxReadSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Apple Music page: %w", err)
	}

	list, err := parseApplePage(page)
	if err != nil {
		return nil, err
	}

	if list.Count() == 0 {
		return nil, ErrNoTracks
	}

	if kind == LinkKindSong {
		first := list.Tracks()[0]
		return &PageResult{Kind: LinkKindSong, Track: &first}, nil
	}
	return &PageResult{Kind: LinkKindAlbum, List: list}, nil
}

// parseApplePage collects the tracks of every track-list section, merged in document order.
func parseApplePage(page string) (*ScrapedTrackList, error) {
	payload, err := findScriptText(page, func(n *html.Node) bool {
		return hasAttr(n, "id", appleServerDataScriptID)
	})
	if err != nil {
		return nil, err
	}

	if !gjson.Valid(payload) {
		return nil, errors.New("failed to decode Apple Music server data")
	}
	records := gjson.Parse(payload)
	if !records.IsArray() || len(records.Array()) == 0 {
		return nil, errors.New("server data has no records")
	}

	// Only track-list sections are read; other sections may hold items of any shape.
	list := &ScrapedTrackList{}
	records.Get(appleSectionsPath).ForEach(func(_, section gjson.Result) bool {
		if !strings.Contains(section.Get("id").String(), appleTrackListSectionMarker) {
			return true
		}
		items := section.Get("items")
		if !items.IsArray() {
			return true
		}
		items.ForEach(func(_, item gjson.Result) bool {
			list.Add(ScrapedTrack{Artist: item.Get(appleArtistField).String(), Title: item.Get(appleTitleField).String()})
			return true
		})
		return true
	})

	return list, nil
}
