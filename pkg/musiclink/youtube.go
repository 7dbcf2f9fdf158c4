package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

const (
	// YouTubeBaseURL is the origin search pages and filter links are resolved against.
	YouTubeBaseURL = "https://www.youtube.com"
	// ytInitialDataMarker identifies the script that assigns the page's initial data.
	ytInitialDataMarker = "ytInitialData"
	// liveBadgeStyle marks a result that is currently streaming.
	liveBadgeStyle = "BADGE_STYLE_TYPE_LIVE_NOW"
	// selectedFilterStatus marks a filter already applied to the current page.
	selectedFilterStatus = "FILTER_STATUS_SELECTED"

	// SearchItemVideo is the item type of a playable video result.
	SearchItemVideo = "video"
)

var (
	// filterGroupPaths lists where the page keeps its filter facets, newest layout last.
	filterGroupPaths = []string{
		"contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer.subMenu.searchSubMenuRenderer.groups",
		"header.searchHeaderRenderer.searchFilterButton.buttonRenderer.command.openPopupAction.popup." +
			"searchFilterOptionsDialogRenderer.groups",
	}
	resultSectionsPath = "contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer.contents"

	// searchRendererTypes maps result renderers to item types. Unlisted renderers (ads, spacers) are skipped.
	searchRendererTypes = map[string]string{
		"videoRenderer":     SearchItemVideo,
		"playlistRenderer":  "playlist",
		"channelRenderer":   "channel",
		"radioRenderer":     "mix",
		"shelfRenderer":     "shelf",
		"movieRenderer":     "movie",
		"reelShelfRenderer": "shelf",
	}

	// ErrInitialDataNotFound is returned when a YouTube page carries no initial data script.
	ErrInitialDataNotFound = errors.New("ytInitialData not found")
)

// SearchFilter is one selectable option of a search facet.
type SearchFilter struct {
	Label  string
	URL    string
	Active bool
}

// SearchFilterGroup is a facet ("Type", "Upload date", ...) with its options in page order.
type SearchFilterGroup struct {
	Name    string
	Filters []SearchFilter
}

// SearchItem is a raw search result.
type SearchItem struct {
	Type      string
	ID        string
	Title     string
	URL       string
	Duration  string
	Author    string
	IsLive    bool
	Thumbnail string
}

// YouTubeSearchClient scrapes YouTube result pages for filter facets and results.
type YouTubeSearchClient struct {
	client      *http.Client
	baseURL     string
	maxReadSize int64
}

// NewYouTubeSearchClient creates a search client. A nil client gets the default one.
func NewYouTubeSearchClient(client *http.Client) *YouTubeSearchClient {
	if client == nil {
		client = NewHTTPClient(DefaultHTTPTimeout)
	}
	return &YouTubeSearchClient{
		client:      client,
		baseURL:     YouTubeBaseURL,
		maxReadSize: DefaultMaxReadSize,
	}
}

// Filters returns the filter facets offered for a query text or a previously returned filter URL.
// Options already applied to the page carry the page's own URL.
func (c *YouTubeSearchClient) Filters(ctx context.Context, queryOrURL string) ([]SearchFilterGroup, error) {
	pageURL := c.searchURL(queryOrURL)
	data, err := c.initialData(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var groups gjson.Result
	for _, path := range filterGroupPaths {
		if groups = gjson.Get(data, path); groups.Exists() {
			break
		}
	}
	if !groups.Exists() {
		return nil, errors.New("search page has no filter groups")
	}

	var result []SearchFilterGroup
	groups.ForEach(func(_, g gjson.Result) bool {
		renderer := g.Get("searchFilterGroupRenderer")
		group := SearchFilterGroup{Name: textOf(renderer.Get("title"))}
		renderer.Get("filters").ForEach(func(_, f gjson.Result) bool {
			fr := f.Get("searchFilterRenderer")
			filter := SearchFilter{
				Label:  textOf(fr.Get("label")),
				Active: fr.Get("status").String() == selectedFilterStatus,
			}
			if link := fr.Get("navigationEndpoint.commandMetadata.webCommandMetadata.url").String(); link != "" {
				filter.URL = c.absoluteURL(link)
			} else if filter.Active {
				filter.URL = pageURL
			}
			if filter.Label != "" && filter.URL != "" {
				group.Filters = append(group.Filters, filter)
			}
			return true
		})
		result = append(result, group)
		return true
	})

	return result, nil
}

// Search returns up to limit results of a filter URL (or plain query text) in page order.
func (c *YouTubeSearchClient) Search(ctx context.Context, queryOrURL string, limit int) ([]SearchItem, error) {
	data, err := c.initialData(ctx, c.searchURL(queryOrURL))
	if err != nil {
		return nil, err
	}

	sections := gjson.Get(data, resultSectionsPath)
	if !sections.Exists() {
		return nil, errors.New("search page has no result sections")
	}

	var items []SearchItem
	sections.ForEach(func(_, section gjson.Result) bool {
		section.Get("itemSectionRenderer.contents").ForEach(func(_, entry gjson.Result) bool {
			if limit > 0 && len(items) >= limit {
				return false
			}
			if item, ok := parseSearchEntry(entry); ok {
				items = append(items, item)
			}
			return true
		})
		return limit <= 0 || len(items) < limit
	})

	return items, nil
}

func (c *YouTubeSearchClient) initialData(ctx context.Context, pageURL string) (string, error) {
	page, err := fetchHTMLFromURL(ctx, c.client, pageURL, "YouTube", c.maxReadSize)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	return extractInitialData(page)
}

func (c *YouTubeSearchClient) searchURL(queryOrURL string) string {
	if strings.HasPrefix(queryOrURL, "http://") || strings.HasPrefix(queryOrURL, "https://") {
		return queryOrURL
	}
	if strings.HasPrefix(queryOrURL, "/") {
		return c.absoluteURL(queryOrURL)
	}
	return c.absoluteURL("/results?search_query=" + url.QueryEscape(queryOrURL))
}

func (c *YouTubeSearchClient) absoluteURL(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimSuffix(c.baseURL, "/") + link
}

// extractInitialData pulls the JSON object assigned to ytInitialData out of a page.
func extractInitialData(page string) (string, error) {
	script, err := findScriptText(page, func(n *html.Node) bool {
		return n.FirstChild != nil && n.FirstChild.Type == html.TextNode &&
			strings.Contains(n.FirstChild.Data, ytInitialDataMarker)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInitialDataNotFound, err)
	}

	start := strings.Index(script, "{")
	end := strings.LastIndex(script, "}")
	if start < 0 || end <= start {
		return "", ErrInitialDataNotFound
	}

	data := script[start : end+1]
	if !gjson.Valid(data) {
		return "", fmt.Errorf("%w: invalid JSON", ErrInitialDataNotFound)
	}
	return data, nil
}

func parseSearchEntry(entry gjson.Result) (SearchItem, bool) {
	var item SearchItem
	found := false
	entry.ForEach(func(key, renderer gjson.Result) bool {
		itemType, ok := searchRendererTypes[key.String()]
		if !ok {
			return true
		}
		found = true
		item.Type = itemType
		item.Title = textOf(renderer.Get("title"))
		if itemType == SearchItemVideo {
			fillVideoItem(&item, renderer)
		}
		return false
	})
	return item, found
}

func fillVideoItem(item *SearchItem, r gjson.Result) {
	item.ID = r.Get("videoId").String()
	item.URL = YouTubeBaseURL + "/watch?v=" + item.ID
	item.Duration = textOf(r.Get("lengthText"))
	item.Author = textOf(r.Get("ownerText"))
	if item.Author == "" {
		item.Author = textOf(r.Get("longBylineText"))
	}

	r.Get("badges").ForEach(func(_, b gjson.Result) bool {
		if b.Get("metadataBadgeRenderer.style").String() == liveBadgeStyle {
			item.IsLive = true
			return false
		}
		return true
	})

	var bestWidth int64 = -1
	r.Get("thumbnail.thumbnails").ForEach(func(_, t gjson.Result) bool {
		if w := t.Get("width").Int(); w > bestWidth {
			bestWidth = w
			item.Thumbnail = t.Get("url").String()
		}
		return true
	})
}

// textOf reads YouTube's text objects, which carry either simpleText or a list of runs.
func textOf(r gjson.Result) string {
	if s := r.Get("simpleText"); s.Exists() {
		return s.String()
	}
	var b strings.Builder
	r.Get("runs").ForEach(func(_, run gjson.Result) bool {
		b.WriteString(run.Get("text").String())
		return true
	})
	return b.String()
}
