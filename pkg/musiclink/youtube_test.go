package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const ytSearchInitialData = `{
  "contents": {"twoColumnSearchResultsRenderer": {"primaryContents": {"sectionListRenderer": {
    "subMenu": {"searchSubMenuRenderer": {"groups": [
      {"searchFilterGroupRenderer": {"title": {"simpleText": "Type"}, "filters": [
        {"searchFilterRenderer": {"label": {"simpleText": "Video"},
          "navigationEndpoint": {"commandMetadata": {"webCommandMetadata": {"url": "/results?search_query=rick&sp=video"}}}}},
        {"searchFilterRenderer": {"label": {"simpleText": "Channel"},
          "navigationEndpoint": {"commandMetadata": {"webCommandMetadata": {"url": "/results?search_query=rick&sp=channel"}}}}}
      ]}},
      {"searchFilterGroupRenderer": {"title": {"simpleText": "Upload date"}, "filters": [
        {"searchFilterRenderer": {"label": {"runs": [{"text": "This "}, {"text": "week"}]}, "status": "FILTER_STATUS_SELECTED"}}
      ]}}
    ]}},
    "contents": [
      {"itemSectionRenderer": {"contents": [
        {"adSlotRenderer": {"slotId": "ad"}},
        {"videoRenderer": {"videoId": "dQw4w9WgXcQ",
          "title": {"runs": [{"text": "Never Gonna Give You Up"}]},
          "lengthText": {"simpleText": "3:33"},
          "ownerText": {"runs": [{"text": "Rick Astley"}]},
          "thumbnail": {"thumbnails": [{"url": "https://i.ytimg.com/small.jpg", "width": 120},
                                       {"url": "https://i.ytimg.com/large.jpg", "width": 720}]}}},
        {"playlistRenderer": {"playlistId": "PL1", "title": {"simpleText": "Rick Mix"}}},
        {"videoRenderer": {"videoId": "live12345ab",
          "title": {"runs": [{"text": "Live now"}]},
          "longBylineText": {"runs": [{"text": "Some Channel"}]},
          "badges": [{"metadataBadgeRenderer": {"style": "BADGE_STYLE_TYPE_LIVE_NOW"}}]}}
      ]}}
    ]
  }}}}
}`

func ytResultsPage(data string) string {
	return `<html><head><script nonce="x">window.ytcfg = {};</script></head><body>` +
		`<script nonce="y">var ytInitialData = ` + data + `;</script></body></html>`
}

func newYouTubeSearchTestClient(t *testing.T, handler http.HandlerFunc) *YouTubeSearchClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewYouTubeSearchClient(srv.Client())
	client.baseURL = srv.URL
	return client
}

func TestYouTubeSearchClient_Filters(t *testing.T) {
	var gotQuery string
	client := newYouTubeSearchTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		fmt.Fprint(w, ytResultsPage(ytSearchInitialData))
	})

	groups, err := client.Filters(context.Background(), "rick astley")
	if err != nil {
		t.Fatalf("Filters() error = %v", err)
	}
	if gotQuery != "rick astley" {
		t.Errorf("search_query = %q, want %q", gotQuery, "rick astley")
	}
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}

	typeGroup := groups[0]
	if typeGroup.Name != "Type" || len(typeGroup.Filters) != 2 {
		t.Fatalf("groups[0] = %+v", typeGroup)
	}
	wantVideoURL := client.baseURL + "/results?search_query=rick&sp=video"
	if typeGroup.Filters[0].Label != "Video" || typeGroup.Filters[0].URL != wantVideoURL {
		t.Errorf("video filter = %+v, want URL %q", typeGroup.Filters[0], wantVideoURL)
	}

	dateGroup := groups[1]
	if dateGroup.Name != "Upload date" || len(dateGroup.Filters) != 1 {
		t.Fatalf("groups[1] = %+v", dateGroup)
	}
	selected := dateGroup.Filters[0]
	if selected.Label != "This week" || !selected.Active {
		t.Errorf("selected filter = %+v", selected)
	}
	if selected.URL != client.baseURL+"/results?search_query=rick+astley" {
		t.Errorf("selected filter URL = %q, want the page URL", selected.URL)
	}
}

func TestYouTubeSearchClient_Search(t *testing.T) {
	client := newYouTubeSearchTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, ytResultsPage(ytSearchInitialData))
	})

	t.Run("all items in page order", func(t *testing.T) {
		items, err := client.Search(context.Background(), client.baseURL+"/results?search_query=rick&sp=video", 0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("len(items) = %d, want 3", len(items))
		}

		video := items[0]
		want := SearchItem{
			Type:      SearchItemVideo,
			ID:        "dQw4w9WgXcQ",
			Title:     "Never Gonna Give You Up",
			URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Duration:  "3:33",
			Author:    "Rick Astley",
			Thumbnail: "https://i.ytimg.com/large.jpg",
		}
		if video != want {
			t.Errorf("items[0] = %+v, want %+v", video, want)
		}

		if items[1].Type != "playlist" || items[1].Title != "Rick Mix" {
			t.Errorf("items[1] = %+v", items[1])
		}
		if !items[2].IsLive || items[2].Author != "Some Channel" {
			t.Errorf("items[2] = %+v, want live item by Some Channel", items[2])
		}
	})

	t.Run("limit caps results", func(t *testing.T) {
		items, err := client.Search(context.Background(), "rick", 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(items) != 2 || items[0].ID != "dQw4w9WgXcQ" || items[1].Type != "playlist" {
			t.Errorf("Search() = %+v", items)
		}
	})
}

func TestYouTubeSearchClient_MissingInitialData(t *testing.T) {
	client := newYouTubeSearchTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><script>var somethingElse = {};</script></body></html>`)
	})

	if _, err := client.Filters(context.Background(), "rick"); !errors.Is(err, ErrInitialDataNotFound) {
		t.Errorf("Filters() error = %v, want %v", err, ErrInitialDataNotFound)
	}
	if _, err := client.Search(context.Background(), "rick", 5); !errors.Is(err, ErrInitialDataNotFound) {
		t.Errorf("Search() error = %v, want %v", err, ErrInitialDataNotFound)
	}
}

func TestYouTubeSearchClient_URLs(t *testing.T) {
	client := &YouTubeSearchClient{baseURL: "https://www.youtube.com/"}
	if got := client.absoluteURL("/watch?v=x"); got != "https://www.youtube.com/watch?v=x" {
		t.Errorf("absoluteURL() = %q", got)
	}
	if got := client.searchURL("a&b"); got != "https://www.youtube.com/results?search_query=a%26b" {
		t.Errorf("searchURL() = %q", got)
	}
}
