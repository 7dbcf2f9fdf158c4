package musiclink

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func spotifyEmbedPage(entity string) string {
	return `<html><body><script id="__NEXT_DATA__" type="application/json">` +
		`{"props":{"pageProps":{"state":{"data":{"entity":` + entity + `}}}}}` +
		`</script></body></html>`
}

func newSpotifyEmbedTestClient(t *testing.T, pages map[string]string) *SpotifyEmbedClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)

	client := NewSpotifyEmbedClient(srv.Client())
	client.baseURL = srv.URL + "/embed"
	return client
}

func TestSpotifyEmbedClient_Preview(t *testing.T) {
	client := newSpotifyEmbedTestClient(t, map[string]string{
		"/embed/track/4PTG3Z6ehGkBFwjybzWkR8": spotifyEmbedPage(
			`{"type":"track","name":"Never Gonna Give You Up","artists":[{"name":"Rick Astley"}],"duration":213573}`),
		"/embed/playlist/37i9dQZF1DXcBWIGoYBM5M": spotifyEmbedPage(
			`{"type":"playlist","name":"Hits","subtitle":"Spotify",` +
				`"trackList":[{"title":"T1","subtitle":"A1"},{"title":"T2","subtitle":"A2"}]}`),
		"/embed/track/duet": spotifyEmbedPage(
			`{"type":"track","title":"Duet","artists":[{"name":"X"},{"name":"Y"}]}`),
	})

	tests := []struct {
		name string
		url  string
		want SpotifyPreview
	}{
		{
			name: "track",
			url:  "https://open.spotify.com/track/4PTG3Z6ehGkBFwjybzWkR8?si=abc",
			want: SpotifyPreview{Type: "track", Title: "Never Gonna Give You Up", Artist: "Rick Astley"},
		},
		{
			name: "playlist takes artist from first track",
			url:  "https://open.spotify.com/intl-fr/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want: SpotifyPreview{Type: "playlist", Title: "Hits", Artist: "A1"},
		},
		{
			name: "URI form with several artists",
			url:  "spotify:track:duet",
			want: SpotifyPreview{Type: "track", Title: "Duet", Artist: "X & Y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Preview(context.Background(), tt.url)
			if err != nil {
				t.Fatalf("Preview() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("Preview() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestSpotifyEmbedClient_Data(t *testing.T) {
	client := newSpotifyEmbedTestClient(t, map[string]string{
		"/embed/album/6N9PS4QXF1D0OWPk0Sxtb4": spotifyEmbedPage(
			`{"type":"album","name":"Whenever You Need Somebody","subtitle":"Rick Astley",` +
				`"trackList":[{"title":"Never Gonna Give You Up","subtitle":"Rick Astley","duration":213573},` +
				`{"title":"Whenever You Need Somebody","subtitle":"Rick Astley","duration":234000}]}`),
	})

	entity, err := client.Data(context.Background(), "https://open.spotify.com/album/6N9PS4QXF1D0OWPk0Sxtb4")
	if err != nil {
		t.Fatalf("Data() error = %v", err)
	}
	if entity.Type != "album" || entity.Name != "Whenever You Need Somebody" {
		t.Errorf("Data() type/name = %q/%q", entity.Type, entity.Name)
	}
	if len(entity.TrackList) != 2 {
		t.Fatalf("len(TrackList) = %d, want 2", len(entity.TrackList))
	}
	if entity.TrackList[1].Title != "Whenever You Need Somebody" || entity.TrackList[0].Duration != 213573 {
		t.Errorf("TrackList = %+v", entity.TrackList)
	}
}

func TestSpotifyEmbedClient_Errors(t *testing.T) {
	client := newSpotifyEmbedTestClient(t, map[string]string{
		"/embed/track/noentity": `<html><script id="__NEXT_DATA__">{"props":{}}</script></html>`,
		"/embed/track/notitle":  spotifyEmbedPage(`{"type":"track"}`),
	})

	tests := []struct {
		name string
		url  string
	}{
		{"not a Spotify link", "https://example.com/track/abc"},
		{"missing page", "https://open.spotify.com/track/missing"},
		{"page without entity", "https://open.spotify.com/track/noentity"},
		{"entity without title", "https://open.spotify.com/track/notitle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, err := client.Preview(context.Background(), tt.url); err == nil {
				t.Errorf("Preview() = %+v, want error", got)
			}
		})
	}
}

func TestParseSpotifyLink(t *testing.T) {
	tests := []struct {
		input    string
		wantKind string
		wantID   string
		wantOK   bool
	}{
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "track", "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/intl-de/album/6dVIqQ8qmQ5GBnJ9shOYGE?si=abc", "album", "6dVIqQ8qmQ5GBnJ9shOYGE", true},
		{"https://open.spotify.com/embed/playlist/37i9dQZF1DXcBWIGoYBM5M", "playlist", "37i9dQZF1DXcBWIGoYBM5M", true},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", "track", "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF", "", "", false},
		{"never gonna give you up", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, id, ok := ParseSpotifyLink(tt.input)
			if kind != tt.wantKind || id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ParseSpotifyLink(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.input, kind, id, ok, tt.wantKind, tt.wantID, tt.wantOK)
			}
		})
	}
}
