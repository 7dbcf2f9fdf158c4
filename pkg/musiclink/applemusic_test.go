package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const appleTwoTrackPayload = `[{"data":{"sections":[` +
	`{"id":"album-detail - 1558533900","items":[{"title":"Whenever You Need Somebody"}]},` +
	`{"id":"track-list - 1558533900","items":[` +
	`{"artistName":"A","title":"T1"},` +
	`{"artistName":"A","title":"T2"}]}]}}]`

func applePage(payload string) string {
	return `<!DOCTYPE html><html><head><title>Apple Music</title>` +
		`<script type="application/json" id="serialized-server-data">` + payload + `</script>` +
		`</head><body></body></html>`
}

func newAppleServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAppleMusicExtractor_AlbumMode(t *testing.T) {
	srv := newAppleServer(t, applePage(appleTwoTrackPayload), http.StatusOK)
	extractor := NewAppleMusicExtractor(srv.Client())

	result, err := extractor.Extract(context.Background(), srv.URL, LinkKindAlbum)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Kind != LinkKindAlbum || result.List == nil || result.Track != nil {
		t.Fatalf("Extract() = %+v, want album result with list only", result)
	}

	want := []ScrapedTrack{{Artist: "A", Title: "T1"}, {Artist: "A", Title: "T2"}}
	got := result.List.Tracks()
	if result.List.Count() != len(want) || len(got) != len(want) {
		t.Fatalf("Count() = %d, want %d", result.List.Count(), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("track %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAppleMusicExtractor_SongMode(t *testing.T) {
	srv := newAppleServer(t, applePage(appleTwoTrackPayload), http.StatusOK)
	extractor := NewAppleMusicExtractor(srv.Client())

	result, err := extractor.Extract(context.Background(), srv.URL, LinkKindSong)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Kind != LinkKindSong || result.Track == nil || result.List != nil {
		t.Fatalf("Extract() = %+v, want song result with track only", result)
	}
	if *result.Track != (ScrapedTrack{Artist: "A", Title: "T1"}) {
		t.Errorf("Track = %+v, want A/T1", *result.Track)
	}
	if got := result.Track.Query(); got != "A - T1" {
		t.Errorf("Query() = %q, want %q", got, "A - T1")
	}
}

func TestAppleMusicExtractor_MergesTrackListSections(t *testing.T) {
	payload := `[{"data":{"sections":[` +
		`{"id":"track-list - disc 1","items":[{"artistName":"A","title":"T1"}]},` +
		`{"id":"more-by-artist","items":[{"artistName":"B","title":"X"}]},` +
		`{"id":"track-list - disc 2","items":[{"artistName":"A","title":"T2"}]}]}}]`
	srv := newAppleServer(t, applePage(payload), http.StatusOK)

	result, err := NewAppleMusicExtractor(srv.Client()).Extract(context.Background(), srv.URL, LinkKindAlbum)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	got := result.List.Tracks()
	if len(got) != 2 || got[0].Title != "T1" || got[1].Title != "T2" {
		t.Errorf("Tracks() = %+v, want T1 then T2", got)
	}
}

func TestAppleMusicExtractor_IgnoresForeignSectionShapes(t *testing.T) {
	payload := `[{"data":{"sections":[` +
		`{"id":"hero","items":[{"title":{"text":"Banner"},"artistName":42}]},` +
		`{"id":"track-list - 1","items":[{"artistName":"A","title":"T1"}]},` +
		`{"id":"more-by-artist","items":"lazy"}]}}]`
	srv := newAppleServer(t, applePage(payload), http.StatusOK)

	result, err := NewAppleMusicExtractor(srv.Client()).Extract(context.Background(), srv.URL, LinkKindSong)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Track == nil || *result.Track != (ScrapedTrack{Artist: "A", Title: "T1"}) {
		t.Errorf("Extract() track = %+v, want A - T1", result.Track)
	}
}

func TestAppleMusicExtractor_NoResult(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr error
	}{
		{
			name:    "no server data script",
			body:    `<html><head><script>var x = 1;</script></head></html>`,
			status:  http.StatusOK,
			wantErr: ErrScriptNotFound,
		},
		{
			name:    "script without text",
			body:    applePage(""),
			status:  http.StatusOK,
			wantErr: ErrScriptNotFound,
		},
		{
			name:    "no track-list section",
			body:    applePage(`[{"data":{"sections":[{"id":"header","items":[]}]}}]`),
			status:  http.StatusOK,
			wantErr: ErrNoTracks,
		},
		{
			name:   "invalid JSON",
			body:   applePage(`{not json`),
			status: http.StatusOK,
		},
		{
			name:   "upstream error",
			body:   "gone",
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAppleServer(t, tt.body, tt.status)
			result, err := NewAppleMusicExtractor(srv.Client()).Extract(context.Background(), srv.URL, LinkKindSong)
			if err == nil {
				t.Fatalf("Extract() = %+v, want error", result)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Extract() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScrapedTrackList_Count(t *testing.T) {
	var list ScrapedTrackList
	if list.Count() != 0 {
		t.Fatalf("empty Count() = %d", list.Count())
	}
	list.Add(ScrapedTrack{Artist: "A", Title: "T1"})
	list.Add(ScrapedTrack{Artist: "B", Title: "T2"})
	if list.Count() != len(list.Tracks()) || list.Count() != 2 {
		t.Errorf("Count() = %d, len(Tracks()) = %d, want 2", list.Count(), len(list.Tracks()))
	}
}
