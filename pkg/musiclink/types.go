// Package musiclink classifies music provider links and scrapes provider pages for track metadata.
package musiclink

// Provider identifies the music service a link belongs to.
type Provider int

const (
	// ProviderNone means the input matched no known provider.
	ProviderNone Provider = iota
	// ProviderYouTube is youtube.com / youtu.be.
	ProviderYouTube
	// ProviderSpotify is open.spotify.com / embed.spotify.com.
	ProviderSpotify
	// ProviderApple is music.apple.com.
	ProviderApple
)

func (p Provider) String() string {
	switch p {
	case ProviderYouTube:
		return "youtube"
	case ProviderSpotify:
		return "spotify"
	case ProviderApple:
		return "apple"
	default:
		return "none"
	}
}

// LinkKind selects what the Apple extractor returns for a page.
type LinkKind int

const (
	// LinkKindSong returns only the first scraped track.
	LinkKindSong LinkKind = iota
	// LinkKindAlbum returns every scraped track.
	LinkKindAlbum
)

// ScrapedTrack is a track as it appears on a storefront page, before it is matched to a playable result.
type ScrapedTrack struct {
	Artist string
	Title  string
}

// Query renders the track as an "artist - title" search string.
func (t ScrapedTrack) Query() string {
	return t.Artist + " - " + t.Title
}

// ScrapedTrackList keeps scraped tracks in document order.
type ScrapedTrackList struct {
	tracks []ScrapedTrack
}

// Add appends a track.
func (l *ScrapedTrackList) Add(track ScrapedTrack) {
	l.tracks = append(l.tracks, track)
}

// Tracks returns the tracks in insertion order.
func (l *ScrapedTrackList) Tracks() []ScrapedTrack {
	return l.tracks
}

// Count is always the number of tracks held.
func (l *ScrapedTrackList) Count() int {
	return len(l.tracks)
}

// PageResult is what the Apple extractor yields: a single Track when Kind is LinkKindSong,
// or a List when Kind is LinkKindAlbum. Exactly one of the two is set.
type PageResult struct {
	Kind  LinkKind
	Track *ScrapedTrack
	List  *ScrapedTrackList
}
