package musiclink

import (
	"regexp"
	"strings"
)

var (
	youtubeVideoRegex = regexp.MustCompile(
		`^(?:https?://)?(?:(?:www|m|music)\.)?(?:youtube\.com|youtu\.be)/(?:[\w\-]+\?v=|embed/|v/|shorts/)?([\w\-]+)`)
	youtubeVideoTimeRegex  = regexp.MustCompile(`[?&]t=(\d+)`)
	youtubeVideoIDRegex    = regexp.MustCompile(`^.*(?:youtu\.be/|v/|/u/\w/|embed/|shorts/|watch\?)\??v?=?([^#&?]*)`)
	youtubePlaylistRegex   = regexp.MustCompile(`^(?:https?://)?(?:(?:www|m|music)\.)?youtube\.com.*(?:youtu\.be/|list=)([^#&?]*)`)
	youtubePlaylistIDRegex = regexp.MustCompile(`[&?]list=([^&#]+)`)

	spotifyTrackRegex = regexp.MustCompile(
		`https?://(?:embed\.|open\.)spotify\.com/(?:intl-[a-z]{2}/)?(?:track/|\?uri=spotify:track:)([\w\-]+)(?:\?[^#]*)?(?:#|$)`)
	spotifyCollectionRegex = regexp.MustCompile(
		`https?://(?:embed\.|open\.)spotify\.com/(?:intl-[a-z]{2}/)?(?:(?:album|playlist)/|\?uri=spotify:playlist:)([\w\-]+)(?:\?[^#]*)?(?:#|$)`)

	appleTrackRegex      = regexp.MustCompile(`https?://music\.apple\.com/[a-z]{2}/album/\S+?/\d+?\?(?:\S*&)?i=(\d+)`)
	appleCollectionRegex = regexp.MustCompile(`https?://music\.apple\.com/[a-z]{2}/(?:playlist|album)/`)

	// reservedYouTubePaths are path prefixes that look like ids to the video pattern but never are.
	reservedYouTubePaths = []string{"channel", "user", "playlist", "results", "feed"}
)

type linkMatcher struct {
	provider Provider
	match    func(string) bool
}

// singleItemMatchers and collectionMatchers are tested in order; the first hit wins.
var (
	singleItemMatchers = []linkMatcher{
		{ProviderSpotify, spotifyTrackRegex.MatchString},
		{ProviderYouTube, isYouTubeVideo},
		{ProviderApple, appleTrackRegex.MatchString},
	}
	collectionMatchers = []linkMatcher{
		{ProviderSpotify, spotifyCollectionRegex.MatchString},
		{ProviderYouTube, youtubePlaylistRegex.MatchString},
		{ProviderApple, appleCollectionRegex.MatchString},
	}
)

// IsSingleItemLink reports whether s links to one playable track, and on which provider.
func IsSingleItemLink(s string) (bool, Provider) {
	return classify(singleItemMatchers, strings.TrimSpace(s))
}

// IsCollectionLink reports whether s links to a playlist or album, and on which provider.
func IsCollectionLink(s string) (bool, Provider) {
	return classify(collectionMatchers, strings.TrimSpace(s))
}

func classify(matchers []linkMatcher, s string) (bool, Provider) {
	for _, m := range matchers {
		if m.match(s) {
			return true, m.provider
		}
	}
	return false, ProviderNone
}

func isYouTubeVideo(s string) bool {
	matches := youtubeVideoRegex.FindStringSubmatch(s)
	if len(matches) < 2 {
		return false
	}
	if matches[1] == "c" {
		return false
	}
	for _, reserved := range reservedYouTubePaths {
		if strings.HasPrefix(matches[1], reserved) {
			return false
		}
	}
	return true
}

// ExtractVideoID returns the YouTube video id of a link.
func ExtractVideoID(s string) (string, bool) {
	return firstGroup(youtubeVideoIDRegex, s)
}

// ExtractVideoTimecode returns the raw t= start offset, in seconds, of a YouTube link.
func ExtractVideoTimecode(s string) (string, bool) {
	return firstGroup(youtubeVideoTimeRegex, s)
}

// ExtractPlaylistID returns the list= id of a YouTube playlist or mix link.
func ExtractPlaylistID(s string) (string, bool) {
	return firstGroup(youtubePlaylistIDRegex, s)
}

// ExtractSpotifyID returns the track, album or playlist id of a Spotify link.
func ExtractSpotifyID(s string) (string, bool) {
	if id, ok := firstGroup(spotifyTrackRegex, s); ok {
		return id, true
	}
	return firstGroup(spotifyCollectionRegex, s)
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	matches := re.FindStringSubmatch(s)
	if len(matches) < 2 || matches[1] == "" {
		return "", false
	}
	return matches[1], true
}
