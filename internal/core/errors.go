package core

import "errors"

var (
	// ErrSearchFailed is returned when the search backend or its filter chain fails, or a
	// required id cannot be read from a link.
	ErrSearchFailed = errors.New("search failed")
	// ErrInvalidAppleLink is returned when an Apple Music song cannot be scraped or re-resolved.
	ErrInvalidAppleLink = errors.New("invalid Apple Music link")
	// ErrInvalidSpotifyLink is returned when a Spotify track cannot be fetched or re-resolved.
	ErrInvalidSpotifyLink = errors.New("invalid Spotify link")
	// ErrInvalidPlaylistLink is returned when a collection link is unknown, cannot be fetched,
	// has the wrong type or resolves to no tracks.
	ErrInvalidPlaylistLink = errors.New("invalid playlist link")
	// ErrNoResult is returned by Best when neither the link nor any search candidate yields a track.
	ErrNoResult = errors.New("no result")
)
