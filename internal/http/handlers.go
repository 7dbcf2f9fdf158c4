package http

import (
	"fmt"
	"net/http"
	"strconv"

	"musicresolver/internal/core"
)

// requestError is a malformed request; it always maps to 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// searchResponse wraps search results so an empty result is still an object.
type searchResponse struct {
	Query  string        `json:"query"`
	Tracks []*core.Track `json:"tracks"`
}

func (s *Server) handleResolve(r *http.Request) (any, error) {
	query, err := requiredParam(r, "q")
	if err != nil {
		return nil, err
	}
	opts, err := playOptions(r)
	if err != nil {
		return nil, err
	}

	input := s.parser.Parse(query)
	return s.resolver.Best(r.Context(), core.Query(input.Query()), opts)
}

func (s *Server) handleLink(r *http.Request) (any, error) {
	link, err := requiredParam(r, "url")
	if err != nil {
		return nil, err
	}
	opts, err := playOptions(r)
	if err != nil {
		return nil, err
	}

	input := s.parser.Parse(link)
	track, err := s.resolver.Link(r.Context(), input.Query(), opts)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, badRequest("%q is not a supported track link", link)
	}
	return track, nil
}

func (s *Server) handlePlaylist(r *http.Request) (any, error) {
	link, err := requiredParam(r, "url")
	if err != nil {
		return nil, err
	}
	play, err := playOptions(r)
	if err != nil {
		return nil, err
	}

	opts := core.DefaultPlaylistOptions()
	opts.PlayOptions = play
	if opts.MaxSongs, err = intParam(r, "max", core.NoLimit); err != nil {
		return nil, err
	}
	if opts.Shuffle, err = boolParam(r, "shuffle"); err != nil {
		return nil, err
	}
	if opts.Unique, err = boolParam(r, "unique"); err != nil {
		return nil, err
	}

	input := s.parser.Parse(link)
	return s.resolver.Playlist(r.Context(), core.Query(input.Query()), opts)
}

func (s *Server) handleSearch(r *http.Request) (any, error) {
	query, err := requiredParam(r, "q")
	if err != nil {
		return nil, err
	}
	opts, err := playOptions(r)
	if err != nil {
		return nil, err
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		return nil, err
	}

	tracks, err := s.resolver.Search(r.Context(), query, opts, limit)
	if err != nil {
		return nil, err
	}
	return searchResponse{Query: query, Tracks: tracks}, nil
}

func playOptions(r *http.Request) (core.PlayOptions, error) {
	q := r.URL.Query()
	opts := core.PlayOptions{
		UploadDate: q.Get("upload_date"),
		Duration:   q.Get("duration"),
		SortBy:     q.Get("sort_by"),
	}

	var err error
	opts.Timecode, err = boolParam(r, "timecode")
	return opts, err
}

func requiredParam(r *http.Request, name string) (string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", badRequest("missing %q parameter", name)
	}
	return value, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid %q parameter: %q", name, raw)
	}
	return value, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("invalid %q parameter: %q", name, raw)
	}
	return value, nil
}
