// Package text turns raw user input into a resolver input: a cleaned provider link or a search query.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"musicresolver/pkg/musiclink"

	"golang.org/x/text/unicode/norm"
)

// InputKind says how the resolver should treat a parsed input.
type InputKind int

const (
	// InputFreeText is a search query.
	InputFreeText InputKind = iota
	// InputSingleLink is a link to one track.
	InputSingleLink
	// InputCollectionLink is a link to a playlist or album.
	InputCollectionLink
)

var (
	urlRegex        = regexp.MustCompile(`https?://\S+`)
	spotifyURIRegex = regexp.MustCompile(`spotify:(?:track|album|playlist):[\w\-]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// trackingParams are stripped from links; they never change what a link points to.
	trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si", "feature"}
)

// Input is a parsed user message.
type Input struct {
	Kind     InputKind
	Text     string
	Link     string
	Provider musiclink.Provider
}

// Query is what the resolver should be handed: the link when one was found, the text otherwise.
func (i Input) Query() string {
	if i.Link != "" {
		return i.Link
	}
	return i.Text
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse normalizes text and picks out a provider link. A collection link wins over single
// items; a link that is both (a song inside an album, a video inside a list) is a single item.
func (p *Parser) Parse(text string) Input {
	text = p.normalizeText(text)
	input := Input{Kind: InputFreeText, Text: text}

	links := p.extractURLs(text)
	if uri := spotifyURIRegex.FindString(text); uri != "" {
		links = append(links, "https://open.spotify.com/"+strings.ReplaceAll(strings.TrimPrefix(uri, "spotify:"), ":", "/"))
	}

	for _, link := range links {
		if ok, provider := musiclink.IsSingleItemLink(link); ok {
			if input.Link == "" {
				input = Input{Kind: InputSingleLink, Text: text, Link: link, Provider: provider}
			}
			continue
		}
		if ok, provider := musiclink.IsCollectionLink(link); ok {
			return Input{Kind: InputCollectionLink, Text: text, Link: link, Provider: provider}
		}
	}

	return input
}

func (p *Parser) normalizeText(text string) string {
	text = strings.TrimSpace(text)
	text = norm.NFKC.String(text)
	return whitespaceRegex.ReplaceAllString(text, " ")
}

func (p *Parser) extractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)
	var cleanURLs []string

	for _, match := range matches {
		cleanURL := p.cleanURL(match)
		if cleanURL != "" {
			cleanURLs = append(cleanURLs, cleanURL)
		}
	}

	return cleanURLs
}

func (p *Parser) cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;)")

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	removed := false
	for _, param := range trackingParams {
		if q.Has(param) {
			q.Del(param)
			removed = true
		}
	}

	// Re-encoding escapes values such as "spotify:track:..." so the query is only rebuilt when it changed.
	if removed {
		u.RawQuery = q.Encode()
	}

	return u.String()
}
