// Package fuzzy folds free-text music queries so trivially different spellings share one key.
package fuzzy

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// QueryKey folds compatibility forms, case and spacing only. Punctuation is kept: search
// operators such as "-live" or "C++" change what a query matches.
func (n *Normalizer) QueryKey(query string) string {
	query = norm.NFKC.String(query)
	query = strings.Join(strings.Fields(query), " ")
	return strings.ToLower(query)
}
