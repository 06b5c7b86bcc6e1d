package fantasy

import (
	"regexp"
	"strings"
)

// nonToken matches everything that is neither a letter, a digit, nor
// whitespace. Matches are deleted outright rather than replaced with a
// space, so "Marie-Philip" collapses to "mariephilip" and "O'Reilly"
// to "oreilly". Hyphenated names therefore normalize to a single
// token; the tests pin that down.
var nonToken = regexp.MustCompile(`[^\p{L}\p{N}\p{Z}\s]+`)

// TokenSet is a normalized player name: the set of its lowercased
// tokens with punctuation removed.
type TokenSet map[string]struct{}

// NameTokens normalizes a free-text player name into its token set.
// Lowercase first, delete punctuation, then split on whitespace, which
// is the sole delimiter. The result contains no empty strings and no
// duplicates, and the function is idempotent over the joined form of
// its own output.
func NameTokens(name string) TokenSet {
	cleaned := nonToken.ReplaceAllString(strings.ToLower(name), "")
	fields := strings.Fields(cleaned)
	set := make(TokenSet, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

// Overlap returns the number of tokens the two sets share.
func (s TokenSet) Overlap(other TokenSet) int {
	shared := 0
	for token := range s {
		if _, ok := other[token]; ok {
			shared++
		}
	}
	return shared
}
