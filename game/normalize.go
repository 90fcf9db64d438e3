package game

import (
	"regexp"
	"strings"
)

var (
	leadingArticleRe = regexp.MustCompile(`^(a|an|the)\s+`)
	punctuationRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// NormalizeGuess canonicalizes a player guess for matching: lowercase, trim,
// drop one leading article, strip punctuation and collapse whitespace.
// Applying it twice yields the same result as applying it once.
func NormalizeGuess(guess string) string {
	s := strings.ToLower(strings.TrimSpace(guess))
	s = leadingArticleRe.ReplaceAllString(s, "")
	s = punctuationRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
