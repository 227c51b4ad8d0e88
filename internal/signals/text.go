package signals

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks folds accented characters to ASCII before tokenizing, so
// "café" and "cafe" count as the same term.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases a title, strips punctuation and diacritics, and
// collapses runs of whitespace.
func Normalize(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize normalizes and splits a title into words, dropping tokens of a
// single character.
func Tokenize(s string) []string {
	fields := strings.Fields(Normalize(s))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// NGrams returns all n-length word windows joined by spaces.
func NGrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}

// stopWords are excluded from phrase extraction, not from similarity.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "is", "are", "was", "were", "be", "been",
		"being", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "shall", "can", "need", "dare",
		"it", "its", "this", "that", "these", "those", "i", "you", "he",
		"she", "we", "they", "me", "him", "her", "us", "them", "my", "your",
		"his", "our", "their", "what", "which", "who", "whom", "when", "where",
		"why", "how", "all", "each", "both", "few", "more", "most", "other",
		"some", "such", "no", "nor", "not", "only", "own", "same", "so",
		"than", "too", "very", "just", "as", "up", "about", "into", "through",
		"during", "before", "after", "above", "below", "between", "out", "off",
		"over", "under", "again", "then", "once", "here", "there", "any", "am",
	} {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether a token is in the fixed stop-word set.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
