package tokenizer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// nonAlphanumericRegex matches sequences of characters that are neither letters nor digits.
// Unicode classes keep accented equipment names ("Fendt Vario Gödöllő") in one token.
var nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeKey lowercases and trims a key so index writes and lookups agree on case.
func NormalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Tokenize converts a string into a slice of lowercase tokens split on anything
// that is not a letter or a digit.
func Tokenize(text string) []string {
	lowerText := strings.ToLower(text)
	split := nonAlphanumericRegex.Split(lowerText, -1)

	tokens := make([]string, 0) // Initialize as empty slice, not nil
	for _, s := range split {
		if s != "" {
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// Keywords returns the distinct tokens of text that are at least minLength runes long,
// in order of first appearance.
func Keywords(text string, minLength int) []string {
	tokens := Tokenize(text)

	result := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if utf8.RuneCountInString(token) < minLength {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}
