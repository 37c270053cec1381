// Package hashtags derives social-media hashtag suggestions from captions.
package hashtags

import (
	"strings"
	"unicode"
)

// MaxHashtags is the cap on suggestions per caption
const MaxHashtags = 5

// trailingPunct is stripped from the end of each token before the letter check
const trailingPunct = ",.!?"

// Suggest returns up to MaxHashtags lowercase hashtags taken from the caption words in order.
// Tokens that still contain digits or punctuation after the trailing strip are dropped.
func Suggest(caption string) []string {
	tags := make([]string, 0, MaxHashtags)
	for _, word := range strings.Fields(strings.ToLower(caption)) {
		word = strings.TrimRight(word, trailingPunct)
		if !isAlpha(word) {
			continue
		}
		tags = append(tags, "#"+word)
		if len(tags) == MaxHashtags {
			break
		}
	}
	return tags
}

// Render formats a caption and its hashtags the way the interactive front end shows them
func Render(caption string, tags []string) string {
	return caption + "\n\nSuggested Hashtags: " + strings.Join(tags, " ")
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
