package textutil

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const maxQueryRunes = 200

var strictPolicy = bluemonday.StrictPolicy()

// NormalizeQuery strips markup from a user supplied search query, applies NFKC
// normalisation, and collapses whitespace. The boolean is false when nothing searchable remains.
func NormalizeQuery(raw string) (string, bool) {
	cleaned := html.UnescapeString(strictPolicy.Sanitize(raw))
	cleaned = norm.NFKC.String(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if runes := []rune(cleaned); len(runes) > maxQueryRunes {
		cleaned = strings.TrimSpace(string(runes[:maxQueryRunes]))
	}
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// Fold returns the trimmed, case-folded, NFKC normalised form used for comparisons. A Caser holds
// state and is not safe for concurrent use, so each call builds its own.
func Fold(value string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(value)))
}

// Tokens splits text into distinct folded word tokens, preserving first-seen order.
func Tokens(text string) []string {
	fields := strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, "-")
		if field == "" {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}
