// Package extract infers qualification fields from a single lead utterance.
//
// Three sources exist: keyword heuristics (Heuristic), a parser that reads the
// utterance as a direct answer to the field just asked (Prompted), and an
// optional language-model extractor (LLMExtractor). Each returns a partial
// model.Draft; the dialogue manager merges them in a fixed order.
package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text, trims it and folds diacritics so that keyword
// patterns written in plain ASCII ("spater", "grosse") match umlaut spellings.
func Normalize(text string) string {
	folded := strings.ToLower(strings.TrimSpace(text))
	folded = strings.ReplaceAll(folded, "ß", "ss")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, folded)
	if err != nil {
		return folded
	}
	return out
}
