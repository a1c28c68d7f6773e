package literature

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RecencyFilter limits an E-utilities search to the last five years of
// publication dates.
const RecencyFilter = `("last 5 years"[dp])`

// Labels a language model tends to put in front of a generated query.
// Longer labels come first so "Optimized research query:" is not cut short
// by "Research query:".
var queryPreambles = []string{
	"here is the optimized research query:",
	"here is the optimized query:",
	"optimized research query:",
	"refined research query:",
	"new research query:",
	"optimized query:",
	"refined query:",
	"research query:",
	"query:",
}

var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'“':  '”',
	'‘':  '’',
}

var bracketAnnotation = regexp.MustCompile(`\[[^\]]*\]`)

// CleanQuery strips leading preamble labels and one layer of surrounding
// quotes from a generated query. A preamble inside the quotes is stripped
// too, so cleaning an already cleaned query changes nothing.
func CleanQuery(q string) string {
	q = stripPreambles(strings.TrimSpace(q))
	if unquoted := stripQuotes(q); unquoted != q {
		q = stripPreambles(unquoted)
	}
	return q
}

func stripPreambles(q string) string {
	for {
		stripped := stripPreamble(q)
		if stripped == q {
			return q
		}
		q = stripped
	}
}

func stripPreamble(q string) string {
	for _, p := range queryPreambles {
		if len(q) >= len(p) && strings.EqualFold(q[:len(p)], p) {
			return strings.TrimSpace(q[len(p):])
		}
	}
	return q
}

func stripQuotes(q string) string {
	first, size := utf8.DecodeRuneInString(q)
	closing, ok := quotePairs[first]
	if !ok || utf8.RuneCountInString(q) < 2 {
		return q
	}
	last, lastSize := utf8.DecodeLastRuneInString(q)
	if last != closing {
		return q
	}
	return strings.TrimSpace(q[size : len(q)-lastSize])
}

// ExpandQuery turns a cleaned free-text query into a recall-oriented
// E-utilities term: every word, every adjacent two-word phrase and every
// adjacent three-word phrase OR-ed together, restricted by RecencyFilter.
// A query without words expands to "".
func ExpandQuery(q string) string {
	words := queryWords(q)
	if len(words) == 0 {
		return ""
	}

	terms := make([]string, 0, 3*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, `"`+words[i]+" "+words[i+1]+`"`)
	}
	for i := 0; i+2 < len(words); i++ {
		terms = append(terms, `"`+words[i]+" "+words[i+1]+" "+words[i+2]+`"`)
	}

	return "(" + strings.Join(terms, " OR ") + ") AND " + RecencyFilter
}

// queryWords drops bracketed field tags and returns the remaining words
// with surrounding punctuation trimmed.
func queryWords(q string) []string {
	q = bracketAnnotation.ReplaceAllString(q, " ")

	var words []string
	for _, f := range strings.Fields(q) {
		w := strings.TrimFunc(f, unicode.IsPunct)
		w = strings.ReplaceAll(w, `"`, "")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
