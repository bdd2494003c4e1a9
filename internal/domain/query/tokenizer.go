// Package query normalizes raw search input into a canonical,
// attack-resistant form before it reaches expansion and execution.
package query

import (
	"strings"
	"unicode"
)

// MaxTokenLen caps a single token; over-length tokens are truncated, not dropped.
const MaxTokenLen = 50

// Tokenize splits raw query text into ordered tokens. Splitting happens on
// whitespace and list separators, then on letter-script transitions, so a
// Latin run glued to a non-Latin run becomes two tokens. Digit-to-script
// boundaries do not split: numeric qualifiers stay attached to their unit
// word. Control and zero-width characters are stripped from every token.
func Tokenize(raw string) []string {
	var tokens []string
	for _, chunk := range splitSeparators(raw) {
		for _, run := range splitScriptRuns(chunk) {
			tok := strings.TrimSpace(stripInvisible(run))
			if tok == "" {
				continue
			}
			tokens = append(tokens, truncateRunes(tok, MaxTokenLen))
		}
	}
	return tokens
}

func splitSeparators(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})
}

// splitScriptRuns breaks a chunk where a letter of one script directly
// follows a letter of another. Digits and symbols never trigger a split and
// do not reset the current run's script.
func splitScriptRuns(chunk string) []string {
	var runs []string
	var cur []rune
	lastScript := ""

	for _, r := range chunk {
		if unicode.IsLetter(r) {
			sc := scriptOf(r)
			if lastScript != "" && sc != lastScript && len(cur) > 0 {
				runs = append(runs, string(cur))
				cur = cur[:0]
			}
			lastScript = sc
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		runs = append(runs, string(cur))
	}
	return runs
}

var scriptRanges = []struct {
	name  string
	table *unicode.RangeTable
}{
	{"latin", unicode.Latin},
	{"cyrillic", unicode.Cyrillic},
	{"greek", unicode.Greek},
	{"han", unicode.Han},
	{"hangul", unicode.Hangul},
	{"hiragana", unicode.Hiragana},
	{"katakana", unicode.Katakana},
	{"arabic", unicode.Arabic},
	{"hebrew", unicode.Hebrew},
	{"devanagari", unicode.Devanagari},
	{"thai", unicode.Thai},
}

func scriptOf(r rune) string {
	for _, s := range scriptRanges {
		if unicode.Is(s.table, r) {
			return s.name
		}
	}
	return "other"
}

// zeroWidth covers the invisible characters abused for token smuggling.
var zeroWidth = map[rune]struct{}{
	'­': {}, // soft hyphen
	'​': {}, // zero width space
	'‌': {}, // zero width non-joiner
	'‍': {}, // zero width joiner
	'‎': {}, // left-to-right mark
	'‏': {}, // right-to-left mark
	'⁠': {}, // word joiner
	'\uFEFF': {}, // zero width no-break space
}

func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		if _, ok := zeroWidth[r]; ok {
			return -1
		}
		return r
	}, s)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
