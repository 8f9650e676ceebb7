// Package moderation masks offensive tokens in user-submitted text.
// Matching is case-sensitive against a fixed dictionary; matched tokens
// are replaced with an equal-length run of '*' so the text keeps its
// shape. The filter is best-effort, not a correctness guarantee.
package moderation

import (
	"strings"
	"unicode"
)

var defaultDictionary = map[string]struct{}{
	"arse":     {},
	"arsehole": {},
	"ass":      {},
	"asshole":  {},
	"bastard":  {},
	"bitch":    {},
	"bollocks": {},
	"crap":     {},
	"cunt":     {},
	"damn":     {},
	"dick":     {},
	"fuck":     {},
	"fucker":   {},
	"fucking":  {},
	"piss":     {},
	"prick":    {},
	"shit":     {},
	"shite":    {},
	"twat":     {},
	"wanker":   {},
}

// Filter holds a censoring dictionary. The zero value is unusable; use
// NewFilter.
type Filter struct {
	words map[string]struct{}
}

func NewFilter() *Filter {
	return &Filter{words: defaultDictionary}
}

// NewFilterWithWords builds a filter over a custom dictionary.
func NewFilterWithWords(words []string) *Filter {
	dict := make(map[string]struct{}, len(words))
	for _, w := range words {
		dict[w] = struct{}{}
	}
	return &Filter{words: dict}
}

// Censor replaces every dictionary token in text with asterisks of the
// same rune length. Tokenization is word-boundary based: maximal runs of
// letters and digits form tokens, everything else passes through.
func (f *Filter) Censor(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	var token strings.Builder
	flush := func() {
		if token.Len() == 0 {
			return
		}
		word := token.String()
		if _, bad := f.words[word]; bad {
			out.WriteString(strings.Repeat("*", len([]rune(word))))
		} else {
			out.WriteString(word)
		}
		token.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			token.WriteRune(r)
			continue
		}
		flush()
		out.WriteRune(r)
	}
	flush()

	return out.String()
}
