package artifacts

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// tokenPattern keeps runs of two or more word characters, the default
// token pattern of the vectorizer the artifacts were fitted with.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// analyzer turns a document into the terms counted by the vectorizer:
// preprocess → tokenize → drop stop words → n-grams.
type analyzer struct {
	lowercase    bool
	stripAccents string // "", "unicode", "ascii"
	stopWords    map[string]bool
	minN, maxN   int
}

func (a *analyzer) analyze(doc string) []string {
	switch a.stripAccents {
	case "unicode":
		doc = stripAccents(doc)
	case "ascii":
		doc = stripToASCII(doc)
	}
	if a.lowercase {
		doc = strings.ToLower(doc)
	}

	tokens := tokenPattern.FindAllString(doc, -1)
	if len(a.stopWords) > 0 {
		kept := tokens[:0]
		for _, tok := range tokens {
			if !a.stopWords[tok] {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	}
	return wordNgrams(tokens, a.minN, a.maxN)
}

// wordNgrams expands tokens into space-joined n-grams for n in [minN, maxN].
func wordNgrams(tokens []string, minN, maxN int) []string {
	if minN == 1 && maxN == 1 {
		return tokens
	}
	var out []string
	if minN == 1 {
		out = append(out, tokens...)
		minN = 2
	}
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// stripAccents removes combining marks after NFKD decomposition.
func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFKD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripToASCII decomposes and then drops every non-ASCII rune.
func stripToASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFKD.String(text) {
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
