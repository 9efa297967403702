// Package tokenizer provides text normalisation for the search engine.
// It strips a fixed set of punctuation characters, splits on whitespace,
// lower-cases, removes stop-words, and maps each surviving word to its stem
// through an injected Stemmer.
package tokenizer

import (
	"strings"
)

// noise lists the characters removed from text before splitting. They are
// deleted, not replaced with whitespace, so "don't." becomes "don't" and
// "a/b" becomes "ab".
const noise = `,.()!?";:[]{}<>\/`

// Token is a single normalised term.
type Token struct {
	Term string
}

// Analyzer turns raw text into stems. It is immutable after construction and
// safe for concurrent use.
type Analyzer struct {
	stopwords StopwordSet
	stemmer   Stemmer
}

// NewAnalyzer returns an Analyzer using the given stop-word set and stemmer.
// A nil stemmer leaves words unchanged.
func NewAnalyzer(stopwords StopwordSet, stemmer Stemmer) *Analyzer {
	if stopwords == nil {
		stopwords = StopwordSet{}
	}
	if stemmer == nil {
		stemmer = Identity
	}
	return &Analyzer{
		stopwords: stopwords,
		stemmer:   stemmer,
	}
}

// Fields strips noise characters and splits text on whitespace. The returned
// words keep their original case.
func Fields(text string) []string {
	stripped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(noise, r) {
			return -1
		}
		return r
	}, text)
	return strings.Fields(stripped)
}

// Normalize lower-cases a single raw word, drops it if it is a stop-word, and
// otherwise returns its stem.
func (a *Analyzer) Normalize(word string) (string, bool) {
	word = strings.ToLower(word)
	if a.stopwords.Contains(word) {
		return "", false
	}
	stemmed := a.stemmer.Stem(word)
	if stemmed == "" {
		return "", false
	}
	return stemmed, true
}

// Tokenize breaks text into stems with stop-words removed. Empty input yields
// an empty slice.
func (a *Analyzer) Tokenize(text string) []Token {
	words := Fields(text)
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		stemmed, ok := a.Normalize(word)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{Term: stemmed})
	}
	return tokens
}

// Terms returns the distinct stems of text. Query scoring sums each unique
// stem once, so repeated query words collapse here.
func (a *Analyzer) Terms(text string) map[string]struct{} {
	tokens := a.Tokenize(text)
	terms := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		terms[tok.Term] = struct{}{}
	}
	return terms
}
