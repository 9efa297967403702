package tokenizer

import (
	"fmt"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/kljensen/snowball/english"
)

// Stemmer maps a lower-cased word to its canonical stem. Implementations must
// be deterministic and free of side effects.
type Stemmer interface {
	Stem(word string) string
}

// StemmerFunc adapts a plain function to the Stemmer interface.
type StemmerFunc func(word string) string

func (f StemmerFunc) Stem(word string) string { return f(word) }

var (
	// Identity leaves words unchanged.
	Identity Stemmer = StemmerFunc(func(word string) string { return word })

	// Porter is the classic Porter (1980) algorithm.
	Porter Stemmer = StemmerFunc(porterstemmer.StemString)

	// Snowball is the Porter2 English algorithm.
	Snowball Stemmer = StemmerFunc(func(word string) string {
		return english.Stem(word, true)
	})
)

// NewStemmer returns the stemmer registered under name: "porter", "snowball"
// or "none".
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case "porter", "":
		return Porter, nil
	case "snowball":
		return Snowball, nil
	case "none":
		return Identity, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}
