package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// StopwordSet is a fixed set of lower-cased words excluded from indexing and
// queries.
type StopwordSet map[string]struct{}

// Contains reports whether word (already lower-cased) is a stop-word.
func (s StopwordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

var defaultStopwords = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
}

// DefaultStopwords returns the built-in English stop-word list used when no
// stop-word file is configured.
func DefaultStopwords() StopwordSet {
	set := make(StopwordSet, len(defaultStopwords))
	for _, w := range defaultStopwords {
		set[w] = struct{}{}
	}
	return set
}

// LoadStopwords reads one stop-word per line. Blank lines and lines starting
// with '#' are ignored; words are trimmed and lower-cased.
func LoadStopwords(r io.Reader) (StopwordSet, error) {
	set := make(StopwordSet)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		set[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopwords: %w", err)
	}
	return set, nil
}

// LoadStopwordsFile loads a stop-word file, or returns DefaultStopwords when
// path is empty.
func LoadStopwordsFile(path string) (StopwordSet, error) {
	if path == "" {
		return DefaultStopwords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords file: %w", err)
	}
	defer f.Close()
	return LoadStopwords(f)
}
