package index

import (
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

// BuildOptions tunes how document lengths are counted.
type BuildOptions struct {
	// CountStopwords counts every whitespace token left after punctuation
	// stripping, stop-words included. When false only tokens that survive
	// stop-word removal contribute to a document's length.
	CountStopwords bool
}

// Builder accumulates documents for a single full build. It is not safe for
// concurrent use.
type Builder struct {
	analyzer *tokenizer.Analyzer
	params   Params
	opts     BuildOptions
	docLens  map[string]int
	postings map[string]map[string]int
}

func NewBuilder(analyzer *tokenizer.Analyzer, params Params, opts BuildOptions) *Builder {
	return &Builder{
		analyzer: analyzer,
		params:   params,
		opts:     opts,
		docLens:  make(map[string]int),
		postings: make(map[string]map[string]int),
	}
}

// AddDocument tokenises text and adds its postings. Document ids must be
// unique within a build.
func (b *Builder) AddDocument(docID string, text string) error {
	if _, exists := b.docLens[docID]; exists {
		return apperrors.Newf(apperrors.ErrInvalidInput, "duplicate document id %q", docID)
	}
	words := tokenizer.Fields(text)
	length := 0
	if b.opts.CountStopwords {
		length = len(words)
	}
	for _, word := range words {
		term, ok := b.analyzer.Normalize(word)
		if !ok {
			continue
		}
		if !b.opts.CountStopwords {
			length++
		}
		docs, exists := b.postings[term]
		if !exists {
			docs = make(map[string]int)
			b.postings[term] = docs
		}
		docs[docID]++
	}
	b.docLens[docID] = length
	return nil
}

func (b *Builder) DocCount() int {
	return len(b.docLens)
}

// Build computes the average document length and returns the finished index.
// An empty corpus is an error: no average exists.
func (b *Builder) Build() (*Index, error) {
	if len(b.docLens) == 0 {
		return nil, apperrors.New(apperrors.ErrDegenerateCorpus, "cannot build an index from zero documents")
	}
	idx := newIndex(b.params, averageLength(b.docLens), b.docLens, b.postings)
	b.docLens = make(map[string]int)
	b.postings = make(map[string]map[string]int)
	return idx, nil
}

// Build indexes docs in order with a fresh Builder.
func Build(docs []Document, analyzer *tokenizer.Analyzer, params Params, opts BuildOptions) (*Index, error) {
	b := NewBuilder(analyzer, params, opts)
	for _, doc := range docs {
		if err := b.AddDocument(doc.ID, doc.Text); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
