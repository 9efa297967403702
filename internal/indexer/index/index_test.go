package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

func plainAnalyzer() *tokenizer.Analyzer {
	return tokenizer.NewAnalyzer(nil, tokenizer.Identity)
}

func TestBuild_PostingsAndLengths(t *testing.T) {
	docs := []Document{
		{ID: "d1", Text: "cat dog"},
		{ID: "d2", Text: "dog dog fish"},
	}
	idx, err := Build(docs, plainAnalyzer(), DefaultParams(), BuildOptions{CountStopwords: true})
	require.NoError(t, err)

	assert.Equal(t, 2, idx.DocCount())
	assert.Equal(t, 2, idx.DocLength("d1"))
	assert.Equal(t, 3, idx.DocLength("d2"))
	assert.Equal(t, 2.5, idx.AvgDocLength())

	assert.Equal(t, 1, idx.TermFrequency("dog", "d1"))
	assert.Equal(t, 2, idx.TermFrequency("dog", "d2"))
	assert.Equal(t, 0, idx.TermFrequency("fish", "d1"))
	assert.Equal(t, 2, idx.DocFrequency("dog"))
	assert.Equal(t, 1, idx.DocFrequency("fish"))
	assert.True(t, idx.Contains("cat"))
	assert.False(t, idx.Contains("bird"))
	assert.Equal(t, 3, idx.TermCount())
	assert.Equal(t, []string{"d1", "d2"}, idx.DocIDs())
	assert.Equal(t, DefaultParams(), idx.Params())
}

func TestBuild_LengthCountingModes(t *testing.T) {
	stop := tokenizer.StopwordSet{"the": {}}
	analyzer := tokenizer.NewAnalyzer(stop, tokenizer.Identity)
	docs := []Document{{ID: "d1", Text: "the cat, the dog."}}

	withStop, err := Build(docs, analyzer, DefaultParams(), BuildOptions{CountStopwords: true})
	require.NoError(t, err)
	assert.Equal(t, 4, withStop.DocLength("d1"))

	withoutStop, err := Build(docs, analyzer, DefaultParams(), BuildOptions{CountStopwords: false})
	require.NoError(t, err)
	assert.Equal(t, 2, withoutStop.DocLength("d1"))

	// Stop-words never become postings in either mode.
	assert.False(t, withStop.Contains("the"))
	assert.False(t, withoutStop.Contains("the"))
}

func TestBuild_ZeroDocumentsIsDegenerate(t *testing.T) {
	_, err := Build(nil, plainAnalyzer(), DefaultParams(), BuildOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDegenerateCorpus)
}

func TestBuild_DuplicateDocumentID(t *testing.T) {
	docs := []Document{{ID: "d1", Text: "a"}, {ID: "d1", Text: "b"}}
	_, err := Build(docs, plainAnalyzer(), DefaultParams(), BuildOptions{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBuild_KeepsConfiguredParams(t *testing.T) {
	p := Params{K1: 1.6, B: 0.3}
	idx, err := Build([]Document{{ID: "d", Text: "x"}}, plainAnalyzer(), p, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, p, idx.Params())
}

func TestSearch_SortedByDocID(t *testing.T) {
	docs := []Document{
		{ID: "c", Text: "term"},
		{ID: "a", Text: "term term"},
		{ID: "b", Text: "other"},
	}
	idx, err := Build(docs, plainAnalyzer(), DefaultParams(), BuildOptions{CountStopwords: true})
	require.NoError(t, err)

	got := idx.Search("term")
	assert.Equal(t, PostingList{
		{DocID: "a", Frequency: 2},
		{DocID: "c", Frequency: 1},
	}, got)
	assert.Nil(t, idx.Search("missing"))
}

func TestNew_ValidatesPersistedParts(t *testing.T) {
	lens := map[string]int{"d1": 2, "d2": 3}
	good := map[string]map[string]int{"dog": {"d1": 1, "d2": 2}}

	idx, err := New(DefaultParams(), 2.5, lens, good)
	require.NoError(t, err)
	assert.Equal(t, 2.5, idx.AvgDocLength())

	tests := []struct {
		name     string
		avg      float64
		lens     map[string]int
		postings map[string]map[string]int
		want     error
	}{
		{"no documents", 0, map[string]int{}, nil, apperrors.ErrDegenerateCorpus},
		{"stale average", 3.0, lens, good, apperrors.ErrCorruptSnapshot},
		{"zero frequency", 2.5, lens, map[string]map[string]int{"dog": {"d1": 0}}, apperrors.ErrCorruptSnapshot},
		{"unknown document", 2.5, lens, map[string]map[string]int{"dog": {"d9": 1}}, apperrors.ErrCorruptSnapshot},
		{"empty posting list", 2.5, lens, map[string]map[string]int{"dog": {}}, apperrors.ErrCorruptSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(DefaultParams(), tt.avg, tt.lens, tt.postings)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWithParams_SharesPostings(t *testing.T) {
	idx, err := Build([]Document{{ID: "d", Text: "x y"}}, plainAnalyzer(), DefaultParams(), BuildOptions{CountStopwords: true})
	require.NoError(t, err)

	view := idx.WithParams(Params{K1: 2, B: 0})
	assert.Equal(t, Params{K1: 2, B: 0}, view.Params())
	assert.Equal(t, DefaultParams(), idx.Params())
	assert.Equal(t, idx.TermFrequency("x", "d"), view.TermFrequency("x", "d"))
}

func TestFingerprint_ContentOnly(t *testing.T) {
	docs := []Document{{ID: "d1", Text: "cat dog"}, {ID: "d2", Text: "dog fish"}}
	a, err := Build(docs, plainAnalyzer(), DefaultParams(), BuildOptions{CountStopwords: true})
	require.NoError(t, err)
	b, err := Build([]Document{docs[1], docs[0]}, plainAnalyzer(), DefaultParams(), BuildOptions{CountStopwords: true})
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)
	assert.Equal(t, a.Fingerprint(), a.WithParams(Params{K1: 1.2, B: 0.75}).Fingerprint())

	c, err := Build([]Document{docs[0], {ID: "d2", Text: "dog bird"}}, plainAnalyzer(), DefaultParams(), BuildOptions{CountStopwords: true})
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	restored, err := New(Params{K1: 2, B: 0}, a.AvgDocLength(), a.DocLengths(), map[string]map[string]int{
		"cat": {"d1": 1}, "dog": {"d1": 1, "d2": 1}, "fish": {"d2": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), restored.Fingerprint())
}

func BenchmarkBuild(b *testing.B) {
	docs := make([]Document, 1000)
	for i := range docs {
		docs[i] = Document{
			ID:   fmt.Sprintf("doc-%d", i),
			Text: "search engine with distributed indexing and query processing",
		}
	}
	analyzer := tokenizer.NewAnalyzer(tokenizer.DefaultStopwords(), tokenizer.Porter)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Build(docs, analyzer, DefaultParams(), BuildOptions{CountStopwords: true}); err != nil {
			b.Fatal(err)
		}
	}
}
