package executor

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/metrics"
)

type staticSource struct {
	idx      *index.Index
	analyzer *tokenizer.Analyzer
}

func (s staticSource) Current() *index.Index { return s.idx }
func (s staticSource) Analyzer() *tokenizer.Analyzer { return s.analyzer }

type recordingTracker struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingTracker) Track(e any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newSource(t *testing.T, docs ...index.Document) staticSource {
	t.Helper()
	a := tokenizer.NewAnalyzer(tokenizer.DefaultStopwords(), tokenizer.Porter)
	idx, err := index.Build(docs, a, index.DefaultParams(), index.BuildOptions{CountStopwords: true})
	require.NoError(t, err)
	return staticSource{idx: idx, analyzer: a}
}

func animals(t *testing.T) staticSource {
	return newSource(t,
		index.Document{ID: "d1", Text: "cat dog"},
		index.Document{ID: "d2", Text: "dog dog fish"},
		index.Document{ID: "d3", Text: "bird"},
		index.Document{ID: "d4", Text: "bird tree"},
		index.Document{ID: "d5", Text: "tree"},
	)
}

func TestSearch_RanksByBM25(t *testing.T) {
	s := New(animals(t), 15, nil, nil, nil)
	res, err := s.Search(context.Background(), "Dogs!")
	require.NoError(t, err)

	assert.Equal(t, []string{"dog"}, res.Terms)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "d2", res.Results[0].DocID)
	assert.Equal(t, "d1", res.Results[1].DocID)
	assert.InDelta(t, 0.554774, res.Results[0].Score, 1e-6)
}

func TestSearch_RankCap(t *testing.T) {
	docs := make([]index.Document, 0, 30)
	for i := 0; i < 30; i++ {
		text := "filler"
		if i%3 == 0 {
			text = strings.Repeat("needle ", i%5+1) + "filler"
		}
		docs = append(docs, index.Document{ID: fmt.Sprintf("doc%02d", i), Text: text})
	}
	s := New(newSource(t, docs...), 4, nil, nil, nil)

	res, err := s.Search(context.Background(), "needle")
	require.NoError(t, err)
	assert.Equal(t, 10, res.TotalHits)
	assert.Len(t, res.Results, 4)

	all, err := s.SearchLimit(context.Background(), "needle", 0)
	require.NoError(t, err)
	assert.Len(t, all.Results, 10)
	assert.Equal(t, all.Results[:4], res.Results)
}

func TestSearch_NothingRetrieved(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := New(animals(t), 15, nil, m, nil)

	for _, q := range []string{"the and of", "unicorn", ""} {
		res, err := s.Search(context.Background(), q)
		require.NoError(t, err, q)
		assert.Empty(t, res.Results, q)
		assert.Equal(t, 0, res.TotalHits, q)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
}

func TestSearch_UsesCache(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	qc, err := cache.New(16, nil, time.Minute, m)
	require.NoError(t, err)
	s := New(animals(t), 15, qc, m, nil)

	first, err := s.Search(context.Background(), "dog")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Search(context.Background(), "dogs")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("memory")))
}

func cachedSearchAllocs(t *testing.T, filler int) float64 {
	t.Helper()
	docs := []index.Document{{ID: "target", Text: "zebra crossing"}}
	for i := 0; i < filler; i++ {
		docs = append(docs, index.Document{ID: fmt.Sprintf("doc-%05d", i), Text: fmt.Sprintf("filler%d common words", i)})
	}
	qc, err := cache.New(16, nil, time.Minute, nil)
	require.NoError(t, err)
	s := New(newSource(t, docs...), 15, qc, nil, nil)
	ctx := context.Background()

	warm, err := s.Search(ctx, "zebra")
	require.NoError(t, err)
	require.Equal(t, 1, warm.TotalHits)

	return testing.AllocsPerRun(20, func() {
		res, err := s.Search(ctx, "zebra")
		if err != nil || !res.CacheHit {
			t.Fatalf("expected a cache hit, got %+v, %v", res, err)
		}
	})
}

func TestSearch_CacheHitCostIndependentOfIndexSize(t *testing.T) {
	small := cachedSearchAllocs(t, 10)
	large := cachedSearchAllocs(t, 5000)
	assert.LessOrEqual(t, large, small+10, "cache hit allocations grew with the index: %v vs %v", large, small)
}

func TestResetCache(t *testing.T) {
	qc, err := cache.New(16, nil, time.Minute, nil)
	require.NoError(t, err)
	s := New(animals(t), 15, qc, nil, nil)

	_, err = s.Search(context.Background(), "dog")
	require.NoError(t, err)
	require.NoError(t, s.ResetCache(context.Background()))

	again, err := s.Search(context.Background(), "dog")
	require.NoError(t, err)
	assert.False(t, again.CacheHit)

	require.NoError(t, New(animals(t), 15, nil, nil, nil).ResetCache(context.Background()))
}

func TestSearch_NoIndex(t *testing.T) {
	s := New(staticSource{analyzer: tokenizer.NewAnalyzer(nil, nil)}, 15, nil, nil, nil)
	_, err := s.Search(context.Background(), "dog")
	assert.Error(t, err)
}

func TestSearch_CancelledContext(t *testing.T) {
	s := New(animals(t), 15, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Search(ctx, "dog")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunBatch_WritesRankedLines(t *testing.T) {
	tr := &recordingTracker{}
	s := New(animals(t), 15, nil, nil, tr)
	in := "1 dog\n\n2 unicorn\n3 tree bird\n"
	var out bytes.Buffer

	summary, err := s.RunBatch(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Queries)
	assert.Equal(t, 1, summary.ZeroResults)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, summary.Lines, len(lines))
	require.Len(t, lines, 5)

	fields := strings.Fields(lines[0])
	assert.Equal(t, []string{"1", "d2", "1"}, fields[:3])
	score, err := strconv.ParseFloat(fields[3], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.554774, score, 1e-6)
	assert.True(t, strings.HasPrefix(lines[1], "1 d1 2 "))
	for i, line := range lines[2:] {
		f := strings.Fields(line)
		assert.Equal(t, "3", f[0])
		assert.Equal(t, strconv.Itoa(i+1), f[2])
	}

	// One event per query plus the batch summary.
	require.Len(t, tr.events, 4)
	assert.Equal(t, analytics.EventZeroResult, tr.events[1].(analytics.SearchEvent).Type)
	assert.Equal(t, analytics.EventBatchComplete, tr.events[3].(analytics.BatchEvent).Type)
}

func TestRunBatch_CorruptQueryFileWritesNothing(t *testing.T) {
	s := New(animals(t), 15, nil, nil, nil)
	var out bytes.Buffer
	_, err := s.RunBatch(context.Background(), strings.NewReader("1 dog\nmissing id\n"), &out)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedQuery))
	assert.Zero(t, out.Len())
}

func TestFormatScore(t *testing.T) {
	for _, v := range []float64{0.554774, 1.0, 0.1 + 0.2, 12.5, 1e-7} {
		got, err := strconv.ParseFloat(FormatScore(v), 64)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.Equal(t, "1", FormatScore(1.0))
	assert.Equal(t, "0.5", FormatScore(0.5))
}

func benchmarkSource(b *testing.B) staticSource {
	b.Helper()
	words := []string{"market", "stocks", "rates", "bank", "inflation", "growth", "trade", "oil"}
	docs := make([]index.Document, 2000)
	for i := range docs {
		docs[i] = index.Document{
			ID:   fmt.Sprintf("doc-%04d", i),
			Text: fmt.Sprintf("%s %s report %s", words[i%len(words)], words[(i/3)%len(words)], words[(i/7)%len(words)]),
		}
	}
	a := tokenizer.NewAnalyzer(tokenizer.DefaultStopwords(), tokenizer.Porter)
	idx, err := index.Build(docs, a, index.DefaultParams(), index.BuildOptions{CountStopwords: true})
	if err != nil {
		b.Fatal(err)
	}
	return staticSource{idx: idx, analyzer: a}
}

func BenchmarkSearch(b *testing.B) {
	src := benchmarkSource(b)
	qc, err := cache.New(128, nil, 0, nil)
	if err != nil {
		b.Fatal(err)
	}
	cases := []struct {
		name     string
		searcher *Searcher
	}{
		{"uncached", New(src, 15, nil, nil, nil)},
		{"cached", New(src, 15, qc, nil, nil)},
	}
	ctx := context.Background()
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := c.searcher.Search(ctx, "oil market inflation"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
