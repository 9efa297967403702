package shell

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/ui"
)

type fakeSearcher struct {
	results map[string][]ranker.ScoredDoc
	err     error
	queries []string
	limits  []int
}

func (f *fakeSearcher) SearchLimit(_ context.Context, text string, limit int) (*executor.SearchResult, error) {
	f.queries = append(f.queries, text)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	all := f.results[text]
	page := all
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return &executor.SearchResult{Query: text, TotalHits: len(all), Results: page}, nil
}

type recordingTracker struct{ events []any }

func (r *recordingTracker) Track(e any) { r.events = append(r.events, e) }

func run(t *testing.T, s Searcher, input string, pageSize int, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithStyles(ui.NoColorStyles())}, opts...)
	sh := New(s, strings.NewReader(input), &out, pageSize, opts...)
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestRun_PrintsPageOfResults(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]ranker.ScoredDoc{
		"dog": {{DocID: "d2", Score: 0.5}, {DocID: "d1", Score: 0.25}, {DocID: "d7", Score: 0.125}},
	}}
	out := run(t, fs, "dog\nQUIT\n", 2)

	assert.Contains(t, out, "Results for query [ dog ]\n1 d2 0.5\n2 d1 0.25\n")
	assert.NotContains(t, out, "d7")
	assert.Contains(t, out, "showing 2 of 3 matching documents")
	assert.Contains(t, out, "Quitting...")
	assert.Equal(t, []int{2}, fs.limits)
}

func TestRun_NothingRetrieved(t *testing.T) {
	out := run(t, &fakeSearcher{}, "unicorn\n", 15)
	assert.Contains(t, out, "Results for query [ unicorn ]\nNothing is retrieved!\n")
}

func TestRun_SkipsBlankLinesAndStopsAtQuit(t *testing.T) {
	fs := &fakeSearcher{}
	run(t, fs, "\n   \ncat\nQUIT\nnever\n", 15)
	assert.Equal(t, []string{"cat"}, fs.queries)
}

func TestRun_EndOfInput(t *testing.T) {
	fs := &fakeSearcher{}
	out := run(t, fs, "cat", 15)
	assert.Equal(t, []string{"cat"}, fs.queries)
	assert.Equal(t, 2, strings.Count(out, "Enter Query:"))
	assert.NotContains(t, out, "Quitting")
}

func TestRun_SearchErrorKeepsLooping(t *testing.T) {
	fs := &fakeSearcher{err: errors.New("search: no index loaded")}
	out := run(t, fs, "a\nb\n", 15)
	assert.Equal(t, 2, strings.Count(out, "Error: search: no index loaded"))
	assert.Len(t, fs.queries, 2)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sh := New(&fakeSearcher{}, strings.NewReader("dog\n"), &bytes.Buffer{}, 15)
	assert.ErrorIs(t, sh.Run(ctx), context.Canceled)
}

func TestRun_TracksQueries(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]ranker.ScoredDoc{
		"dog": {{DocID: "d2", Score: 0.5}},
	}}
	tr := &recordingTracker{}
	run(t, fs, "dog\nfish\n", 15, WithTracker(tr))

	require.Len(t, tr.events, 2)
	first := tr.events[0].(analytics.SearchEvent)
	assert.Equal(t, analytics.EventSearch, first.Type)
	assert.Equal(t, 1, first.Returned)
	second := tr.events[1].(analytics.SearchEvent)
	assert.Equal(t, analytics.EventZeroResult, second.Type)
	assert.Equal(t, "fish", second.Query)
}
