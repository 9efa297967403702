// Package executor runs analysed queries against the active index, either one
// at a time or as a batch that produces a results file.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/tracing"
)

// IndexSource provides the index to search and the analyzer it was built
// with. *indexer.Engine implements it.
type IndexSource interface {
	Current() *index.Index
	Analyzer() *tokenizer.Analyzer
}

type SearchResult struct {
	Query     string             `json:"query"`
	Terms     []string           `json:"terms"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	CacheHit  bool               `json:"cache_hit"`
}

type Searcher struct {
	source  IndexSource
	cache   *cache.QueryCache
	rankCap int
	metrics *metrics.Metrics
	tracker analytics.Tracker
	logger  *slog.Logger
}

// New creates a Searcher. queryCache, m and tracker may be nil.
func New(source IndexSource, rankCap int, queryCache *cache.QueryCache, m *metrics.Metrics, tracker analytics.Tracker) *Searcher {
	if tracker == nil {
		tracker = analytics.Nop
	}
	return &Searcher{
		source:  source,
		cache:   queryCache,
		rankCap: rankCap,
		metrics: m,
		tracker: tracker,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// RankCap is the maximum number of results Search returns.
func (s *Searcher) RankCap() int {
	return s.rankCap
}

// ResetCache drops every cached result. Keys already carry the index
// fingerprint, so this only reclaims space after a rebuild.
func (s *Searcher) ResetCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	hits, misses := s.cache.Stats()
	s.logger.Info("resetting query cache", "hits", hits, "misses", misses)
	return s.cache.Invalidate(ctx)
}

// Search ranks the index against text and returns at most RankCap results.
func (s *Searcher) Search(ctx context.Context, text string) (*SearchResult, error) {
	return s.SearchLimit(ctx, text, s.rankCap)
}

// SearchLimit is Search with an explicit result cap. A non-positive limit
// returns every document with a positive score.
func (s *Searcher) SearchLimit(ctx context.Context, text string, limit int) (*SearchResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := s.source.Current()
	if idx == nil {
		s.observe("error", "miss", start, 0)
		return nil, fmt.Errorf("search: no index loaded")
	}
	plan := parser.Parse(s.source.Analyzer(), text)
	result := &SearchResult{
		Query:   plan.RawQuery,
		Terms:   plan.Terms,
		Results: []ranker.ScoredDoc{},
	}
	if plan.Empty() {
		s.observe("zero_result", "miss", start, 0)
		return result, nil
	}

	compute := func() (*cache.Entry, error) {
		ranked := ranker.Rank(idx, plan.Set)
		return &cache.Entry{
			TotalHits: len(ranked),
			Results:   ranker.Top(ranked, limit),
		}, nil
	}
	var (
		entry *cache.Entry
		hit   bool
		err   error
	)
	if s.cache != nil {
		params := idx.Params()
		entry, hit, err = s.cache.GetOrCompute(ctx, cache.Key{
			Fingerprint: idx.Fingerprint(),
			K1:          params.K1,
			B:           params.B,
			Terms:       plan.Terms,
			RankCap:     limit,
		}, compute)
	} else {
		entry, err = compute()
	}
	if err != nil {
		s.observe("error", "miss", start, 0)
		return nil, fmt.Errorf("ranking query: %w", err)
	}

	result.TotalHits = entry.TotalHits
	result.Results = entry.Results
	result.CacheHit = hit

	resultType := "hit"
	if entry.TotalHits == 0 {
		resultType = "zero_result"
	}
	cacheStatus := "miss"
	if hit {
		cacheStatus = "hit"
	}
	s.observe(resultType, cacheStatus, start, entry.TotalHits)
	s.logger.Debug("query executed",
		"query", text,
		"terms", plan.Terms,
		"total_hits", entry.TotalHits,
		"returned", len(entry.Results),
		"cache_hit", hit,
	)
	return result, nil
}

func (s *Searcher) observe(resultType, cacheStatus string, start time.Time, hits int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	if resultType != "error" {
		s.metrics.SearchResultsCount.Observe(float64(hits))
	}
}

// BatchSummary describes a completed batch run.
type BatchSummary struct {
	Queries     int
	ZeroResults int
	Lines       int
	Duration    time.Duration
}

// RunBatch reads one query per line from r and writes ranked results to w as
// "query-id doc-id rank score" lines, rank 1 first, at most RankCap lines per
// query. Every line is validated before any result is written, so a corrupt
// query file leaves w untouched.
func (s *Searcher) RunBatch(ctx context.Context, r io.Reader, w io.Writer) (BatchSummary, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "batch")
	defer span.End()

	queries, err := parser.ParseQueries(r)
	if err != nil {
		return BatchSummary{}, err
	}

	log := logger.FromContext(ctx)
	bw := bufio.NewWriter(w)
	summary := BatchSummary{Queries: len(queries)}
	for _, q := range queries {
		queryStart := time.Now()
		res, err := s.Search(ctx, q.Text)
		if err != nil {
			return summary, fmt.Errorf("query %s: %w", q.ID, err)
		}
		for i, doc := range res.Results {
			if _, err := fmt.Fprintf(bw, "%s %s %d %s\n", q.ID, doc.DocID, i+1, FormatScore(doc.Score)); err != nil {
				return summary, fmt.Errorf("writing results: %w", err)
			}
			summary.Lines++
		}
		eventType := analytics.EventSearch
		if res.TotalHits == 0 {
			summary.ZeroResults++
			eventType = analytics.EventZeroResult
			log.Info("query retrieved nothing", "query_id", q.ID, "query", q.Text)
		}
		s.tracker.Track(analytics.SearchEvent{
			Type:      eventType,
			QueryID:   q.ID,
			Query:     q.Text,
			Terms:     res.Terms,
			TotalHits: res.TotalHits,
			Returned:  len(res.Results),
			LatencyMs: time.Since(queryStart).Milliseconds(),
			CacheHit:  res.CacheHit,
			Timestamp: time.Now().UTC(),
		})
	}
	if err := bw.Flush(); err != nil {
		return summary, fmt.Errorf("flushing results: %w", err)
	}
	summary.Duration = time.Since(start)
	span.Set("queries", summary.Queries, "lines", summary.Lines)
	s.tracker.Track(analytics.BatchEvent{
		Type:        analytics.EventBatchComplete,
		Queries:     summary.Queries,
		ZeroResults: summary.ZeroResults,
		Lines:       summary.Lines,
		LatencyMs:   summary.Duration.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	})
	log.Info("batch search finished",
		"queries", summary.Queries,
		"zero_results", summary.ZeroResults,
		"lines", summary.Lines,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// FormatScore renders a score with the fewest digits that parse back to the
// same float64.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
