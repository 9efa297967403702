package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/tracing"
)

// Engine owns the active index: it loads the persisted snapshot, rebuilds it
// from the documents directory when the snapshot is missing or corrupt, and
// publishes the result for concurrent readers.
type Engine struct {
	cfg      config.IndexerConfig
	analyzer *tokenizer.Analyzer
	opts     snapshot.Options
	metrics  *metrics.Metrics
	tracker  analytics.Tracker
	logger   *slog.Logger

	current   atomic.Pointer[index.Index]
	rebuildMu sync.Mutex
}

// NewEngine validates the snapshot encoding in cfg. A nil m registers metrics
// on a private registry and a nil tracker discards analytics events.
func NewEngine(cfg config.IndexerConfig, analyzer *tokenizer.Analyzer, m *metrics.Metrics, tracker analytics.Tracker) (*Engine, error) {
	codec, err := snapshot.ParseCodec(cfg.Codec)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, err.Error())
	}
	compression, err := snapshot.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, err.Error())
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if tracker == nil {
		tracker = analytics.Nop
	}
	return &Engine{
		cfg:      cfg,
		analyzer: analyzer,
		opts:     snapshot.Options{Codec: codec, Compression: compression},
		metrics:  m,
		tracker:  tracker,
		logger:   slog.Default().With("component", "indexer"),
	}, nil
}

// Current returns the active index, or nil before Open succeeds.
func (e *Engine) Current() *index.Index {
	return e.current.Load()
}

// Analyzer returns the analyzer used for both documents and queries.
func (e *Engine) Analyzer() *tokenizer.Analyzer {
	return e.analyzer
}

func (e *Engine) params() index.Params {
	return index.Params{K1: e.cfg.K1, B: e.cfg.B}
}

// Open makes an index available. Unless rebuild is set it first tries the
// snapshot; a missing or corrupt snapshot falls back to a full rebuild, any
// other read error is returned.
func (e *Engine) Open(ctx context.Context, rebuild bool) (*index.Index, error) {
	if rebuild {
		return e.Rebuild(ctx, "forced")
	}

	start := time.Now()
	idx, info, err := snapshot.Read(e.cfg.SnapshotPath)
	switch {
	case err == nil:
		e.metrics.SnapshotLoadsTotal.WithLabelValues("ok").Inc()
	case apperrors.Is(err, fs.ErrNotExist):
		e.metrics.SnapshotLoadsTotal.WithLabelValues("missing").Inc()
		e.logger.Info("no snapshot found, building index", "path", e.cfg.SnapshotPath)
		return e.Rebuild(ctx, "missing snapshot")
	case apperrors.Is(err, apperrors.ErrCorruptSnapshot):
		e.metrics.SnapshotLoadsTotal.WithLabelValues("corrupt").Inc()
		e.logger.Warn("snapshot unreadable, rebuilding index",
			"path", e.cfg.SnapshotPath,
			"error", err,
		)
		return e.Rebuild(ctx, "corrupt snapshot")
	default:
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}

	idx = e.applyParams(idx)
	e.publish(idx)
	e.logger.Info("snapshot loaded",
		"path", info.Path,
		"codec", info.Codec.String(),
		"compression", info.Compression.String(),
		"legacy", info.Legacy,
		"size", humanize.Bytes(uint64(info.Size)),
		"docs", humanize.Comma(int64(idx.DocCount())),
		"terms", humanize.Comma(int64(idx.TermCount())),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	e.tracker.Track(analytics.IndexEvent{
		Type:         analytics.EventSnapshotLoad,
		DocCount:     idx.DocCount(),
		TermCount:    idx.TermCount(),
		AvgDocLength: idx.AvgDocLength(),
		Fingerprint:  idx.Fingerprint(),
		Reason:       "snapshot",
		LatencyMs:    time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
	return idx, nil
}

// Build reads the documents directory and builds a fresh index without
// persisting or publishing it.
func (e *Engine) Build(ctx context.Context) (*index.Index, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "build_index")
	defer span.End()

	_, load := tracing.Start(ctx, "load_corpus")
	docs, err := corpus.Load(ctx, e.cfg.DocumentsDir, e.cfg.ReadWorkers)
	load.Set("docs", len(docs))
	load.End()
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	idx, err := index.Build(docs, e.analyzer, e.params(), index.BuildOptions{
		CountStopwords: e.cfg.CountStopwords,
	})
	if err != nil {
		return nil, fmt.Errorf("building index from %s: %w", e.cfg.DocumentsDir, err)
	}
	elapsed := time.Since(start)
	e.metrics.DocsIndexedTotal.Add(float64(idx.DocCount()))
	e.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
	e.logger.Info("index built",
		"docs", humanize.Comma(int64(idx.DocCount())),
		"terms", humanize.Comma(int64(idx.TermCount())),
		"avg_doc_length", idx.AvgDocLength(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return idx, nil
}

// Rebuild builds a fresh index, writes the snapshot and publishes the result.
// A snapshot write failure is logged; the new index is still served.
func (e *Engine) Rebuild(ctx context.Context, reason string) (*index.Index, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	start := time.Now()
	ctx, span := tracing.Start(ctx, "rebuild")
	defer span.End()
	span.Set("reason", reason)

	idx, err := e.Build(ctx)
	if err != nil {
		return nil, err
	}

	_, write := tracing.Start(ctx, "write_snapshot")
	info, err := snapshot.Write(e.cfg.SnapshotPath, idx, e.opts)
	write.End()
	if err != nil {
		e.metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		e.logger.Error("failed to persist snapshot",
			"path", e.cfg.SnapshotPath,
			"error", err,
		)
	} else {
		e.metrics.SnapshotWritesTotal.WithLabelValues("ok").Inc()
		e.logger.Info("snapshot written",
			"path", info.Path,
			"codec", info.Codec.String(),
			"compression", info.Compression.String(),
			"size", humanize.Bytes(uint64(info.Size)),
		)
	}

	e.publish(idx)
	e.tracker.Track(analytics.IndexEvent{
		Type:         analytics.EventIndexBuilt,
		DocCount:     idx.DocCount(),
		TermCount:    idx.TermCount(),
		AvgDocLength: idx.AvgDocLength(),
		Fingerprint:  idx.Fingerprint(),
		Reason:       reason,
		LatencyMs:    time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
	return idx, nil
}

// applyParams replaces persisted k1/b with the configured values so that
// tuning does not require a rebuild.
func (e *Engine) applyParams(idx *index.Index) *index.Index {
	want := e.params()
	have := idx.Params()
	if have == want {
		return idx
	}
	e.logger.Info("overriding persisted BM25 parameters",
		"persisted_k1", have.K1,
		"persisted_b", have.B,
		"k1", want.K1,
		"b", want.B,
	)
	return idx.WithParams(want)
}

func (e *Engine) publish(idx *index.Index) {
	e.current.Store(idx)
	e.metrics.IndexDocuments.Set(float64(idx.DocCount()))
	e.metrics.IndexTerms.Set(float64(idx.TermCount()))
}

// Watch rebuilds the index whenever files under the documents directory
// change. Bursts of events are collapsed into one rebuild after the configured
// debounce. onRebuild, if non-nil, receives every successfully rebuilt index.
// Watch blocks until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, onRebuild func(*index.Index)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, e.cfg.DocumentsDir); err != nil {
		return err
	}

	debounce := e.cfg.WatchDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	e.logger.Info("watching documents directory",
		"dir", e.cfg.DocumentsDir,
		"debounce", debounce,
	)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("watch stopping")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addTree(watcher, ev.Name); err != nil {
						e.logger.Warn("failed to watch new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			e.logger.Debug("document change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("file watcher error", "error", err)
		case <-timer.C:
			idx, err := e.Rebuild(ctx, "documents changed")
			if err != nil {
				e.logger.Error("rebuild after change failed, keeping current index", "error", err)
				continue
			}
			if onRebuild != nil {
				onRebuild(idx)
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
