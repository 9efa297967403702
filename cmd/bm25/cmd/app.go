package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/tracing"
)

// app holds what every subcommand shares: configuration, metrics and the
// optional analytics sink. Close releases whatever was started.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	tracker analytics.Tracker
	health  *health.Checker
	closers []func(context.Context)
}

// newApp loads configuration, applies command-line overrides and starts the
// ambient services enabled in it.
func newApp(cmd *cobra.Command, opts *rootOptions) (*app, context.Context, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, apperrors.New(apperrors.ErrInvalidInput, err.Error())
	}
	applyFlagOverrides(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx := logger.WithRunID(cmd.Context(), strconv.FormatInt(time.Now().UnixNano(), 36))
	ctx, span := tracing.Start(ctx, cmd.Name())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a := &app{
		cfg:     cfg,
		metrics: metrics.New(reg),
		tracker: analytics.Nop,
		health:  health.NewChecker(2 * time.Second),
	}
	a.closers = append(a.closers, func(context.Context) {
		span.End()
		span.Log(logger.FromContext(ctx))
	})

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg, a.health.Handler())
		a.closers = append(a.closers, func(ctx context.Context) {
			if err := shutdown(ctx); err != nil {
				slog.Warn("metrics server shutdown failed", "error", err)
			}
		})
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		collector := analytics.NewCollector(producer, 1024)
		collector.Start(ctx)
		a.tracker = collector
		a.closers = append(a.closers, func(context.Context) {
			collector.Close()
			if err := producer.Close(); err != nil {
				slog.Warn("kafka producer close failed", "error", err)
			}
		})
	}

	return a, ctx, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) {
	flags := cmd.Flags()
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.documents != "" {
		cfg.Indexer.DocumentsDir = opts.documents
	}
	if opts.snapshot != "" {
		cfg.Indexer.SnapshotPath = opts.snapshot
	}
	if flags.Changed("k1") {
		cfg.Indexer.K1 = opts.k1
	}
	if flags.Changed("b") {
		cfg.Indexer.B = opts.b
	}
}

// Close runs the registered closers in reverse order.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}

func (a *app) analyzer() (*tokenizer.Analyzer, error) {
	stopwords := tokenizer.DefaultStopwords()
	if path := a.cfg.Analysis.StopwordsPath; path != "" {
		loaded, err := tokenizer.LoadStopwordsFile(path)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "loading stopwords: %v", err)
		}
		stopwords = loaded
	}
	stemmer, err := tokenizer.NewStemmer(a.cfg.Analysis.Stemmer)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, err.Error())
	}
	return tokenizer.NewAnalyzer(stopwords, stemmer), nil
}

// openEngine loads the snapshot, rebuilding it when forced, missing or
// corrupt.
func (a *app) openEngine(ctx context.Context, rebuild bool) (*indexer.Engine, error) {
	analyzer, err := a.analyzer()
	if err != nil {
		return nil, err
	}
	engine, err := indexer.NewEngine(a.cfg.Indexer, analyzer, a.metrics, a.tracker)
	if err != nil {
		return nil, err
	}
	a.health.Critical("index", func(context.Context) (string, error) {
		idx := engine.Current()
		if idx == nil {
			return "", fmt.Errorf("no index loaded")
		}
		return fmt.Sprintf("%d documents, fingerprint %s", idx.DocCount(), idx.Fingerprint()), nil
	})
	if _, err := engine.Open(ctx, rebuild); err != nil {
		return nil, err
	}
	return engine, nil
}

// newSearcher builds a Searcher over engine with the in-process result
// cache and, when enabled and reachable, the shared Redis tier.
func (a *app) newSearcher(ctx context.Context, engine *indexer.Engine, rankCap int) (*executor.Searcher, error) {
	var remote cache.Remote
	if a.cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			logger.FromContext(ctx).Warn("redis unavailable, caching in memory only", "addr", a.cfg.Redis.Addr, "error", err)
		} else {
			remote = client
			a.closers = append(a.closers, func(context.Context) { _ = client.Close() })
			a.health.Optional("redis", func(ctx context.Context) (string, error) {
				return a.cfg.Redis.Addr, client.Ping(ctx)
			})
		}
	}
	queryCache, err := cache.New(a.cfg.Search.CacheSize, remote, a.cfg.Redis.CacheTTL, a.metrics)
	if err != nil {
		return nil, err
	}
	return executor.New(engine, rankCap, queryCache, a.metrics, a.tracker), nil
}
