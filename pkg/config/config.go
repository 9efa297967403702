// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Indexer, Analysis, Search, Evaluation, and the optional Redis,
// Postgres and Kafka sinks).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Indexer    IndexerConfig    `yaml:"indexer"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Search     SearchConfig     `yaml:"search"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// IndexerConfig controls corpus loading, BM25 parameters persisted with the
// index, and the snapshot encoding.
type IndexerConfig struct {
	DocumentsDir   string        `yaml:"documentsDir"`
	SnapshotPath   string        `yaml:"snapshotPath"`
	K1             float64       `yaml:"k1"`
	B              float64       `yaml:"b"`
	CountStopwords bool          `yaml:"countStopwords"`
	Codec          string        `yaml:"codec"`
	Compression    string        `yaml:"compression"`
	ReadWorkers    int           `yaml:"readWorkers"`
	WatchDebounce  time.Duration `yaml:"watchDebounce"`
}

// AnalysisConfig selects the stopword list and stemming algorithm.
type AnalysisConfig struct {
	StopwordsPath string `yaml:"stopwordsPath"`
	Stemmer       string `yaml:"stemmer"`
}

// SearchConfig controls how many results are persisted and displayed.
type SearchConfig struct {
	RankCap   int `yaml:"rankCap"`
	PageSize  int `yaml:"pageSize"`
	CacheSize int `yaml:"cacheSize"`
}

// EvaluationConfig controls the metric engine.
type EvaluationConfig struct {
	PrecisionAtN  int    `yaml:"precisionAtN"`
	SkipUndefined bool   `yaml:"skipUndefined"`
	Label         string `yaml:"label"`
}

// PostgresConfig holds PostgreSQL connection parameters for the evaluation
// report store.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for analytics events.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config with k1=1.0,
// b=0.75, a rank cap of 15 and P@10.
func Default() *Config {
	return &Config{
		Indexer: IndexerConfig{
			DocumentsDir:   "documents",
			SnapshotPath:   "index.snapshot",
			K1:             1.0,
			B:              0.75,
			CountStopwords: true,
			Codec:          "json",
			Compression:    "none",
			ReadWorkers:    8,
			WatchDebounce:  500 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			Stemmer: "porter",
		},
		Search: SearchConfig{
			RankCap:   15,
			PageSize:  15,
			CacheSize: 1024,
		},
		Evaluation: EvaluationConfig{
			PrecisionAtN: 10,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "bm25search",
			User:            "bm25search",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "bm25-events",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 4,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate rejects parameter values the scorer or evaluator cannot use.
func (c *Config) Validate() error {
	if c.Indexer.K1 < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "k1 must be >= 0, got %g", c.Indexer.K1)
	}
	if c.Indexer.B < 0 || c.Indexer.B > 1 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "b must be within [0, 1], got %g", c.Indexer.B)
	}
	if c.Search.RankCap <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "rank cap must be > 0, got %d", c.Search.RankCap)
	}
	if c.Search.PageSize <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "page size must be > 0, got %d", c.Search.PageSize)
	}
	if c.Evaluation.PrecisionAtN <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "precision@N requires N > 0, got %d", c.Evaluation.PrecisionAtN)
	}
	switch c.Indexer.Codec {
	case "json", "cbor":
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, "unknown snapshot codec %q", c.Indexer.Codec)
	}
	switch c.Indexer.Compression {
	case "none", "zstd":
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, "unknown snapshot compression %q", c.Indexer.Compression)
	}
	switch c.Analysis.Stemmer {
	case "porter", "snowball", "none":
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, "unknown stemmer %q", c.Analysis.Stemmer)
	}
	return nil
}

// applyEnvOverrides reads BM25_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BM25_DOCUMENTS_DIR"); v != "" {
		cfg.Indexer.DocumentsDir = v
	}
	if v := os.Getenv("BM25_SNAPSHOT_PATH"); v != "" {
		cfg.Indexer.SnapshotPath = v
	}
	if v := os.Getenv("BM25_K1"); v != "" {
		if k1, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Indexer.K1 = k1
		}
	}
	if v := os.Getenv("BM25_B"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Indexer.B = b
		}
	}
	if v := os.Getenv("BM25_SNAPSHOT_CODEC"); v != "" {
		cfg.Indexer.Codec = v
	}
	if v := os.Getenv("BM25_SNAPSHOT_COMPRESSION"); v != "" {
		cfg.Indexer.Compression = v
	}
	if v := os.Getenv("BM25_STOPWORDS_PATH"); v != "" {
		cfg.Analysis.StopwordsPath = v
	}
	if v := os.Getenv("BM25_STEMMER"); v != "" {
		cfg.Analysis.Stemmer = v
	}
	if v := os.Getenv("BM25_RANK_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.RankCap = n
		}
	}
	if v := os.Getenv("BM25_PRECISION_AT_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Evaluation.PrecisionAtN = n
		}
	}
	if v := os.Getenv("BM25_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BM25_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BM25_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BM25_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BM25_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BM25_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BM25_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
