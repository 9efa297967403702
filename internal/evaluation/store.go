package evaluation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
    id           BIGSERIAL PRIMARY KEY,
    label        TEXT        NOT NULL,
    precision_n  INTEGER     NOT NULL,
    query_count  INTEGER     NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation_means (
    run_id  BIGINT           NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
    metric  TEXT             NOT NULL,
    value   DOUBLE PRECISION NOT NULL,
    queries INTEGER          NOT NULL,
    PRIMARY KEY (run_id, metric)
);

CREATE TABLE IF NOT EXISTS evaluation_query_metrics (
    run_id   BIGINT           NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
    query_id TEXT             NOT NULL,
    metric   TEXT             NOT NULL,
    value    DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, query_id, metric)
);`

// PostgresStore persists evaluation reports so runs with different
// parameters can be compared.
type PostgresStore struct {
	client *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{
		client: client,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		logger: slog.Default().With("component", "evaluation-store"),
	}
}

// EnsureSchema creates the report tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating evaluation schema: %w", err)
	}
	return nil
}

// Save writes the report in one transaction and returns the run id.
func (s *PostgresStore) Save(ctx context.Context, r *Report) (int64, error) {
	var runID int64
	err := resilience.Retry(ctx, "save evaluation report", s.retry, func() error {
		return s.client.InTx(ctx, func(tx *sql.Tx) error {
			var err error
			runID, err = insertReport(ctx, tx, r)
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("saving evaluation report: %w", err)
	}
	s.logger.Info("evaluation report saved",
		"run_id", runID,
		"label", r.Label,
		"queries", len(r.Queries),
	)
	return runID, nil
}

func insertReport(ctx context.Context, tx *sql.Tx, r *Report) (int64, error) {
	var runID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO evaluation_runs (label, precision_n, query_count, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		r.Label, r.N, len(r.Queries), r.CreatedAt,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("inserting evaluation run: %w", err)
	}

	for _, m := range AllMetrics {
		mean, ok := r.Mean(m)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evaluation_means (run_id, metric, value, queries) VALUES ($1, $2, $3, $4)`,
			runID, string(m), mean, r.Counts[m],
		); err != nil {
			return 0, fmt.Errorf("inserting mean %s: %w", m, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evaluation_query_metrics (run_id, query_id, metric, value) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return 0, fmt.Errorf("preparing query metric insert: %w", err)
	}
	defer stmt.Close()
	for _, q := range r.Queries {
		for _, m := range AllMetrics {
			v, ok := q.Values[m]
			if !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, runID, q.QueryID, string(m), v); err != nil {
				return 0, fmt.Errorf("inserting %s for query %s: %w", m, q.QueryID, err)
			}
		}
	}
	return runID, nil
}

// LatestMeans returns the means of the most recent run with the given label.
func (s *PostgresStore) LatestMeans(ctx context.Context, label string) (map[Metric]float64, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT m.metric, m.value
		   FROM evaluation_means m
		  WHERE m.run_id = (SELECT id FROM evaluation_runs WHERE label = $1 ORDER BY created_at DESC, id DESC LIMIT 1)`,
		label,
	)
	if err != nil {
		return nil, fmt.Errorf("querying latest means: %w", err)
	}
	defer rows.Close()
	out := make(map[Metric]float64)
	for rows.Next() {
		var (
			metric string
			value  float64
		)
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("scanning mean: %w", err)
		}
		out[Metric(metric)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating means: %w", err)
	}
	return out, nil
}
