package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/ui"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/tracing"
)

type evaluateOptions struct {
	n             int
	skipUndefined bool
	label         string
	save          bool
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate [results-file] [qrels-file]",
		Short: "Score a results file against relevance judgments",
		Long: `Compute precision, recall, P@N, R-precision, MAP and bpref for every
query in the results file and print their means.

The results file holds "query-id doc-id rank [score]" lines and defaults to
results.txt. The qrels file holds "query-id [iteration] doc-id grade" lines
and defaults to qrels.txt; a grade above zero marks a relevant document, zero
an irrelevant one. Both files must cover exactly the same queries.

With --save, or when postgres is enabled in the config, the report is stored
and compared with the previous run carrying the same label.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resultsPath, qrelsPath := "results.txt", "qrels.txt"
			if len(args) > 0 {
				resultsPath = args[0]
			}
			if len(args) > 1 {
				qrelsPath = args[1]
			}

			a, ctx, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			evalCfg := a.cfg.Evaluation
			if cmd.Flags().Changed("n") {
				evalCfg.PrecisionAtN = opts.n
			}
			if cmd.Flags().Changed("skip-undefined") {
				evalCfg.SkipUndefined = opts.skipUndefined
			}
			if opts.label != "" {
				evalCfg.Label = opts.label
			}
			if evalCfg.Label == "" {
				evalCfg.Label = filepath.Base(resultsPath)
			}

			_, parse := tracing.Start(ctx, "parse_inputs")
			results, err := readResults(resultsPath)
			if err != nil {
				return err
			}
			judgments, err := readJudgments(qrelsPath)
			if err != nil {
				return err
			}
			parse.Set("result_queries", len(results), "judged_queries", len(judgments))
			parse.End()

			_, score := tracing.Start(ctx, "score")
			report, err := evaluation.Evaluate(results, judgments, evaluation.Options{
				N:             evalCfg.PrecisionAtN,
				SkipUndefined: evalCfg.SkipUndefined,
				Label:         evalCfg.Label,
			})
			score.End()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			styles := ui.StylesFor(out)
			if err := evaluation.Render(out, report, styles); err != nil {
				return err
			}
			report.Observe(a.metrics)
			a.tracker.Track(analytics.EvaluationEvent{
				Type:      analytics.EventEvaluation,
				Label:     report.Label,
				Queries:   len(report.Queries),
				Means:     report.MeansByName(),
				Timestamp: time.Now().UTC(),
			})

			if opts.save || a.cfg.Postgres.Enabled {
				return saveReport(ctx, a, report, out, styles)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 10, "Cutoff for precision@N")
	cmd.Flags().BoolVar(&opts.skipUndefined, "skip-undefined", false, "Leave queries out of a mean when the metric is undefined for them")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "Run label used when storing and comparing reports")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the report in postgres")

	return cmd
}

func readResults(path string) (evaluation.Results, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "opening results file: %v", err)
	}
	defer f.Close()
	results, err := evaluation.ParseResults(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return results, nil
}

func readJudgments(path string) (evaluation.Judgments, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "opening qrels file: %v", err)
	}
	defer f.Close()
	judgments, err := evaluation.ParseJudgments(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return judgments, nil
}

func saveReport(ctx context.Context, a *app, report *evaluation.Report, out io.Writer, styles ui.Styles) error {
	client, err := postgres.New(ctx, a.cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()

	store := evaluation.NewPostgresStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	previous, err := store.LatestMeans(ctx, report.Label)
	if err != nil {
		return err
	}
	runID, err := store.Save(ctx, report)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("evaluation report stored", "run_id", runID, "label", report.Label)
	return evaluation.RenderComparison(out, report, previous, styles)
}
