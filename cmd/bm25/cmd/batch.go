package cmd

import (
	"fmt"
	"os"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/ui"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

func newBatchCmd(root *rootOptions) *cobra.Command {
	var (
		rebuild bool
		rankCap int
	)

	cmd := &cobra.Command{
		Use:   "batch [queries-file] [results-file]",
		Short: "Run every query in a file and write ranked results",
		Long: `Read one query per line (a numeric query id followed by the query text)
and write "query-id doc-id rank score" lines, at most rank-cap per query.

The queries file defaults to queries.txt and the results file to results.txt.
A results file of "-" writes to standard output. The results file is only
replaced once every query has been answered.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			queriesPath, resultsPath := "queries.txt", "results.txt"
			if len(args) > 0 {
				queriesPath = args[0]
			}
			if len(args) > 1 {
				resultsPath = args[1]
			}

			a, ctx, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("rank-cap") {
				if rankCap <= 0 {
					return invalidFlag("rank-cap must be > 0, got %d", rankCap)
				}
				a.cfg.Search.RankCap = rankCap
			}

			in, err := os.Open(queriesPath)
			if err != nil {
				return apperrors.Newf(apperrors.ErrInvalidInput, "opening queries file: %v", err)
			}
			defer in.Close()

			engine, err := a.openEngine(ctx, rebuild)
			if err != nil {
				return err
			}
			searcher, err := a.newSearcher(ctx, engine, a.cfg.Search.RankCap)
			if err != nil {
				return err
			}

			if resultsPath == "-" {
				_, err := searcher.RunBatch(ctx, in, cmd.OutOrStdout())
				return err
			}

			pending, err := renameio.TempFile("", resultsPath)
			if err != nil {
				return fmt.Errorf("creating results file: %w", err)
			}
			defer pending.Cleanup()

			summary, err := searcher.RunBatch(ctx, in, pending)
			if err != nil {
				return err
			}
			if err := pending.CloseAtomicallyReplace(); err != nil {
				return fmt.Errorf("writing results file: %w", err)
			}

			styles := ui.StylesFor(cmd.ErrOrStderr())
			fmt.Fprintln(cmd.ErrOrStderr(), styles.Dim.Render(fmt.Sprintf(
				"%d queries, %d result lines written to %s (at most %d per query, %d retrieved nothing)",
				summary.Queries, summary.Lines, resultsPath, searcher.RankCap(), summary.ZeroResults,
			)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild the index before searching")
	cmd.Flags().IntVar(&rankCap, "rank-cap", 15, "Maximum results written per query")

	return cmd
}

func invalidFlag(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrInvalidInput, format, args...)
}
