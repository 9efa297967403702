package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/shell"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/ui"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/logger"
)

type searchOptions struct {
	rebuild  bool
	watch    bool
	pageSize int
	format   string
	noColor  bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the corpus interactively or for a single query",
		Long: `Without arguments, start an interactive shell: type a query and press
enter to see the top results, type QUIT to leave.

With arguments, run them as one query and print the results.

Examples:
  bm25 search
  bm25 search "stock market crash"
  bm25 search --page-size 5 --format json "interest rates"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("page-size") {
				a.cfg.Search.PageSize = opts.pageSize
			}
			if a.cfg.Search.PageSize <= 0 {
				return invalidFlag("page-size must be > 0, got %d", a.cfg.Search.PageSize)
			}
			if opts.format != "text" && opts.format != "json" {
				return invalidFlag("unknown format %q", opts.format)
			}

			engine, err := a.openEngine(ctx, opts.rebuild)
			if err != nil {
				return err
			}
			searcher, err := a.newSearcher(ctx, engine, a.cfg.Search.RankCap)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			styles := ui.StylesFor(out)
			if opts.noColor {
				styles = ui.NoColorStyles()
			}

			if len(args) > 0 {
				query := strings.Join(args, " ")
				return runOneShot(ctx, out, styles, searcher, query, a.cfg.Search.PageSize, opts.format)
			}

			if opts.watch {
				watchCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					err := engine.Watch(watchCtx, func(idx *index.Index) {
						logger.FromContext(ctx).Info("index refreshed", "docs", idx.DocCount())
						if err := searcher.ResetCache(watchCtx); err != nil {
							logger.FromContext(ctx).Warn("cache reset failed", "error", err)
						}
					})
					if err != nil {
						logger.FromContext(ctx).Error("watch stopped", "error", err)
					}
				}()
			}

			sh := shell.New(searcher, cmd.InOrStdin(), out, a.cfg.Search.PageSize,
				shell.WithStyles(styles),
				shell.WithTracker(a.tracker),
			)
			return sh.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&opts.rebuild, "rebuild", false, "Rebuild the index before searching")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Rebuild in the background when documents change")
	cmd.Flags().IntVarP(&opts.pageSize, "page-size", "n", 15, "Results shown per query")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format for a single query: text, json")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable styled output even on a terminal")

	return cmd
}

func runOneShot(ctx context.Context, w io.Writer, styles ui.Styles, s *executor.Searcher, query string, limit int, format string) error {
	res, err := s.SearchLimit(ctx, query, limit)
	if err != nil {
		return err
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res.Results) == 0 {
		_, err := fmt.Fprintln(w, styles.Warn.Render("Nothing is retrieved!"))
		return err
	}
	for i, doc := range res.Results {
		if _, err := fmt.Fprintf(w, "%s %s %s\n",
			styles.Rank.Render(fmt.Sprint(i+1)),
			styles.DocID.Render(doc.DocID),
			styles.Score.Render(executor.FormatScore(doc.Score)),
		); err != nil {
			return err
		}
	}
	return nil
}
