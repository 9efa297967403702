package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/ui"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var (
		rebuild bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or load the index snapshot",
		Long: `Load the index snapshot, building it from the documents directory when
it is missing or unreadable.

With --rebuild the snapshot is always rebuilt. With --watch the command keeps
running and rebuilds whenever a document is added, changed or removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.openEngine(ctx, rebuild)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			styles := ui.StylesFor(out)
			printIndexSummary(out, styles, engine.Current())

			if !watch {
				return nil
			}
			fmt.Fprintln(out, styles.Dim.Render("watching "+a.cfg.Indexer.DocumentsDir+" for changes"))
			return engine.Watch(ctx, func(idx *index.Index) {
				printIndexSummary(out, styles, idx)
			})
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild the snapshot even if one exists")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild on document changes until interrupted")

	return cmd
}

func printIndexSummary(w io.Writer, styles ui.Styles, idx *index.Index) {
	params := idx.Params()
	fmt.Fprintf(w, "%s %s documents, %s terms, average length %.4f (k1=%g, b=%g)\n",
		styles.Header.Render("index"),
		humanize.Comma(int64(idx.DocCount())),
		humanize.Comma(int64(idx.TermCount())),
		idx.AvgDocLength(),
		params.K1, params.B,
	)
	fmt.Fprintln(w, styles.Dim.Render("fingerprint "+idx.Fingerprint()))
}
