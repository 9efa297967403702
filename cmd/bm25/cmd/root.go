// Package cmd provides the bm25 command line: index, search, batch and
// evaluate.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

type rootOptions struct {
	configPath string
	logLevel   string
	documents  string
	snapshot   string
	k1         float64
	b          float64
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return apperrors.ExitCode(err)
	}
	return apperrors.ExitOK
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bm25",
		Short: "BM25 search over a small document corpus",
		Long: `bm25 indexes a directory of plain-text documents and ranks them
against free-text queries with Okapi BM25.

Results can be explored interactively, written in batch to a results file,
and scored against relevance judgments with precision, recall, P@N,
R-precision, MAP and bpref.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.New(apperrors.ErrInvalidInput, err.Error())
	})

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.documents, "documents", "", "Directory of documents to index")
	cmd.PersistentFlags().StringVar(&opts.snapshot, "snapshot", "", "Path of the index snapshot")
	cmd.PersistentFlags().Float64Var(&opts.k1, "k1", 0, "BM25 term-frequency saturation (overrides config)")
	cmd.PersistentFlags().Float64Var(&opts.b, "b", 0, "BM25 length normalisation (overrides config)")

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newEvaluateCmd(opts))

	return cmd
}
