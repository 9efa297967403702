// Package shell implements the interactive query loop: one query per line,
// a page of ranked results per query, QUIT or end of input to leave.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/ui"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/logger"
)

const QuitCommand = "QUIT"

const maxLineBytes = 1 << 20

// Searcher is the part of *executor.Searcher the shell needs.
type Searcher interface {
	SearchLimit(ctx context.Context, text string, limit int) (*executor.SearchResult, error)
}

type Shell struct {
	searcher Searcher
	in       io.Reader
	out      io.Writer
	pageSize int
	styles   ui.Styles
	tracker  analytics.Tracker
	logger   *slog.Logger
}

type Option func(*Shell)

func WithStyles(s ui.Styles) Option {
	return func(sh *Shell) { sh.styles = s }
}

func WithTracker(t analytics.Tracker) Option {
	return func(sh *Shell) {
		if t != nil {
			sh.tracker = t
		}
	}
}

// New creates a shell reading queries from in and printing to out. Styles
// default to whatever suits out.
func New(searcher Searcher, in io.Reader, out io.Writer, pageSize int, opts ...Option) *Shell {
	sh := &Shell{
		searcher: searcher,
		in:       in,
		out:      out,
		pageSize: pageSize,
		styles:   ui.StylesFor(out),
		tracker:  analytics.Nop,
		logger:   logger.WithComponent("shell"),
	}
	for _, opt := range opts {
		opt(sh)
	}
	return sh
}

// Run prompts for queries until QUIT, end of input or ctx is done. Search
// errors are printed and the loop continues; only read and write failures
// and cancellation end it with an error.
func (sh *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(sh.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sh.prompt(); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading query: %w", err)
			}
			sh.logger.Debug("input closed")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case QuitCommand:
			_, err := fmt.Fprintln(sh.out, sh.styles.Dim.Render("Quitting..."))
			return err
		}
		if err := sh.answer(ctx, line); err != nil {
			return err
		}
	}
}

func (sh *Shell) prompt() error {
	_, err := fmt.Fprintf(sh.out, "%s\n>> ", sh.styles.Header.Render("Enter Query:"))
	return err
}

func (sh *Shell) answer(ctx context.Context, query string) error {
	start := time.Now()
	if _, err := fmt.Fprintf(sh.out, "Results for query [ %s ]\n", query); err != nil {
		return err
	}

	res, err := sh.searcher.SearchLimit(ctx, query, sh.pageSize)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		sh.logger.Warn("search failed", "query", query, "error", err)
		_, werr := fmt.Fprintln(sh.out, sh.styles.Error.Render("Error: "+err.Error()))
		return werr
	}

	eventType := analytics.EventSearch
	if len(res.Results) == 0 {
		eventType = analytics.EventZeroResult
		if _, err := fmt.Fprintln(sh.out, sh.styles.Warn.Render("Nothing is retrieved!")); err != nil {
			return err
		}
	}
	for i, doc := range res.Results {
		if _, err := fmt.Fprintf(sh.out, "%s %s %s\n",
			sh.styles.Rank.Render(fmt.Sprint(i+1)),
			sh.styles.DocID.Render(doc.DocID),
			sh.styles.Score.Render(executor.FormatScore(doc.Score)),
		); err != nil {
			return err
		}
	}
	if res.TotalHits > len(res.Results) && len(res.Results) > 0 {
		note := fmt.Sprintf("showing %d of %d matching documents", len(res.Results), res.TotalHits)
		if _, err := fmt.Fprintln(sh.out, sh.styles.Dim.Render(note)); err != nil {
			return err
		}
	}

	sh.tracker.Track(analytics.SearchEvent{
		Type:      eventType,
		Query:     query,
		Terms:     res.Terms,
		TotalHits: res.TotalHits,
		Returned:  len(res.Results),
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  res.CacheHit,
		Timestamp: time.Now().UTC(),
	})
	return nil
}
