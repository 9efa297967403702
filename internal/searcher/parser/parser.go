// Package parser turns raw query text into stem sets and splits batch query
// lines into an id and a query body.
package parser

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

var queryIDPattern = regexp.MustCompile(`\d+`)

// QueryPlan is an analysed query: a set of unique stems. Terms lists the
// same stems in sorted order.
type QueryPlan struct {
	RawQuery string
	Terms    []string
	Set      map[string]struct{}
}

// Empty reports whether no stem survived analysis.
func (p *QueryPlan) Empty() bool {
	return len(p.Set) == 0
}

func Parse(analyzer *tokenizer.Analyzer, query string) *QueryPlan {
	set := analyzer.Terms(query)
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return &QueryPlan{
		RawQuery: query,
		Terms:    terms,
		Set:      set,
	}
}

// Query is one line of a batch query file.
type Query struct {
	ID   string
	Text string
}

// ParseQueryLine takes the first run of digits as the query id and removes
// that one occurrence from the line; the rest is the query text.
func ParseQueryLine(line string) (Query, error) {
	loc := queryIDPattern.FindStringIndex(line)
	if loc == nil {
		return Query{}, apperrors.Newf(apperrors.ErrMalformedQuery, "no numeric query id in %q", line)
	}
	return Query{
		ID:   line[loc[0]:loc[1]],
		Text: strings.TrimSpace(line[:loc[0]] + line[loc[1]:]),
	}, nil
}

// ParseQueries reads one query per line. Blank lines are skipped; any other
// line without a numeric id fails the whole read.
func ParseQueries(r io.Reader) ([]Query, error) {
	var queries []Query
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		q, err := ParseQueryLine(line)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrMalformedQuery, "line %d: no numeric query id in %q", lineNo, line)
		}
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrMalformedQuery, "reading queries: %v", err)
	}
	return queries, nil
}
