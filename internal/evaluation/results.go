package evaluation

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

// Results maps query ids to retrieved document ids, best first.
type Results map[string][]string

// ParseResults reads "query-id doc-id rank score" lines. Each query's
// documents are ordered by rank; equal ranks keep file order. The score
// column is optional.
func ParseResults(r io.Reader) (Results, error) {
	type ranked struct {
		doc  string
		rank int
	}
	byQuery := make(map[string][]ranked)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 || len(fields) > 4 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput,
				"results line %d: expected 'query-id doc-id rank score', got %d fields", lineNo, len(fields))
		}
		rank, err := strconv.Atoi(fields[2])
		if err != nil || rank < 1 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput,
				"results line %d: rank %q is not a positive integer", lineNo, fields[2])
		}
		if len(fields) == 4 {
			if _, err := strconv.ParseFloat(fields[3], 64); err != nil {
				return nil, apperrors.Newf(apperrors.ErrInvalidInput,
					"results line %d: score %q is not a number", lineNo, fields[3])
			}
		}
		byQuery[fields[0]] = append(byQuery[fields[0]], ranked{doc: fields[1], rank: rank})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}

	out := make(Results, len(byQuery))
	for qid, docs := range byQuery {
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].rank < docs[j].rank })
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.doc
		}
		out[qid] = ids
	}
	return out, nil
}
