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

// ConflictError reports a document judged both relevant and irrelevant for
// the same query. It matches apperrors.ErrJudgmentConflict.
type ConflictError struct {
	QueryID string
	DocID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s is judged both relevant and irrelevant for query %s", e.DocID, e.QueryID)
}

func (e *ConflictError) Unwrap() error {
	return apperrors.ErrJudgmentConflict
}

// Judgment holds the disjoint relevant and irrelevant sets for one query.
// The zero value has no judgments.
type Judgment struct {
	relevant   DocSet
	irrelevant DocSet
}

// NewJudgment builds a Judgment, rejecting any id present in both lists.
func NewJudgment(queryID string, relevant, irrelevant []string) (Judgment, error) {
	j := Judgment{
		relevant:   NewDocSet(relevant...),
		irrelevant: NewDocSet(irrelevant...),
	}
	conflicts := make([]string, 0)
	for id := range j.relevant {
		if j.irrelevant.Contains(id) {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return Judgment{}, &ConflictError{QueryID: queryID, DocID: conflicts[0]}
	}
	return j, nil
}

func (j Judgment) Relevant() DocSet   { return j.relevant }
func (j Judgment) Irrelevant() DocSet { return j.irrelevant }

// Judgments maps query ids to their judgments.
type Judgments map[string]Judgment

// ParseJudgments reads qrels lines of the form
//
//	query-id 0 doc-id grade
//
// The iteration column may be omitted. A grade above zero marks the document
// relevant, zero marks it irrelevant and negative grades are ignored.
func ParseJudgments(r io.Reader) (Judgments, error) {
	type lists struct{ rel, irr []string }
	byQuery := make(map[string]*lists)
	order := make([]string, 0)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		var qid, doc, gradeText string
		switch len(fields) {
		case 3:
			qid, doc, gradeText = fields[0], fields[1], fields[2]
		case 4:
			qid, doc, gradeText = fields[0], fields[2], fields[3]
		default:
			return nil, apperrors.Newf(apperrors.ErrInvalidInput,
				"judgments line %d: expected 3 or 4 fields, got %d", lineNo, len(fields))
		}
		grade, err := strconv.Atoi(gradeText)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput,
				"judgments line %d: grade %q is not an integer", lineNo, gradeText)
		}
		if grade < 0 {
			continue
		}
		l, ok := byQuery[qid]
		if !ok {
			l = &lists{}
			byQuery[qid] = l
			order = append(order, qid)
		}
		if grade > 0 {
			l.rel = append(l.rel, doc)
		} else {
			l.irr = append(l.irr, doc)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading judgments: %w", err)
	}

	out := make(Judgments, len(byQuery))
	for _, qid := range order {
		l := byQuery[qid]
		j, err := NewJudgment(qid, l.rel, l.irr)
		if err != nil {
			return nil, err
		}
		out[qid] = j
	}
	return out, nil
}
