// Package evaluation scores ranked retrieval results against relevance
// judgments with set-based precision and recall, precision@N, R-precision,
// average precision and bpref, and averages them over a query set.
package evaluation

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

// UndefinedMetricError reports a metric whose denominator is zero for a
// query. It matches apperrors.ErrUndefinedMetric.
type UndefinedMetricError struct {
	Metric  Metric
	QueryID string
	Reason  string
}

func (e *UndefinedMetricError) Error() string {
	if e.QueryID == "" {
		return fmt.Sprintf("%s undefined: %s", e.Metric, e.Reason)
	}
	return fmt.Sprintf("%s undefined for query %s: %s", e.Metric, e.QueryID, e.Reason)
}

func (e *UndefinedMetricError) Unwrap() error {
	return apperrors.ErrUndefinedMetric
}

func undefined(m Metric, reason string) error {
	return &UndefinedMetricError{Metric: m, Reason: reason}
}

// DocSet is a set of document ids.
type DocSet map[string]struct{}

func NewDocSet(ids ...string) DocSet {
	s := make(DocSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s DocSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s DocSet) intersectCount(ids DocSet) int {
	n := 0
	for id := range ids {
		if s.Contains(id) {
			n++
		}
	}
	return n
}

// Precision is |retrieved ∩ relevant| / |retrieved| over distinct ids.
func Precision(retrieved []string, relevant DocSet) (float64, error) {
	ret := NewDocSet(retrieved...)
	if len(ret) == 0 {
		return 0, undefined(MetricPrecision, "nothing retrieved")
	}
	return float64(relevant.intersectCount(ret)) / float64(len(ret)), nil
}

// Recall is |retrieved ∩ relevant| / |relevant| over distinct ids.
func Recall(retrieved []string, relevant DocSet) (float64, error) {
	if len(relevant) == 0 {
		return 0, undefined(MetricRecall, "no relevant documents")
	}
	ret := NewDocSet(retrieved...)
	return float64(relevant.intersectCount(ret)) / float64(len(relevant)), nil
}

// PrecisionAtN counts relevant ids among the first n retrieved and divides
// by n, even when fewer than n documents were retrieved.
func PrecisionAtN(retrieved []string, relevant DocSet, n int) (float64, error) {
	if n <= 0 {
		return 0, undefined(MetricPrecisionAtN, fmt.Sprintf("N must be positive, got %d", n))
	}
	prefix := retrieved
	if len(prefix) > n {
		prefix = prefix[:n]
	}
	return float64(relevant.intersectCount(NewDocSet(prefix...))) / float64(n), nil
}

// RPrecision is PrecisionAtN with N = |relevant|.
func RPrecision(retrieved []string, relevant DocSet) (float64, error) {
	if len(relevant) == 0 {
		return 0, undefined(MetricRPrecision, "no relevant documents")
	}
	return PrecisionAtN(retrieved, relevant, len(relevant))
}

// AveragePrecision sums precision at each rank holding a relevant document
// and divides by |relevant|, so relevant documents never retrieved count as
// zero. A document listed twice only counts at its first rank.
func AveragePrecision(retrieved []string, relevant DocSet) (float64, error) {
	if len(relevant) == 0 {
		return 0, undefined(MetricMAP, "no relevant documents")
	}
	var sum float64
	found := make(DocSet)
	for i, id := range retrieved {
		if relevant.Contains(id) && !found.Contains(id) {
			found[id] = struct{}{}
			sum += float64(len(found)) / float64(i+1)
		}
	}
	return sum / float64(len(relevant)), nil
}

// Bpref walks retrieved in rank order. Each relevant document adds
// max(1 - irrelevantSeen/|relevant|, 0), where irrelevantSeen counts distinct
// judged-irrelevant documents ranked above it. Unjudged documents and repeats
// of an already counted relevant document are ignored.
func Bpref(retrieved []string, j Judgment) (float64, error) {
	if len(j.Relevant()) == 0 {
		return 0, undefined(MetricBpref, "no relevant documents")
	}
	r := float64(len(j.Relevant()))
	seen := make(DocSet)
	counted := make(DocSet)
	var sum float64
	for _, id := range retrieved {
		switch {
		case j.Relevant().Contains(id):
			if !counted.Contains(id) {
				counted[id] = struct{}{}
				sum += max(1-float64(len(seen))/r, 0)
			}
		case j.Irrelevant().Contains(id):
			seen[id] = struct{}{}
		}
	}
	return sum / r, nil
}
