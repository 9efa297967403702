package evaluation

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

type Metric string

const (
	MetricPrecision    Metric = "precision"
	MetricRecall       Metric = "recall"
	MetricPrecisionAtN Metric = "p_at_n"
	MetricRPrecision   Metric = "r_precision"
	MetricMAP          Metric = "map"
	MetricBpref        Metric = "bpref"
)

// AllMetrics lists every metric in report order.
var AllMetrics = []Metric{
	MetricPrecision,
	MetricRecall,
	MetricPrecisionAtN,
	MetricRPrecision,
	MetricMAP,
	MetricBpref,
}

// Label is the human-readable name of m; n is the precision@N cutoff.
func (m Metric) Label(n int) string {
	switch m {
	case MetricPrecision:
		return "Prec"
	case MetricRecall:
		return "Recall"
	case MetricPrecisionAtN:
		return fmt.Sprintf("P@%d", n)
	case MetricRPrecision:
		return "R-Prec"
	case MetricMAP:
		return "MAP"
	case MetricBpref:
		return "bpref"
	default:
		return string(m)
	}
}

type Options struct {
	// N is the precision@N cutoff.
	N int
	// SkipUndefined excludes a query from a metric's mean when that metric
	// has a zero denominator for it, instead of failing the run.
	SkipUndefined bool
	Label         string
}

// QueryMetrics holds every defined metric value for one query. Undefined
// lists metrics that were skipped for it.
type QueryMetrics struct {
	QueryID   string
	Retrieved int
	Relevant  int
	Values    map[Metric]float64
	Undefined []Metric
}

type Report struct {
	Label     string
	N         int
	CreatedAt time.Time
	Queries   []QueryMetrics
	// Means holds the arithmetic mean of each metric over the queries for
	// which it is defined; Counts holds how many queries contributed.
	Means  map[Metric]float64
	Counts map[Metric]int
}

// Mean returns the mean of m and whether any query contributed to it.
func (r *Report) Mean(m Metric) (float64, bool) {
	if r.Counts[m] == 0 {
		return 0, false
	}
	return r.Means[m], true
}

// Evaluate computes every metric for every query and averages them. The
// query ids of results and judgments must be identical.
func Evaluate(results Results, judgments Judgments, opts Options) (*Report, error) {
	if opts.N <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "precision@N requires N > 0, got %d", opts.N)
	}
	if err := checkQuerySets(results, judgments); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "no queries to evaluate")
	}

	ids := make([]string, 0, len(results))
	for qid := range results {
		ids = append(ids, qid)
	}
	sort.Slice(ids, func(i, j int) bool { return lessQueryID(ids[i], ids[j]) })

	logger := slog.Default().With("component", "evaluator")
	report := &Report{
		Label:     opts.Label,
		N:         opts.N,
		CreatedAt: time.Now().UTC(),
		Queries:   make([]QueryMetrics, 0, len(ids)),
		Means:     make(map[Metric]float64, len(AllMetrics)),
		Counts:    make(map[Metric]int, len(AllMetrics)),
	}
	sums := make(map[Metric]float64, len(AllMetrics))

	for _, qid := range ids {
		retrieved := results[qid]
		j := judgments[qid]
		qm := QueryMetrics{
			QueryID:   qid,
			Retrieved: len(retrieved),
			Relevant:  len(j.Relevant()),
			Values:    make(map[Metric]float64, len(AllMetrics)),
		}
		for _, m := range AllMetrics {
			v, err := compute(m, retrieved, j, opts.N)
			if err != nil {
				var ue *UndefinedMetricError
				if !apperrors.As(err, &ue) {
					return nil, err
				}
				ue.QueryID = qid
				if !opts.SkipUndefined {
					return nil, ue
				}
				logger.Warn("metric undefined, excluding query from mean",
					"query_id", qid,
					"metric", string(m),
					"reason", ue.Reason,
				)
				qm.Undefined = append(qm.Undefined, m)
				continue
			}
			qm.Values[m] = v
			sums[m] += v
			report.Counts[m]++
		}
		report.Queries = append(report.Queries, qm)
	}

	for _, m := range AllMetrics {
		if n := report.Counts[m]; n > 0 {
			report.Means[m] = sums[m] / float64(n)
		}
	}
	return report, nil
}

func compute(m Metric, retrieved []string, j Judgment, n int) (float64, error) {
	switch m {
	case MetricPrecision:
		return Precision(retrieved, j.Relevant())
	case MetricRecall:
		return Recall(retrieved, j.Relevant())
	case MetricPrecisionAtN:
		return PrecisionAtN(retrieved, j.Relevant(), n)
	case MetricRPrecision:
		return RPrecision(retrieved, j.Relevant())
	case MetricMAP:
		return AveragePrecision(retrieved, j.Relevant())
	case MetricBpref:
		return Bpref(retrieved, j)
	default:
		return 0, fmt.Errorf("unknown metric %q", m)
	}
}

func checkQuerySets(results Results, judgments Judgments) error {
	var onlyResults, onlyJudged []string
	for qid := range results {
		if _, ok := judgments[qid]; !ok {
			onlyResults = append(onlyResults, qid)
		}
	}
	for qid := range judgments {
		if _, ok := results[qid]; !ok {
			onlyJudged = append(onlyJudged, qid)
		}
	}
	if len(onlyResults) == 0 && len(onlyJudged) == 0 {
		return nil
	}
	sort.Slice(onlyResults, func(i, j int) bool { return lessQueryID(onlyResults[i], onlyResults[j]) })
	sort.Slice(onlyJudged, func(i, j int) bool { return lessQueryID(onlyJudged[i], onlyJudged[j]) })
	var parts []string
	if len(onlyResults) > 0 {
		parts = append(parts, "results without judgments: "+strings.Join(onlyResults, ","))
	}
	if len(onlyJudged) > 0 {
		parts = append(parts, "judgments without results: "+strings.Join(onlyJudged, ","))
	}
	return apperrors.New(apperrors.ErrQueryMismatch, strings.Join(parts, "; "))
}

// lessQueryID orders numeric ids numerically and everything else
// lexically, numeric ids first. Numerically equal ids such as "07" and "7"
// fall back to their raw text.
func lessQueryID(a, b string) bool {
	an, bn := isDigits(a), isDigits(b)
	switch {
	case an && bn:
		ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			return len(ta) < len(tb)
		}
		if ta != tb {
			return ta < tb
		}
		return a < b
	case an != bn:
		return an
	default:
		return a < b
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
