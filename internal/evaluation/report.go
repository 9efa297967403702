package evaluation

import (
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/ui"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/metrics"
)

// Render writes the metric means, one per line, followed by a note for
// every metric that some queries could not contribute to.
func Render(w io.Writer, r *Report, styles ui.Styles) error {
	var sb strings.Builder
	title := "Evaluation scores"
	if r.Label != "" {
		title += " for " + r.Label
	}
	sb.WriteString(styles.Header.Render(title))
	sb.WriteString("\n")

	width := 0
	for _, m := range AllMetrics {
		width = max(width, len(m.Label(r.N)))
	}
	total := len(r.Queries)
	var notes []string
	for _, m := range AllMetrics {
		label := fmt.Sprintf("%-*s :", width, m.Label(r.N))
		value := "undefined"
		if mean, ok := r.Mean(m); ok {
			value = fmt.Sprintf("%.4f", mean)
		}
		sb.WriteString(styles.Label.Render(label))
		sb.WriteString(" ")
		sb.WriteString(styles.Value.Render(value))
		sb.WriteString("\n")
		if n := r.Counts[m]; n < total {
			notes = append(notes, fmt.Sprintf("%s averaged over %d of %d queries", m.Label(r.N), n, total))
		}
	}
	sb.WriteString(styles.Dim.Render(fmt.Sprintf("%d queries evaluated", total)))
	for _, note := range notes {
		sb.WriteString("\n")
		sb.WriteString(styles.Warn.Render(note))
	}

	_, err := fmt.Fprintln(w, styles.Panel.Render(sb.String()))
	return err
}

// Observe publishes the report means on the evaluation gauges.
func (r *Report) Observe(m *metrics.Metrics) {
	if m == nil {
		return
	}
	m.EvaluationQueriesTotal.Add(float64(len(r.Queries)))
	for _, metric := range AllMetrics {
		if mean, ok := r.Mean(metric); ok {
			m.EvaluationMetricMean.WithLabelValues(string(metric)).Set(mean)
		}
	}
}

// MeansByName returns the defined means keyed by metric name.
func (r *Report) MeansByName() map[string]float64 {
	out := make(map[string]float64, len(r.Means))
	for _, m := range AllMetrics {
		if mean, ok := r.Mean(m); ok {
			out[string(m)] = mean
		}
	}
	return out
}

// RenderComparison writes the change of each mean against previous, the
// means of an earlier run. Metrics missing from either side are skipped.
func RenderComparison(w io.Writer, r *Report, previous map[Metric]float64, styles ui.Styles) error {
	if len(previous) == 0 {
		_, err := fmt.Fprintln(w, styles.Dim.Render("no previous run to compare with"))
		return err
	}
	for _, m := range AllMetrics {
		mean, ok := r.Mean(m)
		prev, had := previous[m]
		if !ok || !had {
			continue
		}
		delta := mean - prev
		style := styles.Dim
		switch {
		case delta > 0:
			style = styles.Score
		case delta < 0:
			style = styles.Warn
		}
		if _, err := fmt.Fprintf(w, "%s %s\n",
			styles.Label.Render(fmt.Sprintf("%-6s :", m.Label(r.N))),
			style.Render(fmt.Sprintf("%+.4f vs previous run", delta)),
		); err != nil {
			return err
		}
	}
	return nil
}
