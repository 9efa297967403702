package analytics

import "time"

type EventType string

const (
	EventIndexBuilt    EventType = "index_built"
	EventSnapshotLoad  EventType = "snapshot_load"
	EventSearch        EventType = "search"
	EventZeroResult    EventType = "zero_result"
	EventBatchComplete EventType = "batch_complete"
	EventEvaluation    EventType = "evaluation"
)

type IndexEvent struct {
	Type         EventType `json:"type"`
	DocCount     int       `json:"doc_count"`
	TermCount    int       `json:"term_count"`
	AvgDocLength float64   `json:"avg_doc_length"`
	Fingerprint  string    `json:"fingerprint"`
	Reason       string    `json:"reason"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

type SearchEvent struct {
	Type      EventType `json:"type"`
	QueryID   string    `json:"query_id,omitempty"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
}

type BatchEvent struct {
	Type        EventType `json:"type"`
	Queries     int       `json:"queries"`
	ZeroResults int       `json:"zero_results"`
	Lines       int       `json:"lines"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

type EvaluationEvent struct {
	Type      EventType          `json:"type"`
	Label     string             `json:"label"`
	Queries   int                `json:"queries"`
	Means     map[string]float64 `json:"means"`
	Timestamp time.Time          `json:"timestamp"`
}
