package index

// Posting records how often a term occurs in one document. Frequency is
// always at least 1; absent terms have no posting.
type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// Document is one corpus member handed to Build.
type Document struct {
	ID   string
	Text string
}

// Params are the BM25 constants persisted alongside an index.
type Params struct {
	K1 float64 `json:"k" yaml:"k1"`
	B  float64 `json:"b" yaml:"b"`
}

// DefaultParams returns k1=1.0 and b=0.75.
func DefaultParams() Params {
	return Params{K1: 1.0, B: 0.75}
}
