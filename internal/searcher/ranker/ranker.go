// Package ranker scores documents against a set of query stems with Okapi
// BM25 and orders them best-first.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Scorer computes BM25 scores against a single immutable index.
type Scorer struct {
	idx       *index.Index
	k1        float64
	b         float64
	avgDL     float64
	totalDocs int
}

func NewScorer(idx *index.Index) *Scorer {
	p := idx.Params()
	return &Scorer{
		idx:       idx,
		k1:        p.K1,
		b:         p.B,
		avgDL:     idx.AvgDocLength(),
		totalDocs: idx.DocCount(),
	}
}

// IDF returns the inverse document frequency of term, floored at zero.
// Terms missing from the index have an IDF of exactly zero.
func (s *Scorer) IDF(term string) float64 {
	if !s.idx.Contains(term) {
		return 0
	}
	return computeIDF(s.totalDocs, s.idx.DocFrequency(term))
}

// Score sums the BM25 contribution of every query stem for docID.
func (s *Scorer) Score(docID string, terms map[string]struct{}) float64 {
	docLen := s.idx.DocLength(docID)
	var score float64
	for term := range terms {
		tf := s.idx.TermFrequency(term, docID)
		score += s.IDF(term) * computeTFNorm(tf, docLen, s.avgDL, s.k1, s.b)
	}
	return score
}

// Rank scores every document that contains at least one query stem and
// returns those with a positive score, best first. Ties are broken by
// document id so the order is stable across runs.
func Rank(idx *index.Index, terms map[string]struct{}) []ScoredDoc {
	s := NewScorer(idx)
	scores := make(map[string]float64)
	for term := range terms {
		idf := s.IDF(term)
		if idf == 0 {
			continue
		}
		for _, posting := range idx.Search(term) {
			tfNorm := computeTFNorm(
				posting.Frequency,
				idx.DocLength(posting.DocID),
				s.avgDL,
				s.k1,
				s.b,
			)
			scores[posting.DocID] += idf * tfNorm
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		result = append(result, ScoredDoc{
			DocID: docID,
			Score: score,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Top returns at most limit results. A non-positive limit keeps all of them.
func Top(results []ScoredDoc, limit int) []ScoredDoc {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

func computeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs-docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Max(math.Log2(numerator/denominator), 0)
}

func computeTFNorm(termFreq int, docLength int, avgDocLength float64, k1 float64, b float64) float64 {
	if termFreq == 0 || avgDocLength == 0 {
		return 0
	}
	tf := float64(termFreq)
	lengthRatio := float64(docLength) / avgDocLength
	denominator := tf + k1*(1-b+b*lengthRatio)
	return (tf * (k1 + 1)) / denominator
}
