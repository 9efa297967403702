// Package index implements the immutable inverted index: stem to per-document
// frequency, per-document lengths, and the corpus statistics BM25 needs.
package index

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"github.com/zeebo/blake3"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

// avgTolerance bounds the relative drift allowed between a persisted average
// document length and the one recomputed from document lengths.
const avgTolerance = 1e-9

// Index is read-only once constructed and may be shared by concurrent readers.
type Index struct {
	params   Params
	avgDL    float64
	docLens  map[string]int
	postings map[string]map[string]int
	docIDs   []string

	fingerprint string
}

// New assembles an Index from persisted parts and validates them: the corpus
// must be non-empty, every frequency must be positive and refer to a known
// document, and avgDL must match the document lengths.
func New(params Params, avgDL float64, docLens map[string]int, postings map[string]map[string]int) (*Index, error) {
	if len(docLens) == 0 {
		return nil, apperrors.New(apperrors.ErrDegenerateCorpus, "index has no documents")
	}
	for term, docs := range postings {
		if len(docs) == 0 {
			return nil, apperrors.Newf(apperrors.ErrCorruptSnapshot, "term %q has an empty posting list", term)
		}
		for docID, freq := range docs {
			if freq < 1 {
				return nil, apperrors.Newf(apperrors.ErrCorruptSnapshot,
					"term %q has frequency %d in %q", term, freq, docID)
			}
			if _, ok := docLens[docID]; !ok {
				return nil, apperrors.Newf(apperrors.ErrCorruptSnapshot,
					"term %q refers to unknown document %q", term, docID)
			}
		}
	}
	expected := averageLength(docLens)
	if math.IsNaN(avgDL) || math.Abs(avgDL-expected) > avgTolerance*math.Max(1, expected) {
		return nil, apperrors.Newf(apperrors.ErrCorruptSnapshot,
			"stale avg_DL: persisted %g, document lengths give %g", avgDL, expected)
	}
	return newIndex(params, expected, docLens, postings), nil
}

func newIndex(params Params, avgDL float64, docLens map[string]int, postings map[string]map[string]int) *Index {
	docIDs := make([]string, 0, len(docLens))
	for id := range docLens {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)
	return &Index{
		params:      params,
		avgDL:       avgDL,
		docLens:     docLens,
		postings:    postings,
		docIDs:      docIDs,
		fingerprint: fingerprint(avgDL, docIDs, docLens, postings),
	}
}

func averageLength(docLens map[string]int) float64 {
	if len(docLens) == 0 {
		return 0
	}
	total := 0
	for _, n := range docLens {
		total += n
	}
	return float64(total) / float64(len(docLens))
}

func (idx *Index) Params() Params {
	return idx.params
}

// WithParams returns a view of the index scored with different BM25
// constants. The posting data and the fingerprint are shared.
func (idx *Index) WithParams(p Params) *Index {
	clone := *idx
	clone.params = p
	return &clone
}

func (idx *Index) AvgDocLength() float64 {
	return idx.avgDL
}

func (idx *Index) DocCount() int {
	return len(idx.docIDs)
}

// DocLength returns the stored length of docID, or 0 for an unknown id.
func (idx *Index) DocLength(docID string) int {
	return idx.docLens[docID]
}

// DocIDs returns all document ids in lexical order.
func (idx *Index) DocIDs() []string {
	out := make([]string, len(idx.docIDs))
	copy(out, idx.docIDs)
	return out
}

func (idx *Index) DocLengths() map[string]int {
	out := make(map[string]int, len(idx.docLens))
	for id, n := range idx.docLens {
		out[id] = n
	}
	return out
}

// Contains reports whether term occurs anywhere in the corpus.
func (idx *Index) Contains(term string) bool {
	_, ok := idx.postings[term]
	return ok
}

// TermFrequency returns the occurrences of term in docID, 0 when absent.
func (idx *Index) TermFrequency(term, docID string) int {
	return idx.postings[term][docID]
}

// DocFrequency returns the number of documents containing term.
func (idx *Index) DocFrequency(term string) int {
	return len(idx.postings[term])
}

func (idx *Index) TermCount() int {
	return len(idx.postings)
}

// Search returns the posting list of term sorted by document id.
func (idx *Index) Search(term string) PostingList {
	docs, exists := idx.postings[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for docID, freq := range docs {
		result = append(result, Posting{DocID: docID, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot returns every term with its postings, both sorted, for
// serialisation.
func (idx *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(idx.postings))
	for term := range idx.postings {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: idx.Search(term),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Fingerprint is a stable content hash over document lengths and postings,
// computed once when the index is assembled. BM25 parameters are not part of
// it; WithParams views share their parent's fingerprint.
func (idx *Index) Fingerprint() string {
	return idx.fingerprint
}

func fingerprint(avgDL float64, docIDs []string, docLens map[string]int, postings map[string]map[string]int) string {
	h := blake3.New()
	var buf [8]byte
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	writeInt := func(n int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}

	writeFloat(avgDL)
	for _, id := range docIDs {
		writeString(id)
		writeInt(docLens[id])
	}
	terms := make([]string, 0, len(postings))
	for term := range postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	ids := make([]string, 0)
	for _, term := range terms {
		writeString(term)
		ids = ids[:0]
		for id := range postings[term] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			writeString(id)
			writeInt(postings[term][id])
		}
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
