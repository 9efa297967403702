package snapshot

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
	"github.com/zeebo/blake3"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
)

// lockPath returns the advisory lock file guarding a snapshot. Writers hold it
// exclusively, readers shared, so a rebuild never races a load.
func lockPath(path string) string {
	return path + ".lock"
}

// Write encodes idx and atomically replaces the file at path.
func Write(path string, idx *index.Index, opts Options) (Info, error) {
	if opts.Codec == 0 {
		opts.Codec = CodecJSON
	}
	rec := toRecord(idx)
	encoded, err := encode(rec, opts.Codec)
	if err != nil {
		return Info{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	payload, err := compress(encoded, opts.Compression)
	if err != nil {
		return Info{}, fmt.Errorf("compressing snapshot: %w", err)
	}

	now := time.Now()
	header := Header{
		Magic:       MagicBytes,
		Version:     FormatVersion,
		Codec:       opts.Codec,
		Compression: opts.Compression,
		PayloadSize: uint64(len(payload)),
		CreatedAt:   now.Unix(),
		Checksum:    blake3.Sum256(payload),
	}
	data := make([]byte, 0, HeaderSize+len(payload))
	data = append(data, marshalHeader(header)...)
	data = append(data, payload...)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Info{}, fmt.Errorf("creating snapshot directory: %w", err)
	}
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return Info{}, fmt.Errorf("locking snapshot for write: %w", err)
	}
	defer lock.Unlock()

	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return Info{}, fmt.Errorf("writing snapshot file: %w", err)
	}
	return Info{
		Path:        path,
		Codec:       opts.Codec,
		Compression: opts.Compression,
		Size:        int64(len(data)),
		CreatedAt:   time.Unix(header.CreatedAt, 0),
	}, nil
}

func toRecord(idx *index.Index) *record {
	params := idx.Params()
	tf := make(map[string]map[string]int, idx.TermCount())
	for _, entry := range idx.Snapshot() {
		docs := make(map[string]int, len(entry.Postings))
		for _, p := range entry.Postings {
			docs[p.DocID] = p.Frequency
		}
		tf[entry.Term] = docs
	}
	return &record{
		GlobalVars: globalVars{
			K:     params.K1,
			B:     params.B,
			AvgDL: idx.AvgDocLength(),
		},
		DocLens: idx.DocLengths(),
		TF:      tf,
	}
}

func marshalHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	buf[8] = byte(h.Codec)
	buf[9] = byte(h.Compression)
	binary.LittleEndian.PutUint64(buf[16:24], h.PayloadSize)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.CreatedAt))
	copy(buf[32:64], h.Checksum[:])
	return buf
}
