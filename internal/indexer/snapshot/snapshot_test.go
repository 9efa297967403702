package snapshot

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

func buildIndex(t *testing.T) *index.Index {
	t.Helper()
	docs := []index.Document{
		{ID: "d1", Text: "cat dog"},
		{ID: "d2", Text: "dog dog fish"},
		{ID: "d3", Text: "bird tree"},
	}
	analyzer := tokenizer.NewAnalyzer(nil, tokenizer.Identity)
	idx, err := index.Build(docs, analyzer, index.Params{K1: 1.2, B: 0.6}, index.BuildOptions{CountStopwords: true})
	require.NoError(t, err)
	return idx
}

func TestWriteRead_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"json", Options{Codec: CodecJSON, Compression: CompressionNone}},
		{"cbor", Options{Codec: CodecCBOR, Compression: CompressionNone}},
		{"json+zstd", Options{Codec: CodecJSON, Compression: CompressionZstd}},
		{"cbor+zstd", Options{Codec: CodecCBOR, Compression: CompressionZstd}},
		{"zero value defaults to json", Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := buildIndex(t)
			path := filepath.Join(t.TempDir(), "index.snapshot")

			written, err := Write(path, idx, tt.opts)
			require.NoError(t, err)
			assert.Greater(t, written.Size, int64(HeaderSize))

			loaded, info, err := Read(path)
			require.NoError(t, err)
			assert.False(t, info.Legacy)
			assert.Equal(t, written.Codec, info.Codec)
			assert.Equal(t, tt.opts.Compression, info.Compression)

			assert.Equal(t, idx.Fingerprint(), loaded.Fingerprint())
			assert.Equal(t, idx.Params(), loaded.Params())
			assert.Equal(t, idx.AvgDocLength(), loaded.AvgDocLength())
			assert.Equal(t, idx.DocLengths(), loaded.DocLengths())
			assert.Equal(t, idx.Snapshot(), loaded.Snapshot())
		})
	}
}

func TestRead_LegacyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	legacy := `{
	"global_vars": {"k": 1.0, "b": 0.75, "avg_DL": 2.5},
	"doc_len_dict": {"d1": 2, "d2": 3},
	"tf_dict": {"cat": {"d1": 1}, "dog": {"d1": 1, "d2": 2}, "fish": {"d2": 1}}
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	idx, info, err := Read(path)
	require.NoError(t, err)
	assert.True(t, info.Legacy)
	assert.Equal(t, 2, idx.DocCount())
	assert.Equal(t, 2, idx.TermFrequency("dog", "d2"))
	assert.Equal(t, index.DefaultParams(), idx.Params())
}

func TestRead_MissingFile(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "nope.snapshot"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, apperrors.ErrCorruptSnapshot)
}

func TestRead_CorruptInputs(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.snapshot")
	_, err := Write(good, buildIndex(t), Options{Codec: CodecJSON})
	require.NoError(t, err)
	valid, err := os.ReadFile(good)
	require.NoError(t, err)

	flipped := append([]byte(nil), valid...)
	flipped[len(flipped)-2] ^= 0xFF

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 'X'

	tests := []struct {
		name string
		data []byte
	}{
		{"flipped payload byte", flipped},
		{"truncated payload", valid[:len(valid)-5]},
		{"truncated header", valid[:10]},
		{"bad magic", badMagic},
		{"garbage json", []byte(`{"global_vars": `)},
		{"stale avg_DL", []byte(`{"global_vars":{"k":1,"b":0.75,"avg_DL":9},"doc_len_dict":{"d1":2},"tf_dict":{}}`)},
		{"empty corpus", []byte(`{"global_vars":{"k":1,"b":0.75,"avg_DL":0},"doc_len_dict":{},"tf_dict":{}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "case.snapshot")
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))
			_, _, err := Read(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrCorruptSnapshot)
		})
	}
}

func TestWrite_ReplacesExistingSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.snapshot")
	first := buildIndex(t)
	_, err := Write(path, first, Options{})
	require.NoError(t, err)

	analyzer := tokenizer.NewAnalyzer(nil, tokenizer.Identity)
	second, err := index.Build([]index.Document{{ID: "only", Text: "word"}}, analyzer, index.DefaultParams(), index.BuildOptions{CountStopwords: true})
	require.NoError(t, err)
	_, err = Write(path, second, Options{Codec: CodecCBOR})
	require.NoError(t, err)

	loaded, _, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, second.Fingerprint(), loaded.Fingerprint())
}

func TestParseCodecAndCompression(t *testing.T) {
	c, err := ParseCodec("cbor")
	require.NoError(t, err)
	assert.Equal(t, "cbor", c.String())
	_, err = ParseCodec("xml")
	assert.Error(t, err)

	z, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, "zstd", z.String())
	_, err = ParseCompression("lz4")
	assert.Error(t, err)
}
