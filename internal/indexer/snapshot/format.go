// Package snapshot persists an index to a single file and reads it back.
//
// A snapshot is a 64-byte header followed by the encoded payload:
//
//	0:4    magic "BM25" (little endian 0x35324D42)
//	4:8    format version
//	8      codec tag (json, cbor)
//	9      compression tag (none, zstd)
//	16:24  payload size in bytes
//	24:32  creation time, unix seconds
//	32:64  BLAKE3-256 of the stored payload
//
// The payload is the structured record {global_vars{k, b, avg_DL},
// doc_len_dict, tf_dict}. A file that is a bare JSON object of that shape is
// accepted as a legacy snapshot.
package snapshot

import (
	"fmt"
	"time"
)

const (
	MagicBytes    uint32 = 0x35324D42
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
)

// Codec identifies how the payload record is encoded.
type Codec uint8

const (
	CodecJSON Codec = 1
	CodecCBOR Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecJSON:
		return "json"
	case CodecCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

func ParseCodec(name string) (Codec, error) {
	switch name {
	case "json", "":
		return CodecJSON, nil
	case "cbor":
		return CodecCBOR, nil
	default:
		return 0, fmt.Errorf("unknown snapshot codec: %q", name)
	}
}

// Compression identifies how the encoded payload is compressed.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown snapshot compression: %q", name)
	}
}

// Options select the payload encoding for Write.
type Options struct {
	Codec       Codec
	Compression Compression
}

// Header is the fixed-size header at the start of every snapshot file.
type Header struct {
	Magic       uint32
	Version     uint32
	Codec       Codec
	Compression Compression
	PayloadSize uint64
	CreatedAt   int64
	Checksum    [32]byte
}

// Info describes a snapshot that was written or read.
type Info struct {
	Path        string
	Codec       Codec
	Compression Compression
	Size        int64
	CreatedAt   time.Time
	Legacy      bool
}

type globalVars struct {
	K     float64 `json:"k" cbor:"k"`
	B     float64 `json:"b" cbor:"b"`
	AvgDL float64 `json:"avg_DL" cbor:"avg_DL"`
}

type record struct {
	GlobalVars globalVars                `json:"global_vars" cbor:"global_vars"`
	DocLens    map[string]int            `json:"doc_len_dict" cbor:"doc_len_dict"`
	TF         map[string]map[string]int `json:"tf_dict" cbor:"tf_dict"`
}
