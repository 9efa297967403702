package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/zeebo/blake3"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/errors"
)

// Read loads the snapshot at path. A missing file returns an error satisfying
// errors.Is(err, fs.ErrNotExist); any decoding, checksum or consistency
// failure returns an error wrapping ErrCorruptSnapshot.
func Read(path string) (*index.Index, Info, error) {
	data, err := readLocked(path)
	if err != nil {
		return nil, Info{}, err
	}
	info := Info{Path: path, Size: int64(len(data))}

	var rec *record
	if trimmed := bytes.TrimLeft(data, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '{' {
		rec, err = decode(trimmed, CodecJSON)
		if err != nil {
			return nil, info, corrupt(path, err)
		}
		info.Codec = CodecJSON
		info.Legacy = true
	} else {
		header, err := parseHeader(data)
		if err != nil {
			return nil, info, corrupt(path, err)
		}
		payload := data[HeaderSize:]
		if uint64(len(payload)) != header.PayloadSize {
			return nil, info, corrupt(path, fmt.Errorf("payload size %d, header says %d", len(payload), header.PayloadSize))
		}
		if blake3.Sum256(payload) != header.Checksum {
			return nil, info, corrupt(path, fmt.Errorf("checksum mismatch"))
		}
		decoded, err := decompress(payload, header.Compression)
		if err != nil {
			return nil, info, corrupt(path, err)
		}
		rec, err = decode(decoded, header.Codec)
		if err != nil {
			return nil, info, corrupt(path, err)
		}
		info.Codec = header.Codec
		info.Compression = header.Compression
		info.CreatedAt = time.Unix(header.CreatedAt, 0)
	}

	params := index.Params{K1: rec.GlobalVars.K, B: rec.GlobalVars.B}
	idx, err := index.New(params, rec.GlobalVars.AvgDL, rec.DocLens, rec.TF)
	if err != nil {
		return nil, info, corrupt(path, err)
	}
	return idx, info, nil
}

func readLocked(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	lock := flock.New(lockPath(path))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking snapshot for read: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("file shorter than header (%d bytes)", len(data))
	}
	h := Header{
		Magic:       binary.LittleEndian.Uint32(data[0:4]),
		Version:     binary.LittleEndian.Uint32(data[4:8]),
		Codec:       Codec(data[8]),
		Compression: Compression(data[9]),
		PayloadSize: binary.LittleEndian.Uint64(data[16:24]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(data[24:32])),
	}
	copy(h.Checksum[:], data[32:64])
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("unsupported format version %d", h.Version)
	}
	return h, nil
}

func corrupt(path string, err error) error {
	return apperrors.Newf(apperrors.ErrCorruptSnapshot, "%s: %v", path, err)
}
