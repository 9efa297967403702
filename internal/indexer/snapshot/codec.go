package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// cborEnc uses Core Deterministic Encoding so the same index always produces
// the same bytes.
var cborEnc cbor.EncMode

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
}

func encode(rec *record, codec Codec) ([]byte, error) {
	switch codec {
	case CodecJSON:
		return json.Marshal(rec)
	case CodecCBOR:
		return cborEnc.Marshal(rec)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec)
	}
}

func decode(data []byte, codec Codec) (*record, error) {
	var rec record
	var err error
	switch codec {
	case CodecJSON:
		err = json.Unmarshal(data, &rec)
	case CodecCBOR:
		err = cbor.Unmarshal(data, &rec)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", codec, err)
	}
	return &rec, nil
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data)/3)), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}
