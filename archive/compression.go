package archive

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm an entry payload is compressed with.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio, default).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a name ("none", "lz4", "zstd") to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: unknown compression %q", ErrInvalidArgument, name)
	}
}

// incompressibleRatio is the compressed/raw ratio above which raw storage wins.
const incompressibleRatio = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder(level int) (*zstd.Encoder, bool) {
	if level == DefaultOptions.CompressionLevel {
		if v := zstdEncoderPool.Get(); v != nil {
			return v.(*zstd.Encoder), true
		}
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, false
	}
	return enc, level == DefaultOptions.CompressionLevel
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxEntrySize))
}

// compress returns the stored form of data and the compression actually used.
func compress(data []byte, c Compression, level int) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, CompressionNone, err
		}
		out = buf[:n] // n == 0 means incompressible
	case CompressionZSTD:
		enc, pooled := getZstdEncoder(level)
		if enc == nil {
			return nil, CompressionNone, errors.New("zstd encoder unavailable")
		}
		out = enc.EncodeAll(data, nil)
		if pooled {
			zstdEncoderPool.Put(enc)
		} else {
			_ = enc.Close()
		}
	default:
		return nil, CompressionNone, fmt.Errorf("%w: unknown compression %d", ErrInvalidArgument, c)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*incompressibleRatio {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

// decompress restores a payload of rawSize bytes.
func decompress(data []byte, c Compression, rawSize uint64) ([]byte, error) {
	if rawSize > MaxEntrySize {
		return nil, fmt.Errorf("raw size %d exceeds %d", rawSize, MaxEntrySize)
	}
	switch c {
	case CompressionNone:
		if uint64(len(data)) != rawSize {
			return nil, errors.New("stored size mismatch")
		}
		return data, nil
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		if uint64(n) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(data, make([]byte, 0, rawSize))
		if err != nil {
			return nil, err
		}
		if uint64(len(out)) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}
