// Package compress shrinks report payloads before they are written to the
// scan history.
//
// ZSTD is the default. Gzip is kept for stores that must be readable by
// standard tooling. Decompress recognises the algorithm from the payload's
// magic bytes, so a store can change algorithm without rewriting old rows.
//
//	c := compress.NewCompressor(compress.AlgorithmZSTD, compress.LevelDefault)
//	blob, err := c.Compress(reportJSON)
//	...
//	reportJSON, err = compress.Decompress(blob)
package compress

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	AlgorithmZSTD Algorithm = "zstd"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmNone Algorithm = "none"
)

// ParseAlgorithm parses an algorithm name. The empty string means ZSTD.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AlgorithmZSTD, nil
	case AlgorithmZSTD, AlgorithmGzip, AlgorithmNone:
		return a, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", s)
	}
}

// Level represents compression level.
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 3
	LevelBest    Level = 9
)

// MinCompressSize is the payload size below which Compress stores data as is.
// Small reports gain nothing from a frame header.
const MinCompressSize = 512

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Compressor compresses payloads with one algorithm.
type Compressor struct {
	algorithm Algorithm
	level     Level

	// ZSTD encoders are reused across calls.
	zstdEncoderPool sync.Pool
}

// NewCompressor creates a new compressor with the specified algorithm and level.
func NewCompressor(algorithm Algorithm, level Level) *Compressor {
	c := &Compressor{
		algorithm: algorithm,
		level:     level,
	}
	if algorithm == AlgorithmZSTD {
		c.zstdEncoderPool = sync.Pool{
			New: func() any {
				enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(level))))
				return enc
			},
		}
	}
	return c
}

// Algorithm returns the compression algorithm.
func (c *Compressor) Algorithm() Algorithm {
	return c.algorithm
}

// Compress compresses data. Payloads smaller than MinCompressSize are
// returned unchanged.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) < MinCompressSize {
		return data, nil
	}
	switch c.algorithm {
	case AlgorithmZSTD:
		return c.compressZSTD(data)
	case AlgorithmGzip:
		return c.compressGzip(data)
	case AlgorithmNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", c.algorithm)
	}
}

func (c *Compressor) compressZSTD(data []byte) ([]byte, error) {
	enc := c.zstdEncoderPool.Get().(*zstd.Encoder)
	defer c.zstdEncoderPool.Put(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	if _, err := enc.Write(data); err != nil {
		return nil, fmt.Errorf("zstd write error: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close error: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	level := gzip.DefaultCompression
	if c.level <= LevelDefault {
		level = gzip.BestSpeed
	} else if c.level >= 7 {
		level = gzip.BestCompression
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer error: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write error: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close error: %w", err)
	}
	return buf.Bytes(), nil
}

// Detect returns the algorithm data was compressed with, judged by its magic
// bytes. Anything unrecognised is AlgorithmNone.
func Detect(data []byte) Algorithm {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return AlgorithmZSTD
	case bytes.HasPrefix(data, gzipMagic):
		return AlgorithmGzip
	default:
		return AlgorithmNone
	}
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

// Decompress reverses Compress for any algorithm.
func Decompress(data []byte) ([]byte, error) {
	switch Detect(data) {
	case AlgorithmZSTD:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)
		if err := dec.Reset(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("zstd reset error: %w", err)
		}
		out, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress error: %w", err)
		}
		return out, nil

	case AlgorithmGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader error: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("gzip decompress error: %w", err)
		}
		return out, nil

	default:
		return data, nil
	}
}

// Stats describes one compression.
type Stats struct {
	OriginalSize   int       `json:"original_size"`
	CompressedSize int       `json:"compressed_size"`
	Algorithm      Algorithm `json:"algorithm"`
}

// Ratio returns compressed/original, or 1 for empty input.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 1
	}
	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// CompressWithStats compresses data and reports the sizes and the algorithm
// actually applied.
func (c *Compressor) CompressWithStats(data []byte) ([]byte, Stats, error) {
	out, err := c.Compress(data)
	if err != nil {
		return nil, Stats{}, err
	}
	return out, Stats{
		OriginalSize:   len(data),
		CompressedSize: len(out),
		Algorithm:      Detect(out),
	}, nil
}
