package http

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the request body encoding.
type Compression string

const (
	CompressionNone    Compression = "none"
	CompressionDeflate Compression = "deflate"
	CompressionGzip    Compression = "gzip"
	CompressionZstd    Compression = "zstd"
)

// ParseCompression parses a compression name. The empty string means none.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(name))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionDeflate, CompressionGzip, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression: %q", name)
	}
}

// ContentEncoding returns the Content-Encoding header value, or "" for none.
func (c Compression) ContentEncoding() string {
	if c == CompressionNone || c == "" {
		return ""
	}
	return string(c)
}

// zstd.Encoder is safe for concurrent use with EncodeAll.
var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

// Compress encodes data. CompressionNone returns data unchanged.
func (c Compression) Compress(data []byte) ([]byte, error) {
	switch c {
	case CompressionNone, "":
		return data, nil

	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil

	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionDeflate:
		// HTTP "deflate" is the zlib format.
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression: %q", string(c))
	}
}
