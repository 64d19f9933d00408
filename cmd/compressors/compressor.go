package compressors

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedCompression is returned when an unsupported compression type is requested
var ErrUnsupportedCompression = errors.New("unsupported compression type")

// Compressor decodes one compressed input format
type Compressor interface {
	// NewReader wraps r with a decompressing reader
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// GetCompressor returns the appropriate compressor based on the compression string
func GetCompressor(compression string) (Compressor, error) {
	switch compression {
	case "zstd":
		return NewZstdCompressor(), nil
	case "lz4":
		return NewLZ4Compressor(), nil
	case "gzip":
		return NewGzipCompressor(), nil
	case "none":
		return NewNoneCompressor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, compression)
	}
}

// DetectCompression names the compression of a path from its extension.
// Paths without a known extension are "none".
func DetectCompression(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return "zstd"
	case strings.HasSuffix(lower, ".lz4"):
		return "lz4"
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		return "gzip"
	default:
		return "none"
	}
}

// NoneCompressor passes input through unchanged
type NoneCompressor struct{}

// NewNoneCompressor creates a new pass-through compressor
func NewNoneCompressor() *NoneCompressor {
	return &NoneCompressor{}
}

// NewReader returns r unchanged
func (c *NoneCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}
