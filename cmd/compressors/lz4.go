package compressors

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Compressor handles LZ4 frame input
type LZ4Compressor struct{}

// NewLZ4Compressor creates a new LZ4 compressor
func NewLZ4Compressor() *LZ4Compressor {
	return &LZ4Compressor{}
}

// NewReader wraps r with an lz4 frame decoder
func (c *LZ4Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
