// Package sources opens comparison inputs from local disk or S3, undoing any
// compression indicated by the file extension.
package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/airframesio/split-verify/cmd/compressors"
)

// Opener resolves input locations to readable streams.
type Opener struct {
	S3     S3Config
	Logger *slog.Logger
}

// NewOpener creates an Opener. A nil logger discards output.
func NewOpener(cfg S3Config, logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Opener{S3: cfg, Logger: logger}
}

// Open returns the decompressed contents of location. The caller closes it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	raw, err := o.openRaw(ctx, location)
	if err != nil {
		return nil, err
	}

	compression := compressors.DetectCompression(location)
	o.Logger.Debug(fmt.Sprintf("Opening %s (compression: %s)", location, compression))

	compressor, err := compressors.GetCompressor(compression)
	if err != nil {
		raw.Close()
		return nil, err
	}

	reader, err := compressor.NewReader(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	return &stackedReadCloser{Reader: reader, closers: []io.Closer{reader, raw}}, nil
}

func (o *Opener) openRaw(ctx context.Context, location string) (io.ReadCloser, error) {
	if IsS3(location) {
		data, err := downloadS3(ctx, o.S3, location)
		if err != nil {
			return nil, err
		}
		o.Logger.Debug(fmt.Sprintf("Downloaded %s (%d bytes)", location, len(data)))
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// stackedReadCloser closes the decoder and then the underlying source.
type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
