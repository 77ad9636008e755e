package persistence

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// bodyBufferSize batches body writes; snapshots are write-once streams, so a
// large buffer pays off.
const bodyBufferSize = 256 * 1024

type nopFlushCloser struct {
	*bufio.Writer
}

func (n nopFlushCloser) Close() error { return n.Flush() }

// NewBodyWriter wraps w with the selected compression codec.
// The returned WriteCloser must be closed to flush the codec frame before the
// underlying file is synced.
func NewBodyWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopFlushCloser{bufio.NewWriterSize(w, bodyBufferSize)}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZSTD:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, c)
	}
}

// NewBodyReader wraps r with the codec matching the header's compression
// byte.
func NewBodyReader(r io.Reader, c Compression) (io.Reader, error) {
	switch c {
	case CompressionNone:
		return bufio.NewReaderSize(r, bodyBufferSize), nil
	case CompressionLZ4:
		return lz4.NewReader(r), nil
	case CompressionZSTD:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, c)
	}
}
