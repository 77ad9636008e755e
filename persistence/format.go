package persistence

import "errors"

const (
	// MagicNumber identifies quantvec index files (ASCII "QVEC").
	MagicNumber = 0x51564543
	// Version is the current file format version.
	Version = 0x00010000
)

// Compression selects the codec applied to everything after the file header.
type Compression uint8

const (
	// CompressionNone stores the body uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 applies LZ4 stream compression (fast, moderate ratio).
	CompressionLZ4 Compression = 1
	// CompressionZSTD applies zstd stream compression (slower, better ratio).
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
		return "unknown"
	}
}

var (
	ErrInvalidMagic       = errors.New("persistence: invalid magic number")
	ErrInvalidVersion     = errors.New("persistence: unsupported format version")
	ErrInvalidCompression = errors.New("persistence: unknown compression type")
)

// FileHeader is the fixed-size header at the start of every index file.
// It is always stored uncompressed and little-endian.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	Space       uint8 // distance space (l2=0, ip=1, cosine=2)
	Quant       uint8 // quantization mode (none=0, int8=1)
	Compression uint8 // body compression
	Padding     [5]byte
	Dimension   uint32
	M           uint32
	EFConstruct uint32
	MaxElements uint64
	Count       uint64 // elements ever inserted (graph nodes, tombstones included)
	EntryPoint  uint32
	TopLayer    int32
	Reserved    [16]byte
}
