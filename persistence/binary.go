// Package persistence provides binary serialization for index snapshots.
//
// A snapshot is a fixed uncompressed FileHeader followed by a body that may
// be wrapped in LZ4 or zstd stream compression. The body layout is owned by
// the callers (index facade, vector stores, graph); this package supplies the
// primitive encoders so the format round-trips exactly.
package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"
)

// Writer encodes primitives to an underlying stream in little-endian order.
type Writer struct {
	w io.Writer
	// scratch avoids per-call allocations for small fixed-size writes.
	scratch [8]byte
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the file header, stamping magic and version.
func (bw *Writer) WriteHeader(h *FileHeader) error {
	h.Magic = MagicNumber
	h.Version = Version
	return binary.Write(bw.w, binary.LittleEndian, h)
}

// WriteUint32 writes a single uint32.
func (bw *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(bw.scratch[:4], v)
	_, err := bw.w.Write(bw.scratch[:4])
	return err
}

// WriteUint64 writes a single uint64.
func (bw *Writer) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(bw.scratch[:8], v)
	_, err := bw.w.Write(bw.scratch[:8])
	return err
}

// WriteInt32 writes a single int32.
func (bw *Writer) WriteInt32(v int32) error {
	return bw.WriteUint32(uint32(v))
}

// WriteFloat32Slice writes a float32 slice as raw little-endian bytes.
func (bw *Writer) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(b)
	return err
}

// WriteInt8Slice writes an int8 slice as raw bytes.
func (bw *Writer) WriteInt8Slice(code []int8) error {
	if len(code) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&code[0])), len(code))
	_, err := bw.w.Write(b)
	return err
}

// WriteUint32Slice writes a uint32 slice as raw bytes.
func (bw *Writer) WriteUint32Slice(s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := bw.w.Write(b)
	return err
}

// WriteBytes writes a length-prefixed byte blob.
func (bw *Writer) WriteBytes(b []byte) error {
	if err := bw.WriteUint64(uint64(len(b))); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := bw.w.Write(b)
	return err
}

// Reader decodes primitives from an underlying stream.
type Reader struct {
	r       io.Reader
	scratch [8]byte
}

// NewReader creates a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadHeader reads and validates the file header.
func (br *Reader) ReadHeader() (*FileHeader, error) {
	var h FileHeader
	if err := binary.Read(br.r, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if h.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, h.Version)
	}
	return &h, nil
}

// ReadUint32 reads a single uint32.
func (br *Reader) ReadUint32() (uint32, error) {
	if _, err := io.ReadFull(br.r, br.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(br.scratch[:4]), nil
}

// ReadUint64 reads a single uint64.
func (br *Reader) ReadUint64() (uint64, error) {
	if _, err := io.ReadFull(br.r, br.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(br.scratch[:8]), nil
}

// ReadInt32 reads a single int32.
func (br *Reader) ReadInt32() (int32, error) {
	v, err := br.ReadUint32()
	return int32(v), err
}

// ReadFloat32SliceInto fills vec from the stream.
func (br *Reader) ReadFloat32SliceInto(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := io.ReadFull(br.r, b)
	return err
}

// ReadInt8SliceInto fills code from the stream.
func (br *Reader) ReadInt8SliceInto(code []int8) error {
	if len(code) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&code[0])), len(code))
	_, err := io.ReadFull(br.r, b)
	return err
}

// ReadUint32Slice reads count uint32 values.
func (br *Reader) ReadUint32Slice(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	s := make([]uint32, count)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), count*4)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadBytes reads a length-prefixed byte blob.
func (br *Reader) ReadBytes() ([]byte, error) {
	n, err := br.ReadUint64()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, err
	}
	return b, nil
}
