package persistence

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := &FileHeader{
		Space:       2,
		Quant:       1,
		Compression: uint8(CompressionZSTD),
		Dimension:   128,
		M:           16,
		EFConstruct: 200,
		MaxElements: 10000,
		Count:       42,
		EntryPoint:  7,
		TopLayer:    3,
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteHeader(h))

	got, err := NewReader(&buf).ReadHeader()
	require.NoError(t, err)

	assert.Equal(t, uint32(MagicNumber), got.Magic)
	assert.Equal(t, uint32(Version), got.Version)
	assert.Equal(t, h.Space, got.Space)
	assert.Equal(t, h.Quant, got.Quant)
	assert.Equal(t, h.Compression, got.Compression)
	assert.Equal(t, h.Dimension, got.Dimension)
	assert.Equal(t, h.M, got.M)
	assert.Equal(t, h.EFConstruct, got.EFConstruct)
	assert.Equal(t, h.MaxElements, got.MaxElements)
	assert.Equal(t, h.Count, got.Count)
	assert.Equal(t, h.EntryPoint, got.EntryPoint)
	assert.Equal(t, h.TopLayer, got.TopLayer)
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteHeader(&FileHeader{}))

	raw := buf.Bytes()
	raw[0] ^= 0xFF

	_, err := NewReader(bytes.NewReader(raw)).ReadHeader()
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestHeaderRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteHeader(&FileHeader{}))

	raw := buf.Bytes()
	raw[4] ^= 0xFF

	_, err := NewReader(bytes.NewReader(raw)).ReadHeader()
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestScalarRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bw := NewWriter(&buf)
	require.NoError(t, bw.WriteUint32(0xDEADBEEF))
	require.NoError(t, bw.WriteUint64(1<<40+3))
	require.NoError(t, bw.WriteInt32(-7))

	br := NewReader(&buf)
	u32, err := br.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := br.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40+3), u64)

	i32, err := br.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)
}

func TestSliceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bw := NewWriter(&buf)

	floats := []float32{1.5, -2.25, 0, 3e8}
	codes := []int8{-128, -1, 0, 1, 127}
	ids := []uint32{0, 1, 1 << 30}
	blob := []byte("tombstones")

	require.NoError(t, bw.WriteFloat32Slice(floats))
	require.NoError(t, bw.WriteInt8Slice(codes))
	require.NoError(t, bw.WriteUint32Slice(ids))
	require.NoError(t, bw.WriteBytes(blob))

	br := NewReader(&buf)

	gotFloats := make([]float32, len(floats))
	require.NoError(t, br.ReadFloat32SliceInto(gotFloats))
	assert.Equal(t, floats, gotFloats)

	gotCodes := make([]int8, len(codes))
	require.NoError(t, br.ReadInt8SliceInto(gotCodes))
	assert.Equal(t, codes, gotCodes)

	gotIDs, err := br.ReadUint32Slice(len(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, gotIDs)

	gotBlob, err := br.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, blob, gotBlob)
}

func TestBodyCompressionRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("quantized vectors compress well "), 1024)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewBodyWriter(&buf, c)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if c != CompressionNone {
				assert.Less(t, buf.Len(), len(payload))
			}

			r, err := NewBodyReader(&buf, c)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestBodyRejectsUnknownCompression(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewBodyWriter(&buf, Compression(9))
	assert.ErrorIs(t, err, ErrInvalidCompression)
	_, err = NewBodyReader(&buf, Compression(9))
	assert.ErrorIs(t, err, ErrInvalidCompression)
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")

	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("snapshot"))
		return err
	}))

	var got []byte
	require.NoError(t, LoadFromFile(path, func(r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	}))
	assert.Equal(t, []byte("snapshot"), got)
}

func TestSaveFileFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	err := SaveToFile(path, func(w io.Writer) error {
		return assert.AnError
	})
	require.Error(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
