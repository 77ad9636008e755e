package quantvec

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/quantvec/quantvec/distance"
	"github.com/quantvec/quantvec/persistence"
)

// Snapshot layout: an uncompressed fixed-size header, then a body that is
// optionally stream-compressed. The body holds the tombstone bitmap followed
// by every element in internal-id order: label, payload, graph node. Loading
// a snapshot reproduces the graph bit for bit, so search results before and
// after a save/load cycle are identical.

// SaveOption configures a Save or SaveTo call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	compression persistence.Compression
}

// WithCompression selects the body codec. The default is no compression.
func WithCompression(c persistence.Compression) SaveOption {
	return func(o *saveOptions) { o.compression = c }
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// SaveTo writes a snapshot of the index to w. The index is locked for the
// duration; concurrent operations block.
func (idx *Index) SaveTo(ctx context.Context, w io.Writer, optFns ...SaveOption) error {
	start := time.Now()
	var so saveOptions
	for _, fn := range optFns {
		fn(&so)
	}

	cw := &countingWriter{w: w}
	err := idx.writeSnapshot(cw, so.compression)
	idx.metrics.RecordSnapshot("save", cw.n, time.Since(start), err)
	idx.logger.LogSnapshot(ctx, "save", "", err)
	return err
}

// Save writes a snapshot to path. The file is written to a temporary sibling
// and renamed into place, so a crash mid-save never corrupts an existing
// snapshot.
func (idx *Index) Save(ctx context.Context, path string, optFns ...SaveOption) error {
	start := time.Now()
	var so saveOptions
	for _, fn := range optFns {
		fn(&so)
	}

	var written int64
	err := persistence.SaveToFile(path, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		err := idx.writeSnapshot(cw, so.compression)
		written = cw.n
		return err
	})
	idx.metrics.RecordSnapshot("save", written, time.Since(start), err)
	idx.logger.LogSnapshot(ctx, "save", path, err)
	return err
}

func (idx *Index) writeSnapshot(w io.Writer, compression persistence.Compression) error {
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()

	inserted := idx.graph.Inserted()
	ep, topLayer, hasEntry := idx.graph.EntryPoint()
	if !hasEntry {
		topLayer = -1
	}

	header := &persistence.FileHeader{
		Space:       uint8(idx.space),
		Quant:       uint8(idx.quant),
		Compression: uint8(compression),
		Dimension:   uint32(idx.dim),
		M:           uint32(idx.opts.m),
		EFConstruct: uint32(idx.opts.efConstruction),
		MaxElements: uint64(idx.graph.Capacity()),
		Count:       uint64(inserted),
		EntryPoint:  ep,
		TopLayer:    int32(topLayer),
	}
	if err := persistence.NewWriter(w).WriteHeader(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	body, err := persistence.NewBodyWriter(w, compression)
	if err != nil {
		return err
	}
	bw := persistence.NewWriter(body)

	deleted, err := idx.graph.MarshalDeleted()
	if err != nil {
		return fmt.Errorf("marshal tombstones: %w", err)
	}
	if err := bw.WriteBytes(deleted); err != nil {
		return err
	}

	for id := uint32(0); int(id) < inserted; id++ {
		if err := bw.WriteUint64(idx.labels.Label(id)); err != nil {
			return fmt.Errorf("element %d: %w", id, err)
		}
		if err := idx.store.WritePayload(bw, id); err != nil {
			return fmt.Errorf("element %d payload: %w", id, err)
		}
		if err := idx.graph.WriteNode(bw, id); err != nil {
			return fmt.Errorf("element %d node: %w", id, err)
		}
	}

	return body.Close()
}

// LoadFrom reads a snapshot from r and returns the restored index. The
// stored build parameters (space, quantization, dimension, M, efConstruction)
// always win; WithSpace, WithQuant and WithDimension act as compatibility
// checks that fail the load with ErrFormatMismatch on disagreement.
// WithMaxElements may grow the restored capacity, and WithEF, WithLogger and
// WithMetrics configure the restored index as usual.
func LoadFrom(r io.Reader, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)

	header, err := persistence.NewReader(r).ReadHeader()
	if err != nil {
		return nil, err
	}
	if err := checkHeader(header, &o); err != nil {
		return nil, err
	}

	o.space = distance.Space(header.Space)
	o.quant = Quant(header.Quant)
	o.dimension = int(header.Dimension)
	o.m = int(header.M)
	o.efConstruction = int(header.EFConstruct)
	// A caller-supplied capacity wins, even a smaller one, as long as the
	// stored elements still fit.
	if o.maxElements <= 0 {
		o.maxElements = int(header.MaxElements)
	}
	if uint64(o.maxElements) < header.Count {
		return nil, fmt.Errorf("%w: capacity %d below stored count %d", ErrUsage, o.maxElements, header.Count)
	}

	idx, err := newIndex(o)
	if err != nil {
		return nil, err
	}

	body, err := persistence.NewBodyReader(r, persistence.Compression(header.Compression))
	if err != nil {
		return nil, err
	}
	br := persistence.NewReader(body)

	deleted, err := br.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("read tombstones: %w", err)
	}
	if err := idx.graph.UnmarshalDeleted(deleted); err != nil {
		return nil, fmt.Errorf("unmarshal tombstones: %w", err)
	}

	count := int(header.Count)
	for id := uint32(0); int(id) < count; id++ {
		label, err := br.ReadUint64()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", id, err)
		}
		if err := idx.store.ReadPayload(br, id); err != nil {
			return nil, fmt.Errorf("element %d payload: %w", id, err)
		}
		if err := idx.graph.ReadNode(br, id, count); err != nil {
			return nil, fmt.Errorf("element %d node: %w", id, err)
		}
		// Tombstoned elements keep their label binding, exactly as in the
		// live index; lookups treat them as absent via the tombstone set.
		idx.labels.Bind(label, id)
	}

	if err := idx.graph.Restore(count, header.EntryPoint, int(header.TopLayer)); err != nil {
		return nil, err
	}
	return idx, nil
}

// Load reads a snapshot from path.
func Load(path string, optFns ...Option) (*Index, error) {
	start := time.Now()
	var (
		idx *Index
		n   int64
	)
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		cr := &countingReader{r: r}
		var loadErr error
		idx, loadErr = LoadFrom(cr, optFns...)
		n = cr.n
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	idx.metrics.RecordSnapshot("load", n, time.Since(start), nil)
	idx.logger.LogSnapshot(context.Background(), "load", path, nil)
	return idx, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

func checkHeader(h *persistence.FileHeader, o *options) error {
	if o.spaceSet && uint8(o.space) != h.Space {
		return &ErrFormatMismatch{
			Field:  "space",
			Stored: distance.Space(h.Space).String(),
			Want:   o.space.String(),
		}
	}
	if o.quantSet && uint8(o.quant) != h.Quant {
		return &ErrFormatMismatch{
			Field:  "quantization",
			Stored: Quant(h.Quant).String(),
			Want:   o.quant.String(),
		}
	}
	if o.dimension > 0 && uint32(o.dimension) != h.Dimension {
		return &ErrFormatMismatch{
			Field:  "dimension",
			Stored: fmt.Sprintf("%d", h.Dimension),
			Want:   fmt.Sprintf("%d", o.dimension),
		}
	}
	return nil
}
