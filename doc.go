// Package quantvec provides an in-memory approximate nearest-neighbor index
// over fixed-dimension vectors, built on a hierarchical navigable small-world
// (HNSW) graph.
//
// Features:
//
//   - k-NN queries under l2 (squared Euclidean), inner-product, and cosine
//     distance
//   - optional lossy int8 scalar quantization of stored vectors (~4x smaller
//     payloads) with distance computed directly on the codes
//   - externally supplied uint64 labels with O(1) label <-> id resolution and
//     vector reconstruction by label
//   - concurrent inserts and fully parallel queries
//   - result filtering by label predicate
//   - binary snapshots with optional LZ4/zstd compression that round-trip
//     exactly
//
// # Quick start
//
//	idx, err := quantvec.New(128,
//	    quantvec.WithSpace(distance.SpaceCosine),
//	    quantvec.WithMaxElements(100_000),
//	    quantvec.WithM(16),
//	    quantvec.WithEFConstruction(200),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = idx.Add(ctx, vectors, labels)
//	hits, err := idx.Search(ctx, queries, 10)
//
// Enable quantization with WithQuant(quantvec.QuantInt8); reconstruction then
// returns dequantized approximations and GetQuantizedVectors exposes the raw
// codes and scales.
package quantvec
