package quantvec

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// FilterFunc decides whether a label may appear in search results. It is
// evaluated during graph traversal, so it must be fast and must not block.
// Filters restrict results only; filtered-out nodes are still traversed.
type FilterFunc func(label uint64) bool

// LabelSetFilter keeps only labels contained in a fixed set. The returned
// filter shares the bitmap; do not mutate it while searches are running.
func LabelSetFilter(labels ...uint64) FilterFunc {
	set := roaring64.New()
	set.AddMany(labels)
	return set.Contains
}

// LabelSetFilterBitmap keeps only labels contained in the given bitmap.
func LabelSetFilterBitmap(set *roaring64.Bitmap) FilterFunc {
	return set.Contains
}

// LabelRangeFilter keeps only labels in the half-open interval [lo, hi).
func LabelRangeFilter(lo, hi uint64) FilterFunc {
	return func(label uint64) bool {
		return label >= lo && label < hi
	}
}
