package filter

import "github.com/maxvaer/dirgraph/internal/scanner"

// SizeFilter hides findings with one of the given body sizes. An unknown
// size counts as zero.
type SizeFilter struct {
	sizes set[int64]
}

func NewSizeFilter(sizes []int) *SizeFilter {
	f := &SizeFilter{sizes: newSet[int64]()}
	for _, s := range sizes {
		f.sizes[int64(s)] = struct{}{}
	}
	return f
}

func (f *SizeFilter) Name() string { return "size" }

func (f *SizeFilter) ShouldFilter(result *scanner.ProbeResult) bool {
	return f.sizes.has(result.SizeOr(0))
}
