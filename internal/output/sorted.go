package output

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/maxvaer/dirgraph/internal/scanner"
)

// SortKeys are the accepted values for the sort option.
var SortKeys = []string{"status", "size", "path"}

var comparators = map[string]func(a, b *scanner.ProbeResult) int{
	"status": func(a, b *scanner.ProbeResult) int { return cmp.Compare(a.Status, b.Status) },
	"size":   func(a, b *scanner.ProbeResult) int { return cmp.Compare(a.SizeOr(-1), b.SizeOr(-1)) },
	"path":   func(a, b *scanner.ProbeResult) int { return 0 },
}

// ValidateSortKey returns an error unless key is empty or one of SortKeys.
func ValidateSortKey(key string) error {
	if key == "" || slices.Contains(SortKeys, key) {
		return nil
	}
	return fmt.Errorf("invalid sort key %q: use %s", key, strings.Join(SortKeys, ", "))
}

// SortedWriter holds every result until WriteFooter, then passes them to the
// wrapped writer ordered by the sort key, ties broken by path.
type SortedWriter struct {
	inner   Writer
	compare func(a, b *scanner.ProbeResult) int
	held    []*scanner.ProbeResult
}

// NewSortedWriter wraps inner. Unknown keys sort by path.
func NewSortedWriter(inner Writer, sortBy string) *SortedWriter {
	c, ok := comparators[sortBy]
	if !ok {
		c = comparators["path"]
	}
	return &SortedWriter{inner: inner, compare: c}
}

func (w *SortedWriter) WriteHeader() error { return w.inner.WriteHeader() }

func (w *SortedWriter) WriteResult(result *scanner.ProbeResult) error {
	w.held = append(w.held, result)
	return nil
}

func (w *SortedWriter) WriteFooter(stats Stats) error {
	slices.SortStableFunc(w.held, func(a, b *scanner.ProbeResult) int {
		return cmp.Or(w.compare(a, b), strings.Compare(a.Path, b.Path))
	})
	for _, r := range w.held {
		if err := w.inner.WriteResult(r); err != nil {
			return err
		}
	}
	w.held = nil
	return w.inner.WriteFooter(stats)
}

func (w *SortedWriter) Close() error { return w.inner.Close() }
