package filter

import "github.com/maxvaer/dirgraph/internal/scanner"

const (
	// soft404Floor is the minimum size tolerance in bytes.
	soft404Floor = 250
	// soft404Ratio is the relative tolerance against the baseline size.
	soft404Ratio = 0.15
)

// Baseline is the (status, size) observed for a path that cannot exist.
type Baseline struct {
	Status int   `json:"status"`
	Size   int64 `json:"size"`
}

// UnreachableBaseline is used when the baseline probe fails. Its 404 status
// disables suppression for the whole run.
var UnreachableBaseline = Baseline{Status: 404, Size: 0}

// Tolerance returns the allowed size distance for this baseline.
func (b Baseline) Tolerance() int64 {
	t := int64(soft404Ratio * float64(b.Size))
	if t < soft404Floor {
		return soft404Floor
	}
	return t
}

// Soft404 drops 200 responses whose size sits strictly inside the tolerance
// band of a 200 baseline, i.e. the server's generic "not found" page.
type Soft404 struct {
	baseline Baseline
}

// NewSoft404 returns a soft-404 filter calibrated with b.
func NewSoft404(b Baseline) *Soft404 {
	return &Soft404{baseline: b}
}

func (f *Soft404) Name() string { return "soft-404" }

// Active reports whether the baseline can suppress anything at all.
func (f *Soft404) Active() bool {
	return f.baseline.Status == 200 && f.baseline.Size != 0
}

func (f *Soft404) ShouldFilter(result *scanner.ProbeResult) bool {
	if !f.Active() || result.Status != 200 || result.Size == nil {
		return false
	}
	diff := *result.Size - f.baseline.Size
	if diff < 0 {
		diff = -diff
	}
	return diff < f.baseline.Tolerance()
}
