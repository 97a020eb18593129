package scanner

import "time"

// ProbeResult is one completed probe. Size is nil when the body was empty.
type ProbeResult struct {
	URL          string   `json:"url"`
	Path         string   `json:"path"`
	Status       int      `json:"status"`
	Size         *int64   `json:"size"`
	RedirectedTo string   `json:"redirected_to,omitempty"`
	Issues       []string `json:"issues"`
}

// SizeOr returns the size, or def when it is unknown.
func (p *ProbeResult) SizeOr(def int64) int64 {
	if p.Size == nil {
		return def
	}
	return *p.Size
}

// ScanResult holds the outcome of a single work item. Exactly one of Result
// and Error is set.
type ScanResult struct {
	Item     WorkItem
	Result   *ProbeResult
	Error    error
	Panicked bool // Error came from a recovered panic inside the unit
	Duration time.Duration
}
