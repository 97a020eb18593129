package filter

import "github.com/maxvaer/dirgraph/internal/scanner"

// FoundStatuses are the status codes reported as individual findings.
var FoundStatuses = []int{200, 204, 301, 302, 401, 403}

var found = newSet(FoundStatuses...)

// IsFoundStatus reports whether code is in the findings whitelist.
func IsFoundStatus(code int) bool { return found.has(code) }

// StatusFilter keeps only the include codes when any are given, otherwise it
// drops the exclude codes.
type StatusFilter struct {
	include, exclude set[int]
}

func NewStatusFilter(include, exclude []int) *StatusFilter {
	return &StatusFilter{include: newSet(include...), exclude: newSet(exclude...)}
}

// NewFoundFilter drops everything outside FoundStatuses.
func NewFoundFilter() *StatusFilter { return NewStatusFilter(FoundStatuses, nil) }

func (f *StatusFilter) Name() string { return "status" }

func (f *StatusFilter) ShouldFilter(result *scanner.ProbeResult) bool {
	if len(f.include) > 0 {
		return !f.include.has(result.Status)
	}
	return f.exclude.has(result.Status)
}
