package jobs

import (
	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/filter"
	"github.com/maxvaer/dirgraph/internal/scanner"
)

// BuildResult keeps the whitelisted findings and counts them.
func BuildResult(retained []*scanner.ProbeResult) events.Result {
	findings := make([]*scanner.ProbeResult, 0, len(retained))
	for _, r := range retained {
		if filter.IsFoundStatus(r.Status) {
			findings = append(findings, r)
		}
	}
	return events.Result{Summary: Summarize(findings), Findings: findings}
}

// Summarize counts findings by status class.
func Summarize(findings []*scanner.ProbeResult) events.Summary {
	s := events.Summary{TotalTested: len(findings)}
	for _, f := range findings {
		switch {
		case f.Status == 200:
			s.OK200++
		case f.Status == 401:
			s.Auth401++
		case f.Status == 403:
			s.Forbidden403++
		case f.Status >= 300 && f.Status < 310:
			s.Redirects30x++
		}
	}
	return s
}
