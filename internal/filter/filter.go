// Package filter holds the rules that suppress or hide probe results.
package filter

import "github.com/maxvaer/dirgraph/internal/scanner"

// Filter decides whether a probe result should be dropped.
type Filter interface {
	Name() string
	ShouldFilter(result *scanner.ProbeResult) bool
}

// Chain drops a result as soon as one of its filters does.
type Chain []Filter

// Reject returns the name of the first filter that drops result.
func (c Chain) Reject(result *scanner.ProbeResult) (string, bool) {
	for _, f := range c {
		if f.ShouldFilter(result) {
			return f.Name(), true
		}
	}
	return "", false
}

type set[T comparable] map[T]struct{}

func newSet[T comparable](vals ...T) set[T] {
	s := make(set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}
