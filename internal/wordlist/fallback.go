package wordlist

import (
	_ "embed"
	"strings"
)

//go:embed fallback.txt
var embeddedFallback string

// Fallback returns the built-in candidates used when the corpus yields
// nothing.
func Fallback() []string {
	return FromLines(strings.Split(embeddedFallback, "\n"), 0)
}
