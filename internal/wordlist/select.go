package wordlist

import "github.com/maxvaer/dirgraph/internal/fingerprint"

// Pick is one selected corpus file.
type Pick struct {
	Category Category `json:"category"`
	Path     string   `json:"path"`
}

type selectRule struct {
	category Category
	limit    int
	when     func(fingerprint.Signals) bool
}

func always(fingerprint.Signals) bool { return true }

// selectRules is applied in order.
var selectRules = []selectRule{
	{Base, 2, always},
	{Raft, 1, always},
	{CMS, 3, fingerprint.Signals.CMS},
}

// Select chooses the corpus files for a target. The result is deterministic
// for a given catalog and signal set. When the API signal fires the first
// base list leads and the remaining base lists move to the end.
func Select(cat Catalog, sig fingerprint.Signals) []Pick {
	var picks []Pick
	for _, r := range selectRules {
		if !r.when(sig) {
			continue
		}
		files := cat[r.category]
		if len(files) > r.limit {
			files = files[:r.limit]
		}
		for _, f := range files {
			picks = append(picks, Pick{Category: r.category, Path: f})
		}
	}

	if sig.API {
		picks = apiOrder(picks)
	}
	return dedupe(picks)
}

// WithCustom appends user-supplied wordlist files to a selection.
func WithCustom(picks []Pick, files ...string) []Pick {
	for _, f := range files {
		picks = append(picks, Pick{Category: Custom, Path: f})
	}
	return dedupe(picks)
}

func apiOrder(picks []Pick) []Pick {
	var lead, rest, tail []Pick
	for _, p := range picks {
		switch {
		case p.Category == Base && lead == nil:
			lead = []Pick{p}
		case p.Category == Base:
			tail = append(tail, p)
		default:
			rest = append(rest, p)
		}
	}
	out := make([]Pick, 0, len(picks))
	out = append(out, lead...)
	out = append(out, rest...)
	return append(out, tail...)
}

func dedupe(picks []Pick) []Pick {
	seen := make(map[string]struct{}, len(picks))
	out := make([]Pick, 0, len(picks))
	for _, p := range picks {
		if _, ok := seen[p.Path]; ok {
			continue
		}
		seen[p.Path] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Paths returns the file paths of a selection.
func Paths(picks []Pick) []string {
	out := make([]string, len(picks))
	for i, p := range picks {
		out[i] = p.Path
	}
	return out
}
