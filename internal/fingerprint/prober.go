package fingerprint

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/maxvaer/dirgraph/internal/filter"
	"github.com/maxvaer/dirgraph/internal/scanner"
)

// baselineTokenLen is the length of the random segment in the baseline path.
const baselineTokenLen = 18

// Prober performs the two requests made before enumeration.
type Prober struct {
	req    *scanner.Requester
	logger *slog.Logger
}

// NewProber returns a Prober using req. A nil logger discards output.
func NewProber(req *scanner.Requester, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prober{req: req, logger: logger}
}

// Probe fetches the target root following redirects. Any failure yields an
// empty Fingerprint.
func (p *Prober) Probe(ctx context.Context) Fingerprint {
	resp, err := p.req.Fetch(ctx, "", true)
	if err != nil {
		p.logger.Debug("fingerprint request failed", "url", p.req.URLFor(""), "error", err)
		return Fingerprint{URL: p.req.URLFor(""), Headers: map[string]string{}}
	}
	return New(resp.URL, resp.Body, resp.Header)
}

// Baseline requests a random path that cannot exist, without following
// redirects. Any failure yields filter.UnreachableBaseline.
func (p *Prober) Baseline(ctx context.Context) filter.Baseline {
	path := BaselinePath()
	resp, err := p.req.Fetch(ctx, path, false)
	if err != nil {
		p.logger.Debug("baseline request failed", "path", path, "error", err)
		return filter.UnreachableBaseline
	}
	return filter.Baseline{Status: resp.StatusCode, Size: resp.Size}
}

// BaselinePath returns "/" followed by random lowercase letters and a
// trailing slash.
func BaselinePath() string {
	b := make([]byte, baselineTokenLen+2)
	b[0] = '/'
	for i := 1; i <= baselineTokenLen; i++ {
		b[i] = byte('a' + rand.IntN(26))
	}
	b[len(b)-1] = '/'
	return string(b)
}
