// Package engine runs the enumeration: it expands candidates with extension
// hints, probes them under a concurrency ceiling, drops soft-404 results and
// streams progress and findings.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/filter"
	"github.com/maxvaer/dirgraph/internal/metrics"
	"github.com/maxvaer/dirgraph/internal/scanner"
)

// Config is the per-run engine configuration.
type Config struct {
	Target          string
	FollowRedirects bool
	Concurrency     int
	Timeout         time.Duration
	Extensions      []string
	HTTP            config.HTTP
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records probe metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithReportFilters adds filters that hide findings from the found stream.
// Hidden results are still retained.
func WithReportFilters(filters ...filter.Filter) Option {
	return func(e *Engine) { e.extra = append(e.extra, filters...) }
}

// WithPauser lets p suspend workers between requests.
func WithPauser(p *scanner.Pauser) Option {
	return func(e *Engine) { e.pauser = p }
}

// Engine probes candidate paths against one target.
type Engine struct {
	cfg     Config
	req     *scanner.Requester
	logger  *slog.Logger
	metrics *metrics.Metrics
	pauser  *scanner.Pauser
	extra   []filter.Filter
}

// New validates cfg and builds the HTTP client used for the run.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.DefaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Duration(config.DefaultTimeoutSeconds) * time.Second
	}
	req, err := scanner.NewRequester(scanner.RequesterConfig{
		Target:          cfg.Target,
		Timeout:         cfg.Timeout,
		FollowRedirects: cfg.FollowRedirects,
		MaxConns:        cfg.Concurrency,
		HTTP:            cfg.HTTP,
	})
	if err != nil {
		return nil, fmt.Errorf("creating requester: %w", err)
	}

	e := &Engine{cfg: cfg, req: req, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Requester returns the HTTP client shared with the prober.
func (e *Engine) Requester() *scanner.Requester { return e.req }

// SetExtensions replaces the extension hints used by the next Run.
func (e *Engine) SetExtensions(exts []string) { e.cfg.Extensions = exts }

// ExpandPaths returns every candidate followed by its extension variants.
// A variant is skipped when the candidate already ends with that extension,
// and the root path gets none.
func ExpandPaths(candidates, exts []string) []string {
	out := make([]string, 0, len(candidates)*(1+len(exts)))
	for _, c := range candidates {
		out = append(out, c)
		stem := strings.TrimRight(c, "/")
		if stem == "" {
			continue
		}
		for _, ext := range exts {
			if strings.HasSuffix(c, ext) {
				continue
			}
			out = append(out, stem+ext)
		}
	}
	return out
}

// Run probes all candidates and returns the results that survived soft-404
// suppression. For every completed unit sink receives a found event, when
// the result is reported, followed by a progress event. A sink that stops
// accepting events ends the run. Run returns ctx.Err() when canceled.
func (e *Engine) Run(ctx context.Context, candidates []string, baseline filter.Baseline, sink events.Sink) ([]*scanner.ProbeResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	paths := ExpandPaths(candidates, e.cfg.Extensions)
	items := make([]scanner.WorkItem, len(paths))
	for i, p := range paths {
		items[i] = scanner.WorkItem{Path: p}
	}

	soft404 := filter.NewSoft404(baseline)
	report := append(filter.Chain{filter.NewFoundFilter()}, e.extra...)

	e.logger.Info("enumeration started",
		"target", e.cfg.Target,
		"units", len(items),
		"concurrency", e.cfg.Concurrency,
		"exts", e.cfg.Extensions,
		"soft404_active", soft404.Active(),
	)

	wcfg := scanner.WorkerConfig{
		Threads:   e.cfg.Concurrency,
		Throttler: scanner.NewThrottler(0, e.cfg.HTTP.AdaptiveThrottle, e.logger),
		Pauser:    e.pauser,
	}
	if e.cfg.HTTP.RateLimit > 0 {
		wcfg.Limiter = rate.NewLimiter(rate.Limit(e.cfg.HTTP.RateLimit), 1)
	}

	total := len(items)
	if total == 0 {
		total = 1
	}
	var (
		done     int
		retained []*scanner.ProbeResult
	)
	emit := func(ev events.Event) {
		if ctx.Err() != nil {
			return
		}
		if !sink.Emit(ev) {
			cancel()
		}
	}

	for res := range scanner.RunWorkerPool(ctx, e.req, items, wcfg) {
		done++
		e.record(res)
		if ctx.Err() != nil {
			continue
		}

		switch {
		case res.Panicked:
			emit(events.Error(res.Error.Error()))
		case res.Error != nil:
			e.logger.Debug("probe failed", "path", res.Item.Path, "error", res.Error)
		case soft404.ShouldFilter(res.Result):
			e.metrics.Suppressed()
		default:
			retained = append(retained, res.Result)
			if _, hidden := report.Reject(res.Result); !hidden {
				e.metrics.Finding(res.Result.Status)
				emit(events.Found(res.Result))
			}
		}
		emit(events.Progress(float64(done) / float64(total)))
	}

	if err := ctx.Err(); err != nil {
		e.logger.Info("enumeration stopped", "completed", done, "units", len(items))
		return retained, err
	}
	e.logger.Info("enumeration finished", "completed", done, "retained", len(retained))
	return retained, nil
}

func (e *Engine) record(res scanner.ScanResult) {
	switch {
	case res.Panicked:
		e.metrics.Probe(metrics.OutcomePanic, res.Duration)
	case res.Error != nil:
		e.metrics.Probe(metrics.OutcomeError, res.Duration)
	default:
		e.metrics.Probe(metrics.OutcomeOK, res.Duration)
	}
}
