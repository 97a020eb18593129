// Package jobs sequences one enumeration run and tracks running jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/internal/engine"
	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/filter"
	"github.com/maxvaer/dirgraph/internal/fingerprint"
	"github.com/maxvaer/dirgraph/internal/metrics"
	"github.com/maxvaer/dirgraph/internal/scanner"
	"github.com/maxvaer/dirgraph/internal/wordlist"
)

const tracerName = "github.com/maxvaer/dirgraph/internal/jobs"

// Pipeline holds what every run shares. The zero value uses the default
// corpus root and slog.Default().
type Pipeline struct {
	CorpusRoot    string
	Wordlists     []string
	HTTP          config.HTTP
	ReportFilters []filter.Filter
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Pauser        *scanner.Pauser
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) corpusRoot() string {
	if p.CorpusRoot == "" {
		return config.DefaultCorpusRoot
	}
	return p.CorpusRoot
}

// Execute runs every stage for req, emitting stage, meta, found, progress and
// error events on sink. It never emits a terminal event; the caller closes
// the stream with the returned result. A canceled ctx returns ctx.Err().
func (p *Pipeline) Execute(ctx context.Context, req config.StartRequest, sink events.Sink) (events.Result, error) {
	req.ApplyDefaults()
	logger := p.logger().With("target", req.URL)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "enumerate",
		trace.WithAttributes(
			attribute.String("target", req.URL),
			attribute.Int("max_concurrency", req.MaxConcurrency),
			attribute.Int("max_paths", req.MaxPaths),
		))
	defer span.End()

	fail := func(err error) (events.Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return events.Result{}, err
	}

	eng, err := engine.New(engine.Config{
		Target:          req.URL,
		FollowRedirects: req.FollowRedirects,
		Concurrency:     req.MaxConcurrency,
		Timeout:         req.Timeout(),
		HTTP:            p.HTTP,
	},
		engine.WithLogger(logger),
		engine.WithMetrics(p.Metrics),
		engine.WithPauser(p.Pauser),
		engine.WithReportFilters(p.ReportFilters...),
	)
	if err != nil {
		return fail(err)
	}
	prober := fingerprint.NewProber(eng.Requester(), logger)

	sink.Emit(events.Stage(events.StageIndexing))
	catalog := wordlist.Index(p.corpusRoot())
	logger.Debug("corpus indexed", "root", p.corpusRoot(), "files", catalog.Len())

	sink.Emit(events.Stage(events.StageProbing))
	fp := stage(ctx, "probe", func(ctx context.Context) fingerprint.Fingerprint {
		return prober.Probe(ctx)
	})
	signals := fingerprint.Detect(fp)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	sink.Emit(events.Stage(events.StageChoosing))
	picks := wordlist.WithCustom(wordlist.Select(catalog, signals), p.Wordlists...)

	sink.Emit(events.Stage(events.StageBuilding))
	candidates := wordlist.Generate(picks, req.MaxPaths)
	if len(candidates) == 0 {
		sink.Emit(events.Stage(events.StageFallback))
		candidates = wordlist.Fallback()
	}

	exts := fingerprint.ExtensionHints(signals)
	sink.Emit(events.MetaEvent(events.Meta{
		Wordlists:       wordlist.Paths(picks),
		TotalCandidates: len(candidates),
		Exts:            exts,
		Signals:         signals.Names(),
	}))
	logger.Info("candidates ready",
		"wordlists", len(picks),
		"candidates", len(candidates),
		"signals", signals.Names(),
	)

	sink.Emit(events.Stage(events.StageBaseline))
	baseline := stage(ctx, "baseline", func(ctx context.Context) filter.Baseline {
		return prober.Baseline(ctx)
	})
	logger.Debug("soft-404 baseline", "status", baseline.Status, "size", baseline.Size)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	eng.SetExtensions(exts)
	sink.Emit(events.Stage(events.StageEnumerating))
	var retained []*scanner.ProbeResult
	err = stageErr(ctx, "engine", func(ctx context.Context) error {
		var runErr error
		retained, runErr = eng.Run(ctx, candidates, baseline, sink)
		return runErr
	})
	if err != nil {
		return fail(fmt.Errorf("enumeration: %w", err))
	}

	result := BuildResult(retained)
	span.SetAttributes(attribute.Int("findings", len(result.Findings)))
	return result, nil
}

// stage runs fn inside a child span.
func stage[T any](ctx context.Context, name string, fn func(context.Context) T) T {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	defer span.End()
	return fn(ctx)
}

func stageErr(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
