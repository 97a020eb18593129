// Package runner drives one enumeration job from the command line.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/filter"
	"github.com/maxvaer/dirgraph/internal/hook"
	"github.com/maxvaer/dirgraph/internal/jobs"
	"github.com/maxvaer/dirgraph/internal/output"
	"github.com/maxvaer/dirgraph/internal/scanner"
	"github.com/maxvaer/dirgraph/pkg/version"
)

// Run enumerates opts.Request.URL and renders the event stream to stdout and
// stderr. Ctrl+C cancels the job; partial findings are still written.
func Run(ctx context.Context, opts *config.Options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return run(ctx, opts, os.Stdout, os.Stderr)
}

func run(ctx context.Context, opts *config.Options, stdout, status io.Writer) error {
	req := opts.Request
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return err
	}

	out, err := output.New(opts.OutputFormat, opts.OutputFile, opts.SortBy, opts.NoColor, opts.Quiet, status)
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, interrupt := context.WithCancel(ctx)
	defer interrupt()
	pauser, restore := startKeyboard(status, opts.Quiet, interrupt)
	defer restore()

	logger := newLogger(status, opts.Quiet)
	pipeline := &jobs.Pipeline{
		CorpusRoot:    opts.CorpusRoot,
		Wordlists:     opts.Wordlists,
		HTTP:          opts.HTTP,
		ReportFilters: reportFilters(opts),
		Logger:        logger,
		Pauser:        pauser,
	}
	registry := jobs.NewRegistry(pipeline, jobs.WithRegistryLogger(logger))
	defer func() { _ = registry.Shutdown(context.Background()) }()

	if !opts.Quiet {
		printBanner(status, opts, req)
	}

	id, err := registry.Start(req)
	if err != nil {
		return err
	}
	job, _ := registry.Get(id)

	go func() {
		select {
		case <-ctx.Done():
			_ = registry.Cancel(id)
		case <-job.Done():
		}
	}()

	if err := out.WriteHeader(); err != nil {
		return err
	}

	r := &renderer{
		opts:     opts,
		target:   req.URL,
		out:      out,
		stdout:   stdout,
		status:   status,
		progress: output.NewProgress(status, opts.Quiet),
		started:  time.Now(),
	}
	if opts.OnResultCmd != "" {
		r.hook = hook.NewRunner(opts.OnResultCmd, opts.Quiet)
	}

	// The stream always ends with a terminal event, so it needs no deadline.
	for {
		ev, ok := job.Stream.Next(context.Background())
		if !ok {
			break
		}
		if err := r.handle(ctx, ev); err != nil {
			return err
		}
	}
	return r.finish()
}

func newLogger(w io.Writer, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// reportFilters narrows what is printed. They never affect the summary.
func reportFilters(opts *config.Options) []filter.Filter {
	var fs []filter.Filter
	if len(opts.ExcludeStatus) > 0 {
		fs = append(fs, filter.NewStatusFilter(nil, opts.ExcludeStatus))
	}
	if len(opts.ExcludeSizes) > 0 {
		fs = append(fs, filter.NewSizeFilter(opts.ExcludeSizes))
	}
	return fs
}

// renderer turns job events into terminal output.
type renderer struct {
	opts     *config.Options
	target   string
	out      output.Writer
	hook     *hook.Runner
	stdout   io.Writer
	status   io.Writer
	progress *output.Progress
	started  time.Time

	units      int
	barStarted bool
	errors     int
	found      []*scanner.ProbeResult
	last       events.Event
}

func (r *renderer) infof(format string, args ...any) {
	if r.opts.Quiet {
		return
	}
	fmt.Fprintf(r.status, format, args...)
}

func (r *renderer) handle(ctx context.Context, ev events.Event) error {
	r.last = ev
	switch ev.Type {
	case events.TypeStage:
		if ev.Stage == events.StageFallback {
			r.infof("[!] No wordlist entries found, using the built-in fallback list\n")
			return nil
		}
		r.infof("[*] %s\n", stageLabel(ev.Stage))
	case events.TypeMeta:
		m := ev.Meta
		r.units = m.TotalCandidates * (1 + len(m.Exts))
		r.infof("[+] %d candidates from %d wordlists", m.TotalCandidates, len(m.Wordlists))
		if len(m.Exts) > 0 {
			r.infof(", extensions %s", strings.Join(m.Exts, ", "))
		}
		if len(m.Signals) > 0 {
			r.infof(", signals %s", strings.Join(m.Signals, ", "))
		}
		r.infof("\n")
	case events.TypeProgress:
		if !r.barStarted {
			// Started lazily so the bar appears after the baseline line.
			r.progress.Start(r.units)
			r.barStarted = true
		}
		r.progress.Set(*ev.Value)
	case events.TypeFound:
		r.progress.Clear()
		r.found = append(r.found, ev.Item)
		if err := r.out.WriteResult(ev.Item); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
		if r.hook != nil {
			r.hook.Run(ctx, ev.Item)
		}
	case events.TypeError:
		r.errors++
		r.progress.Clear()
		r.infof("[!] %s\n", ev.Message)
	}
	return nil
}

// finish writes the footer once the stream has closed and maps the terminal
// event to the return value.
func (r *renderer) finish() error {
	r.progress.Finish()

	switch r.last.Type {
	case events.TypeDone:
		res := r.last.Result
		if err := r.out.WriteFooter(r.stats(res.Summary)); err != nil {
			return err
		}
		if r.opts.Tree && len(res.Findings) > 0 {
			fmt.Fprintln(r.stdout)
			output.PrintTree(r.stdout, r.target, res.Findings)
		}
		return nil
	case events.TypeCanceled:
		r.infof("[!] Scan canceled, %d findings so far\n", len(r.found))
		return r.out.WriteFooter(r.stats(jobs.Summarize(r.found)))
	case events.TypeError:
		_ = r.out.WriteFooter(r.stats(jobs.Summarize(r.found)))
		return fmt.Errorf("enumeration failed: %s", r.last.Message)
	default:
		return fmt.Errorf("event stream ended without a result")
	}
}

func (r *renderer) stats(s events.Summary) output.Stats {
	d := time.Since(r.started)
	st := output.Stats{Units: r.units, Errors: r.errors, Summary: s, Duration: d}
	if d > 0 {
		st.RequestsPerSec = float64(r.units) / d.Seconds()
	}
	return st
}

func stageLabel(stage string) string {
	switch stage {
	case events.StageIndexing:
		return "Indexing wordlist corpus"
	case events.StageProbing:
		return "Fingerprinting target"
	case events.StageChoosing:
		return "Choosing wordlists"
	case events.StageBuilding:
		return "Building candidate paths"
	case events.StageBaseline:
		return "Measuring soft-404 baseline"
	case events.StageEnumerating:
		return "Enumerating"
	}
	return stage
}

func printBanner(w io.Writer, opts *config.Options, req config.StartRequest) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	val := color.New(color.FgHiWhite)
	num := color.New(color.FgYellow)
	if opts.NoColor {
		for _, c := range []*color.Color{title, dim, val, num} {
			c.DisableColor()
		}
	}

	fmt.Fprintln(w)
	title.Fprintf(w, "  dirgraph %s\n", version.Version)
	dim.Fprintln(w, "  Fingerprint-driven content discovery")
	dim.Fprintln(w, "  ──────────────────────────────────────")
	fmt.Fprintf(w, "  %s       %s\n", dim.Sprint("Target:"), val.Sprint(req.URL))
	fmt.Fprintf(w, "  %s  %s\n", dim.Sprint("Concurrency:"), num.Sprint(req.MaxConcurrency))
	fmt.Fprintf(w, "  %s      %s\n", dim.Sprint("Timeout:"), num.Sprintf("%ds", req.TimeoutSeconds))
	fmt.Fprintf(w, "  %s    %s\n", dim.Sprint("Max paths:"), num.Sprint(req.MaxPaths))
	if len(opts.Wordlists) > 0 {
		fmt.Fprintf(w, "  %s    %s\n", dim.Sprint("Wordlists:"), val.Sprint(strings.Join(opts.Wordlists, ", ")))
	}
	if opts.HTTP.RateLimit > 0 {
		fmt.Fprintf(w, "  %s   %s\n", dim.Sprint("Rate limit:"), num.Sprintf("%.1f req/s", opts.HTTP.RateLimit))
	}
	dim.Fprintln(w, "  ──────────────────────────────────────")
	fmt.Fprintln(w)
}
