package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/internal/jobs"
	"github.com/maxvaer/dirgraph/internal/metrics"
	"github.com/maxvaer/dirgraph/internal/server"
	"github.com/maxvaer/dirgraph/internal/telemetry"
)

var serveOpts = config.ServerOptions{
	ListenAddr: config.DefaultListenAddr,
	CorpusRoot: config.DefaultCorpusRoot,
	Retention:  config.DefaultRetention,
	LogLevel:   "info",
	LogFormat:  "text",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP job API",
	Long: `serve exposes enumeration jobs over HTTP:

  POST   /api/enumerate          start a job, returns {"job_id": ...}
  GET    /api/jobs/{id}/events   stream job events as NDJSON
  DELETE /api/enumerate/{id}     cancel a job
  GET    /metrics                Prometheus metrics
  GET    /healthz                liveness`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := mergeConfigFile(cmd.Flags(), configFile, nil, &serveOpts); err != nil {
				return err
			}
		}
		return parseHeaders(cmd.Flags(), &serveOpts.HTTP)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newServerLogger(serveOpts.LogLevel, serveOpts.LogFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
			Endpoint: serveOpts.OTLPEndpoint,
			Insecure: serveOpts.OTLPInsecure,
		})
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("flushing traces", "error", err)
			}
		}()

		m := metrics.New()
		registry := jobs.NewRegistry(&jobs.Pipeline{
			CorpusRoot: serveOpts.CorpusRoot,
			HTTP:       serveOpts.HTTP,
			Logger:     logger,
			Metrics:    m,
		},
			jobs.WithRetention(serveOpts.Retention),
			jobs.WithRegistryLogger(logger),
			jobs.WithRegistryMetrics(m),
		)
		go registry.Janitor(ctx, janitorInterval(serveOpts.Retention))

		return server.New(registry, m, logger).ListenAndServe(ctx, serveOpts.ListenAddr)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.ListenAddr, "listen", serveOpts.ListenAddr, "Address to listen on")
	f.StringVar(&serveOpts.CorpusRoot, "corpus", serveOpts.CorpusRoot, "Wordlist corpus root (SecLists Discovery/Web-Content layout)")
	f.DurationVar(&serveOpts.Retention, "retention", serveOpts.Retention, "How long finished jobs stay queryable")
	f.StringVar(&serveOpts.LogLevel, "log-level", serveOpts.LogLevel, "Log level: debug, info, warn, error")
	f.StringVar(&serveOpts.LogFormat, "log-format", serveOpts.LogFormat, "Log format: text, json")
	f.StringVar(&serveOpts.OTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces (empty disables tracing)")
	f.BoolVar(&serveOpts.OTLPInsecure, "otlp-insecure", false, "Disable TLS for the OTLP exporter")
	f.StringSliceP("header", "H", nil, "Header sent with every probe, repeatable")
	f.StringVar(&serveOpts.HTTP.UserAgent, "user-agent", "", "Custom User-Agent string")
	f.StringVar(&serveOpts.HTTP.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")
	f.Float64Var(&serveOpts.HTTP.RateLimit, "rate-limit", 0, "Per-job requests per second (0 = unlimited)")
	f.BoolVar(&serveOpts.HTTP.AdaptiveThrottle, "adaptive-throttle", false, "Auto back-off on 429/rate limits")
	f.StringVar(&configFile, "config", "", "YAML config file; flags given on the command line win")

	rootCmd.AddCommand(serveCmd)
}

func newServerLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: use text or json", format)
	}
}

// janitorInterval sweeps a few times per retention period, at most once a
// second.
func janitorInterval(retention time.Duration) time.Duration {
	return max(retention/4, time.Second)
}
