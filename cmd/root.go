package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/internal/output"
	"github.com/maxvaer/dirgraph/internal/reqparse"
	"github.com/maxvaer/dirgraph/internal/runner"
	"github.com/maxvaer/dirgraph/pkg/version"
)

var (
	opts        = config.Options{Request: config.DefaultStartRequest("")}
	configFile  string
	requestFile string
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "request-file", "corpus", "wordlist", "max-paths"}},
	{"FILTERS", []string{"exclude-status", "exclude-size"}},
	{"RATE-LIMIT", []string{"threads", "timeout", "rate-limit", "adaptive-throttle"}},
	{"HTTP", []string{"header", "user-agent", "proxy", "follow-redirects"}},
	{"OUTPUT", []string{"output", "format", "quiet", "no-color", "sort", "tree", "on-result"}},
	{"CONFIGURATION", []string{"config"}},
}

var rootCmd = &cobra.Command{
	Use:     "dirgraph -u <url> [flags]",
	Short:   "Fingerprint-driven web content discovery",
	Version: version.Version,
	Long: `dirgraph fingerprints a web target, picks matching wordlists from a
SecLists-style corpus and enumerates the resulting paths. Responses that
look like the server's generic "not found" page are suppressed.`,
	Example: `  dirgraph -u https://example.com
  dirgraph -u https://example.com --corpus /opt/SecLists/Discovery/Web-Content
  dirgraph -u https://example.com -t 32 --max-paths 10000
  dirgraph -u https://example.com -w extra.txt -x 403 -o results.json --format json
  dirgraph -u https://example.com --tree --sort path
  dirgraph -r burp.req
  dirgraph -u https://example.com --on-result "notify-send {url}"
  dirgraph serve --listen :8080`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := mergeConfigFile(cmd.Flags(), configFile, &opts, nil); err != nil {
				return err
			}
		}
		if requestFile != "" {
			tmpl, err := reqparse.ParseFile(requestFile)
			if err != nil {
				return err
			}
			tmpl.Apply(&opts)
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Loaded request from %s -> %s\n", requestFile, opts.Request.URL)
			}
		}
		if opts.Request.URL == "" {
			return fmt.Errorf("a target is required: use -u <url> or -r <request file>")
		}
		if !strings.HasPrefix(opts.Request.URL, "http://") && !strings.HasPrefix(opts.Request.URL, "https://") {
			opts.Request.URL = "http://" + opts.Request.URL
		}
		if err := output.ValidateSortKey(opts.SortBy); err != nil {
			return err
		}
		return parseHeaders(cmd.Flags(), &opts.HTTP)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner.Run(cmd.Context(), &opts)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.Request.URL, "url", "u", "", "Target URL")
	f.StringVar(&opts.CorpusRoot, "corpus", config.DefaultCorpusRoot, "Wordlist corpus root (SecLists Discovery/Web-Content layout)")
	f.StringSliceVarP(&opts.Wordlists, "wordlist", "w", nil, "Extra wordlist files appended to the selection")
	f.IntVar(&opts.Request.MaxPaths, "max-paths", config.DefaultMaxPaths, "Maximum number of candidate paths")
	f.StringVarP(&requestFile, "request-file", "r", "", "Raw HTTP request file (e.g. Burp Suite export) for target and headers")

	// Filters
	f.IntSliceVarP(&opts.ExcludeStatus, "exclude-status", "x", nil, "Hide these status codes (comma-separated)")
	f.IntSliceVar(&opts.ExcludeSizes, "exclude-size", nil, "Hide responses of these sizes (comma-separated)")

	// Rate limit
	f.IntVarP(&opts.Request.MaxConcurrency, "threads", "t", config.DefaultConcurrency, "Maximum concurrent requests")
	f.IntVar(&opts.Request.TimeoutSeconds, "timeout", config.DefaultTimeoutSeconds, "HTTP request timeout in seconds")
	f.Float64Var(&opts.HTTP.RateLimit, "rate-limit", 0, "Maximum requests per second (0 = unlimited)")
	f.BoolVar(&opts.HTTP.AdaptiveThrottle, "adaptive-throttle", false, "Auto back-off on 429/rate limits")

	// HTTP
	f.StringSliceP("header", "H", nil, "Custom header (e.g. 'Authorization: Bearer x'), repeatable")
	f.StringVar(&opts.HTTP.UserAgent, "user-agent", "", "Custom User-Agent string")
	f.StringVar(&opts.HTTP.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")
	f.BoolVar(&opts.Request.FollowRedirects, "follow-redirects", false, "Follow HTTP redirects while enumerating")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Output file path")
	f.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json, csv")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.StringVar(&opts.SortBy, "sort", "", "Sort results: status, path, size (buffers until scan completes)")
	f.BoolVar(&opts.Tree, "tree", false, "Print directory tree summary after scan")
	f.StringVar(&opts.OnResultCmd, "on-result", "", "Shell command to run for each result (receives JSON on stdin)")

	// Configuration
	f.StringVar(&configFile, "config", "", "YAML config file; flags given on the command line win")

	// Categorized help for the scan command, cobra's default for the rest.
	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			defaultHelp(cmd, args)
			return
		}
		printGroupedHelp(os.Stderr, cmd)
	})
}

// Execute runs the root command.
func Execute() {
	// SIGINT is handled by the commands so a scan can report partial results.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseHeaders merges -H values into h.Headers. Command-line headers override
// headers of the same name from a config file.
func parseHeaders(fs *pflag.FlagSet, h *config.HTTP) error {
	headers, _ := fs.GetStringSlice("header")
	for _, raw := range headers {
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid header format %q, expected 'Key: Value'", raw)
		}
		if h.Headers == nil {
			h.Headers = make(map[string]string, len(headers))
		}
		h.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return nil
}

// mergeConfigFile loads path over the flag-bound options, then restores every
// flag the user set explicitly.
func mergeConfigFile(fs *pflag.FlagSet, path string, scan *config.Options, serve *config.ServerOptions) error {
	type saved struct {
		flag  *pflag.Flag
		value string
		slice []string
	}
	var changed []saved
	fs.Visit(func(f *pflag.Flag) {
		s := saved{flag: f, value: f.Value.String()}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			s.slice = append([]string(nil), sv.GetSlice()...)
		}
		changed = append(changed, s)
	})

	if err := config.LoadFile(path, scan, serve); err != nil {
		return err
	}

	for _, s := range changed {
		var err error
		if sv, ok := s.flag.Value.(pflag.SliceValue); ok {
			err = sv.Replace(s.slice)
		} else {
			err = s.flag.Value.Set(s.value)
		}
		if err != nil {
			return fmt.Errorf("restoring --%s: %w", s.flag.Name, err)
		}
	}
	return nil
}

func printGroupedHelp(w io.Writer, cmd *cobra.Command) {
	ver := cmd.Version
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	fmt.Fprintf(w, "\n  dirgraph %s\n\n%s\n\nUsage:\n  %s\n  dirgraph serve [flags]\n", ver, cmd.Long, cmd.UseLine())
	fmt.Fprintf(w, "\nExamples:\n%s\n\nFlags:\n", cmd.Example)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, g := range helpGroups {
		fmt.Fprintf(tw, "\n%s:\n", g.title)
		for _, name := range g.flags {
			if f := cmd.Flags().Lookup(name); f != nil {
				fmt.Fprintf(tw, "   %s\t%s\n", flagName(f), flagUsage(f))
			}
		}
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func flagName(f *pflag.Flag) string {
	name := "    --" + f.Name
	if f.Shorthand != "" {
		name = "-" + f.Shorthand + ", --" + f.Name
	}
	if typ := f.Value.Type(); typ != "bool" {
		name += " " + typ
	}
	return name
}

// flagUsage appends the default unless it is a zero value.
func flagUsage(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "false", "0", "0s", "[]":
		return f.Usage
	}
	return fmt.Sprintf("%s (default %s)", f.Usage, f.DefValue)
}
