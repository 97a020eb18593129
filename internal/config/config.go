package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Start contract defaults.
const (
	DefaultConcurrency    = 64
	MaxConcurrency        = 1024
	DefaultTimeoutSeconds = 10
	DefaultMaxPaths       = 50000
	DefaultCorpusRoot     = "data/SecLists/Discovery/Web-Content"
	DefaultListenAddr     = ":8080"
	DefaultRetention      = 10 * time.Minute
)

var (
	// ErrInvalidTarget is returned when the target URL is not absolute http(s).
	ErrInvalidTarget = errors.New("invalid target URL")
	// ErrInvalidOption is returned for out-of-range numeric options.
	ErrInvalidOption = errors.New("invalid option")
)

// StartRequest is what a caller supplies to start one enumeration job.
type StartRequest struct {
	URL             string `json:"url" yaml:"url"`
	MaxConcurrency  int    `json:"max_concurrency" yaml:"max_concurrency"`
	TimeoutSeconds  int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	FollowRedirects bool   `json:"follow_redirects" yaml:"follow_redirects"`
	MaxPaths        int    `json:"max_paths" yaml:"max_paths"`
}

// DefaultStartRequest returns a request for target with every default applied.
func DefaultStartRequest(target string) StartRequest {
	return StartRequest{
		URL:            target,
		MaxConcurrency: DefaultConcurrency,
		TimeoutSeconds: DefaultTimeoutSeconds,
		MaxPaths:       DefaultMaxPaths,
	}
}

// ApplyDefaults fills zero-valued numeric fields.
func (r *StartRequest) ApplyDefaults() {
	if r.MaxConcurrency == 0 {
		r.MaxConcurrency = DefaultConcurrency
	}
	if r.TimeoutSeconds == 0 {
		r.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if r.MaxPaths == 0 {
		r.MaxPaths = DefaultMaxPaths
	}
}

// Validate checks the request against the start contract.
func (r StartRequest) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must be absolute with an http or https scheme", ErrInvalidTarget, r.URL)
	}
	if r.MaxConcurrency <= 0 || r.MaxConcurrency > MaxConcurrency {
		return fmt.Errorf("%w: max_concurrency must be between 1 and %d, got %d", ErrInvalidOption, MaxConcurrency, r.MaxConcurrency)
	}
	if r.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout_seconds must be positive, got %d", ErrInvalidOption, r.TimeoutSeconds)
	}
	if r.MaxPaths <= 0 {
		return fmt.Errorf("%w: max_paths must be positive, got %d", ErrInvalidOption, r.MaxPaths)
	}
	return nil
}

// Timeout returns the per-request timeout as a duration.
func (r StartRequest) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// HTTP holds transport settings shared by every request of a run.
type HTTP struct {
	UserAgent        string            `yaml:"user_agent"`
	Headers          map[string]string `yaml:"headers"`
	Proxy            string            `yaml:"proxy"`
	RateLimit        float64           `yaml:"rate_limit"` // requests per second, 0 = unlimited
	AdaptiveThrottle bool              `yaml:"adaptive_throttle"`
}

// Options holds all configuration for a CLI scan.
type Options struct {
	Request    StartRequest `yaml:"request"`
	CorpusRoot string       `yaml:"corpus"`
	Wordlists  []string     `yaml:"wordlists"` // extra files appended to the selection
	HTTP       HTTP         `yaml:"http"`

	// Filtering of reported findings
	ExcludeStatus []int `yaml:"exclude_status"`
	ExcludeSizes  []int `yaml:"exclude_sizes"`

	// Output
	OutputFile   string `yaml:"output"`
	OutputFormat string `yaml:"format"` // "text", "json", "csv"
	Quiet        bool   `yaml:"quiet"`
	NoColor      bool   `yaml:"no_color"`
	SortBy       string `yaml:"sort"`
	Tree         bool   `yaml:"tree"`
	OnResultCmd  string `yaml:"on_result"`
}

// ServerOptions configures the HTTP job server.
type ServerOptions struct {
	ListenAddr   string        `yaml:"listen"`
	CorpusRoot   string        `yaml:"corpus"`
	Retention    time.Duration `yaml:"retention"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"` // "text" or "json"
	OTLPEndpoint string        `yaml:"otlp_endpoint"`
	OTLPInsecure bool          `yaml:"otlp_insecure"`
	HTTP         HTTP          `yaml:"http"`
}
