package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/pkg/version"
)

const (
	// SnippetSize is how much of each body is kept for analysis.
	SnippetSize = 2048
	// FingerprintBodySize bounds the body kept by Fetch.
	FingerprintBodySize = 2 << 20
)

// Response holds the parsed HTTP response data.
type Response struct {
	StatusCode  int
	Size        int64  // total body length
	Body        []byte // leading part of the body, see Do and Fetch
	Header      http.Header
	URL         string
	RedirectURL string
	Duration    time.Duration
}

// RequesterConfig configures a Requester.
type RequesterConfig struct {
	Target          string
	Timeout         time.Duration
	FollowRedirects bool
	MaxConns        int
	HTTP            config.HTTP
}

// Requester wraps the HTTP clients used against one target.
type Requester struct {
	follow    *http.Client
	noFollow  *http.Client
	policy    *http.Client
	baseURL   *url.URL
	headers   map[string]string
	userAgent string
}

// NewRequester creates a Requester. Both clients share one transport so the
// prober and the enumeration reuse connections.
func NewRequester(cfg RequesterConfig) (*Requester, error) {
	base, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", cfg.Target, err)
	}
	if base.Scheme == "" {
		base.Scheme = "http"
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	conns := cfg.MaxConns
	if conns <= 0 {
		conns = config.DefaultConcurrency
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: cfg.Timeout,
		}).DialContext,
		MaxIdleConnsPerHost: conns,
		MaxIdleConns:        conns,
	}

	if cfg.HTTP.Proxy != "" {
		proxyURL, err := url.Parse(cfg.HTTP.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.HTTP.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	follow := &http.Client{Transport: transport, Timeout: cfg.Timeout}
	noFollow := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	policy := noFollow
	if cfg.FollowRedirects {
		policy = follow
	}

	ua := cfg.HTTP.UserAgent
	if ua == "" {
		ua = "dirgraph/" + version.Version
	}

	return &Requester{
		follow:    follow,
		noFollow:  noFollow,
		policy:    policy,
		baseURL:   base,
		headers:   cfg.HTTP.Headers,
		userAgent: ua,
	}, nil
}

// URLFor joins path onto the target base URL.
func (r *Requester) URLFor(path string) string {
	return r.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// Do sends a GET for path using the run's redirect policy. Body holds at most
// SnippetSize bytes.
func (r *Requester) Do(ctx context.Context, path string) (*Response, error) {
	return r.get(ctx, r.policy, path, SnippetSize)
}

// Fetch sends a GET for path with an explicit redirect policy and keeps up to
// FingerprintBodySize bytes of the body.
func (r *Requester) Fetch(ctx context.Context, path string, followRedirects bool) (*Response, error) {
	client := r.noFollow
	if followRedirects {
		client = r.follow
	}
	return r.get(ctx, client, path, FingerprintBodySize)
}

func (r *Requester) get(ctx context.Context, client *http.Client, path string, keep int) (*Response, error) {
	targetURL := r.URLFor(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", r.userAgent)
	for k, v := range r.headers {
		// net/http sends req.Host, not a Host header.
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Only the first keep bytes are held; the rest is counted and dropped.
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(keep)))
	if err != nil {
		return nil, fmt.Errorf("reading response body for %s: %w", path, err)
	}
	rest, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body for %s: %w", path, err)
	}
	elapsed := time.Since(start)
	size := int64(len(body)) + rest

	return &Response{
		StatusCode:  resp.StatusCode,
		Size:        size,
		Body:        body,
		Header:      resp.Header,
		URL:         targetURL,
		RedirectURL: resp.Header.Get("Location"),
		Duration:    elapsed,
	}, nil
}
