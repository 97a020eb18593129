// Package reqparse imports a target and its headers from a raw HTTP request,
// such as a Burp Suite "Copy to file" export.
package reqparse

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/maxvaer/dirgraph/internal/config"
)

// Template is what a captured request contributes to a scan.
type Template struct {
	URL       string // scheme://host, the wordlist supplies the paths
	UserAgent string
	Headers   map[string]string
}

// skipped headers are owned by the transport or would change response sizes.
var skipped = map[string]bool{
	"Accept-Encoding":   true,
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Proxy-Connection":  true,
	"Te":                true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"User-Agent":        true,
}

// ParseFile reads the raw request at path.
func ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening request file: %w", err)
	}
	return Parse(data)
}

// Parse extracts the target and headers from a raw request. HTTP/2 request
// lines and files without the trailing blank line are accepted.
func Parse(data []byte) (*Template, error) {
	data = bytes.TrimRight(data, "\r\n")
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("request file is empty")
	}

	line, rest, _ := bytes.Cut(data, []byte("\n"))
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return nil, fmt.Errorf("invalid request line: %q", strings.TrimSpace(string(line)))
	}
	proto := "HTTP/1.1"
	if len(fields) >= 3 {
		proto = strings.ToUpper(fields[2])
	}

	// net/http only parses HTTP/1.x request lines.
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", fields[0], fields[1])
	buf.Write(rest)
	buf.WriteString("\r\n\r\n")

	req, err := http.ReadRequest(bufio.NewReader(&buf))
	if err != nil {
		return nil, fmt.Errorf("parsing request file: %w", err)
	}
	if req.Host == "" {
		return nil, fmt.Errorf("request file missing Host header")
	}

	t := &Template{
		URL:       baseURL(req, proto),
		UserAgent: req.Header.Get("User-Agent"),
		Headers:   make(map[string]string, len(req.Header)),
	}
	for name, values := range req.Header {
		if skipped[name] {
			continue
		}
		t.Headers[name] = strings.Join(values, ", ")
	}
	return t, nil
}

// baseURL keeps only scheme and host. Captures are assumed to be TLS unless
// the request line carries an absolute URL or the host names port 80.
func baseURL(req *http.Request, proto string) string {
	if req.URL.Scheme != "" && req.URL.Host != "" {
		return req.URL.Scheme + "://" + req.URL.Host
	}
	scheme := "https"
	if strings.HasPrefix(proto, "HTTP/1") && strings.HasSuffix(req.Host, ":80") {
		scheme = "http"
	}
	return scheme + "://" + req.Host
}

// Apply fills the target, user agent and headers of opts. Values already set
// on the command line take precedence.
func (t *Template) Apply(opts *config.Options) {
	if opts.Request.URL == "" {
		opts.Request.URL = t.URL
	}
	if opts.HTTP.UserAgent == "" {
		opts.HTTP.UserAgent = t.UserAgent
	}
	if len(t.Headers) > 0 && opts.HTTP.Headers == nil {
		opts.HTTP.Headers = make(map[string]string, len(t.Headers))
	}
	for k, v := range t.Headers {
		if _, ok := opts.HTTP.Headers[k]; !ok {
			opts.HTTP.Headers[k] = v
		}
	}
}
