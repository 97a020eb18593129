package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/maxvaer/dirgraph/internal/scanner"
)

// TextWriter writes colored text output to a writer.
type TextWriter struct {
	w      io.Writer
	status io.Writer // footer destination
	closer io.Closer
	quiet  bool

	dim, ok, redirect, client, server, issue *color.Color
}

// NewTextWriter creates a text output writer. If outputFile is empty, stdout
// is used. The footer goes to status, or stderr when nil. Colors are disabled
// by noColor or when writing to a file.
func NewTextWriter(outputFile string, noColor, quiet bool, status io.Writer) (*TextWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = os.Stderr
	}
	t := &TextWriter{
		w:        w,
		status:   status,
		closer:   closer,
		quiet:    quiet,
		dim:      color.New(color.Faint),
		ok:       color.New(color.FgGreen),
		redirect: color.New(color.FgCyan),
		client:   color.New(color.FgYellow),
		server:   color.New(color.FgRed),
		issue:    color.New(color.FgMagenta),
	}
	if noColor || outputFile != "" {
		for _, c := range []*color.Color{t.dim, t.ok, t.redirect, t.client, t.server, t.issue} {
			c.DisableColor()
		}
	}
	return t, nil
}

func (t *TextWriter) WriteHeader() error {
	if t.quiet {
		return nil
	}
	_, err := t.dim.Fprintln(t.w, "Code      Size  URL")
	return err
}

func (t *TextWriter) WriteResult(result *scanner.ProbeResult) error {
	redirectInfo := ""
	if result.RedirectedTo != "" {
		redirectInfo = " -> " + result.RedirectedTo
	}
	issues := ""
	if len(result.Issues) > 0 {
		issues = "  " + t.issue.Sprintf("[%s]", strings.Join(result.Issues, "; "))
	}

	_, err := fmt.Fprintf(t.w, "%s  %8s  %s%s%s\n",
		t.colorForStatus(result.Status).Sprintf("%3d", result.Status),
		sizeString(result),
		result.URL,
		redirectInfo,
		issues,
	)
	return err
}

func (t *TextWriter) WriteFooter(stats Stats) error {
	if t.quiet {
		return nil
	}
	s := stats.Summary
	_, err := fmt.Fprintf(t.status,
		"\nCompleted: %d probes | Findings: %d (200: %d, 30x: %d, 401: %d, 403: %d) | Errors: %d | Duration: %s | %.1f req/s\n",
		stats.Units,
		s.TotalTested, s.OK200, s.Redirects30x, s.Auth401, s.Forbidden403,
		stats.Errors,
		stats.Duration.Round(time.Millisecond),
		stats.RequestsPerSec,
	)
	return err
}

func (t *TextWriter) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *TextWriter) colorForStatus(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return t.ok
	case code >= 300 && code < 400:
		return t.redirect
	case code >= 400 && code < 500:
		return t.client
	default:
		return t.server
	}
}
