// Package hook runs a user command for every reported finding.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/maxvaer/dirgraph/internal/scanner"
)

// Timeout bounds one hook invocation.
const Timeout = 30 * time.Second

// Runner executes a shell command per finding. The finding arrives as JSON on
// stdin, as DIRGRAPH_* environment variables, and through the {url}, {path},
// {status} and {size} placeholders, which are shell-quoted on substitution.
type Runner struct {
	template string
	quiet    bool
	out      io.Writer
}

// NewRunner returns a Runner for the command template. Hook output and
// failures go to stderr unless quiet.
func NewRunner(template string, quiet bool) *Runner {
	return &Runner{template: template, quiet: quiet, out: os.Stderr}
}

// Run executes the hook for result. Failures are reported, never returned.
func (r *Runner) Run(ctx context.Context, result *scanner.ProbeResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		r.report("marshal error: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cmd := shellCommand(ctx, r.command(result))
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), environ(result)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if len(out) > 0 {
		r.report("%s", out)
	}
	if err != nil {
		r.report("error: %v %s\n", err, strings.TrimSpace(stderr.String()))
	}
}

func (r *Runner) report(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "[hook] "+format, args...)
}

func fields(result *scanner.ProbeResult) (url, path, status, size string) {
	if result.Size != nil {
		size = strconv.FormatInt(*result.Size, 10)
	}
	return result.URL, result.Path, strconv.Itoa(result.Status), size
}

// command substitutes the placeholders of the template.
func (r *Runner) command(result *scanner.ProbeResult) string {
	url, path, status, size := fields(result)
	return strings.NewReplacer(
		"{url}", quote(url),
		"{path}", quote(path),
		"{status}", status,
		"{size}", size,
	).Replace(r.template)
}

func environ(result *scanner.ProbeResult) []string {
	url, path, status, size := fields(result)
	return []string{
		"DIRGRAPH_URL=" + url,
		"DIRGRAPH_PATH=" + path,
		"DIRGRAPH_STATUS=" + status,
		"DIRGRAPH_SIZE=" + size,
	}
}

// quote makes s a single shell word.
func quote(s string) string {
	if runtime.GOOS == "windows" {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func shellCommand(ctx context.Context, line string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", line)
	}
	return exec.CommandContext(ctx, "sh", "-c", line)
}
