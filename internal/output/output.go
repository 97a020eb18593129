// Package output renders findings for the command line.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/scanner"
)

// Stats holds aggregate run statistics.
type Stats struct {
	Units          int
	Errors         int
	Summary        events.Summary
	Duration       time.Duration
	RequestsPerSec float64
}

// Writer is implemented by each output format.
type Writer interface {
	WriteHeader() error
	WriteResult(result *scanner.ProbeResult) error
	WriteFooter(stats Stats) error
	Close() error
}

// New returns the writer for format ("text", "json" or "csv"), wrapped in a
// SortedWriter when sortBy is set. Text footers are written to status.
func New(format, outputFile, sortBy string, noColor, quiet bool, status io.Writer) (Writer, error) {
	var (
		w   Writer
		err error
	)
	switch format {
	case "", "text":
		w, err = NewTextWriter(outputFile, noColor, quiet, status)
	case "json":
		w, err = NewJSONWriter(outputFile)
	case "csv":
		w, err = NewCSVWriter(outputFile)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if sortBy != "" {
		w = NewSortedWriter(w, sortBy)
	}
	return w, nil
}

// openOutput returns stdout or the created file and its closer.
func openOutput(outputFile string) (io.Writer, io.Closer, error) {
	if outputFile == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f, nil
}

func sizeString(r *scanner.ProbeResult) string {
	if r.Size == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *r.Size)
}
