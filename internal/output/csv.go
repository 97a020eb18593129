package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/maxvaer/dirgraph/internal/scanner"
)

var csvColumns = []string{"url", "path", "status", "size", "redirect", "issues"}

// CSVWriter writes one row per finding. An unknown size is an empty cell.
type CSVWriter struct {
	rows   *csv.Writer
	closer io.Closer
}

// NewCSVWriter creates a CSV output writer on outputFile, or stdout.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{rows: csv.NewWriter(w), closer: closer}, nil
}

func (c *CSVWriter) WriteHeader() error { return c.rows.Write(csvColumns) }

func (c *CSVWriter) WriteResult(result *scanner.ProbeResult) error {
	return c.rows.Write(csvRecord(result))
}

func csvRecord(r *scanner.ProbeResult) []string {
	size := sizeString(r)
	if r.Size == nil {
		size = ""
	}
	return []string{r.URL, r.Path, strconv.Itoa(r.Status), size, r.RedirectedTo, strings.Join(r.Issues, "; ")}
}

// WriteFooter flushes buffered rows; CSV has no footer.
func (c *CSVWriter) WriteFooter(Stats) error {
	c.rows.Flush()
	return c.rows.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
