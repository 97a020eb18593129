package output

import (
	"encoding/json"
	"io"

	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/scanner"
)

// jsonReport is the document written on WriteFooter. Findings is never null.
type jsonReport struct {
	Summary    events.Summary         `json:"summary"`
	Units      int                    `json:"units"`
	Errors     int                    `json:"errors"`
	DurationMS int64                  `json:"duration_ms"`
	Findings   []*scanner.ProbeResult `json:"findings"`
}

// JSONWriter collects findings and emits a single report at the end of the
// run, since a JSON document cannot be streamed line by line.
type JSONWriter struct {
	dst    io.Writer
	file   io.Closer
	report jsonReport
}

// NewJSONWriter writes the report to outputFile, or stdout when empty.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
	dst, file, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	jw := &JSONWriter{dst: dst, file: file}
	jw.report.Findings = make([]*scanner.ProbeResult, 0, 16)
	return jw, nil
}

func (jw *JSONWriter) WriteHeader() error { return nil }

func (jw *JSONWriter) WriteResult(result *scanner.ProbeResult) error {
	jw.report.Findings = append(jw.report.Findings, result)
	return nil
}

func (jw *JSONWriter) WriteFooter(stats Stats) error {
	jw.report.Summary = stats.Summary
	jw.report.Units = stats.Units
	jw.report.Errors = stats.Errors
	jw.report.DurationMS = stats.Duration.Milliseconds()

	enc := json.NewEncoder(jw.dst)
	enc.SetIndent("", "  ")
	return enc.Encode(&jw.report)
}

func (jw *JSONWriter) Close() error {
	if jw.file == nil {
		return nil
	}
	return jw.file.Close()
}
