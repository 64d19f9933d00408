package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/airframesio/split-verify/cmd/verifier"
	gojson "github.com/goccy/go-json"
)

// Report is everything a run emits.
type Report struct {
	Summary *verifier.Summary
	Diffs   []verifier.Diff
	Outcome verifier.Outcome
}

type jsonReport struct {
	Summary  *verifier.Summary `json:"summary"`
	Diffs    []verifier.Diff   `json:"diffs"`
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	ExitCode int               `json:"exit_code"`
}

// writeReport renders the report in the configured format
func writeReport(config *Config, stdout io.Writer, report *Report) error {
	w, closeFn, err := openReportWriter(config, stdout)
	if err != nil {
		return err
	}

	if config.OutputFormat == "json" {
		err = writeJSONReport(w, report)
	} else {
		err = writeTextReport(w, report)
	}
	if cerr := closeFn(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output file: %w", cerr)
	}
	return err
}

func writeJSONReport(w io.Writer, report *Report) error {
	encoder := gojson.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonReport{
		Summary:  report.Summary,
		Diffs:    report.Diffs,
		Status:   report.Outcome.String(),
		Message:  report.Outcome.Message(),
		ExitCode: int(report.Outcome),
	})
}

// writeTextReport outputs the summary, the diffs and a closing status line
func writeTextReport(w io.Writer, report *Report) error {
	s := report.Summary
	var b strings.Builder

	b.WriteString("Summary\n")
	fields := []struct {
		key   string
		value any
	}{
		{"orig_path", s.OrigPath},
		{"new_path", s.NewPath},
		{"orig_rows", s.OrigRows},
		{"new_rows", s.NewRows},
		{"orig_cols", s.OrigCols},
		{"new_cols", s.NewCols},
		{"missing_in_new_count", s.MissingInNewCount},
		{"extra_in_new_count", s.ExtraInNewCount},
		{"missing_in_new_sample", formatList(s.MissingInNewSample)},
		{"extra_in_new_sample", formatList(s.ExtraInNewSample)},
		{"shared_cols_compared", formatList(s.SharedColsCompared)},
		{"new_split_cols", formatList(s.NewSplitCols)},
		{"unexpected_blob_key_rows", s.UnexpectedBlobKeyRows},
		{"seen_blob_keys", formatList(s.SeenBlobKeys)},
	}
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %v\n", f.key, f.value)
	}

	if len(report.Diffs) > 0 {
		fmt.Fprintf(&b, "\nDiffs (showing %d):\n", len(report.Diffs))
		for _, d := range report.Diffs {
			fmt.Fprintf(&b, "- id=%s field=%s\n", d.ID, d.Field)
			fmt.Fprintf(&b, "  orig: %q\n", d.Original)
			fmt.Fprintf(&b, "  new: %q\n", d.New)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", report.Outcome.Message())

	_, err := io.WriteString(w, b.String())
	return err
}

// formatList renders a string list as ["a", "b"]
func formatList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
