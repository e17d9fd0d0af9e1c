package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/redact"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// Failure is one retained failure detail.
type Failure struct {
	Identity string
	Err      error
}

// Report is the end-of-run accounting.
type Report struct {
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []Failure
}

// Summary renders the one-line run summary.
func (r Report) Summary() string {
	return fmt.Sprintf("Done. Generated: %d, Skipped: %d, Failed: %d", r.Succeeded, r.Skipped, r.Failed)
}

// FailurePreview renders the retained failures on one line, or "" if none.
func (r Report) FailurePreview() string {
	if len(r.Failures) == 0 {
		return ""
	}
	parts := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		parts[i] = fmt.Sprintf("%s: %s", f.Identity, redact.Error(f.Err))
	}
	return fmt.Sprintf("Example failures (first %d): %s", len(r.Failures), strings.Join(parts, ", "))
}

const (
	summarySheet  = "Summary"
	failuresSheet = "Failures"
)

// ExportXLSX writes the report as a spreadsheet with a summary sheet and a
// sheet of retained failures.
func ExportXLSX(fs afero.Fs, path, runID, kind string, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("prepare summary sheet: %w", err)
	}
	rows := [][]any{
		{"Run", runID},
		{"Kind", kind},
		{"Generated", r.Succeeded},
		{"Skipped", r.Skipped},
		{"Failed", r.Failed},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 14)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)

	if _, err := f.NewSheet(failuresSheet); err != nil {
		return fmt.Errorf("prepare failures sheet: %w", err)
	}
	for j, h := range []string{"Identity", "Error"} {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		_ = f.SetCellValue(failuresSheet, cell, h)
	}
	for i, failure := range r.Failures {
		_ = f.SetCellValue(failuresSheet, fmt.Sprintf("A%d", i+2), failure.Identity)
		_ = f.SetCellValue(failuresSheet, fmt.Sprintf("B%d", i+2), redact.Error(failure.Err))
	}
	_ = f.SetColWidth(failuresSheet, "A", "A", 66)
	_ = f.SetColWidth(failuresSheet, "B", "B", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return writeAll(fs, path, buf)
}

func writeAll(fs afero.Fs, path string, buf *bytes.Buffer) error {
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return &LocalIOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
