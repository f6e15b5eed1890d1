// package formatter renders run summaries and failure reports to various formats (text, Markdown, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tmacdonald/prefsweep/internal/engine"
	"github.com/tmacdonald/prefsweep/internal/shared"
)

// elapsedPrecision keeps elapsed durations readable in reports.
const elapsedPrecision = 10 * time.Millisecond

// SummaryToText renders a run summary as a plain-text report suitable for
// terminal output and log archives.
func SummaryToText(summary *engine.RunSummary) []byte {
	var buf bytes.Buffer

	rule := strings.Repeat("=", 52)
	buf.WriteString(rule + "\n")
	buf.WriteString(fmt.Sprintf("Preference sweep %s\n", shared.ShortID(summary.RunID)))
	buf.WriteString(rule + "\n")
	buf.WriteString(fmt.Sprintf("Terms:            %s\n", strings.Join(summary.Terms, ", ")))
	buf.WriteString(fmt.Sprintf("Target frequency: %s\n", summary.Frequency))
	buf.WriteString(fmt.Sprintf("Elapsed:          %s\n\n", summary.Elapsed.Round(elapsedPrecision)))

	buf.WriteString(fmt.Sprintf("Courses visited:  %d\n", summary.Courses))
	buf.WriteString(fmt.Sprintf("Users in scope:   %d\n", summary.Users))
	buf.WriteString(fmt.Sprintf("Planned updates:  %d (%d categories excluded)\n", summary.Planned, summary.Excluded))
	buf.WriteString(fmt.Sprintf("Succeeded:        %d\n", summary.Succeeded))
	buf.WriteString(fmt.Sprintf("Skipped:          %d\n", summary.Skipped))
	buf.WriteString(fmt.Sprintf("Failed:           %d\n", summary.Failed))
	buf.WriteString(fmt.Sprintf("API attempts:     %d\n", summary.Attempts))

	if len(summary.SkippedBranches) > 0 {
		buf.WriteString("\nSkipped branches:\n")
		for _, skip := range summary.SkippedBranches {
			buf.WriteString(fmt.Sprintf("  - %s %s: %s\n", skip.Scope, skip.ID, skip.Reason))
		}
	}

	if len(summary.Failures) > 0 {
		buf.WriteString("\nFailures:\n")
		for _, f := range summary.Failures {
			buf.WriteString(fmt.Sprintf("  - %s (user %d) %s: %s after %d attempt(s): %s\n",
				f.UserName, f.UserID, f.Notification, f.Class, f.Attempts, f.Error))
		}
	}

	if summary.Fatal != "" {
		buf.WriteString(fmt.Sprintf("\nAborted: %s\n", summary.Fatal))
	}

	return buf.Bytes()
}

// WriteSummary renders the plain-text report to w.
func WriteSummary(w io.Writer, summary *engine.RunSummary) error {
	if _, err := w.Write(SummaryToText(summary)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// SummaryToMarkdown renders a run summary as Markdown for pasting into
// tickets or wikis.
func SummaryToMarkdown(summary *engine.RunSummary) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Preference sweep `%s`\n\n", shared.ShortID(summary.RunID)))
	buf.WriteString(fmt.Sprintf("**Terms**: %s\n", strings.Join(summary.Terms, ", ")))
	buf.WriteString(fmt.Sprintf("**Target frequency**: %s\n", summary.Frequency))
	buf.WriteString(fmt.Sprintf("**Elapsed**: %s\n\n", summary.Elapsed.Round(elapsedPrecision)))

	buf.WriteString("| Courses | Users | Planned | Succeeded | Skipped | Failed | Excluded |\n")
	buf.WriteString("|---------|-------|---------|-----------|---------|--------|----------|\n")
	buf.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %d | %d |\n",
		summary.Courses, summary.Users, summary.Planned,
		summary.Succeeded, summary.Skipped, summary.Failed, summary.Excluded))

	if len(summary.SkippedBranches) > 0 {
		buf.WriteString("\n## Skipped branches\n\n")
		for _, skip := range summary.SkippedBranches {
			buf.WriteString(fmt.Sprintf("- %s `%s`: %s\n", skip.Scope, skip.ID, skip.Reason))
		}
	}

	if len(summary.Failures) > 0 {
		buf.WriteString("\n## Failures\n\n")
		for i, f := range summary.Failures {
			buf.WriteString(fmt.Sprintf("%d. %s (user %d), `%s`: %s after %d attempt(s)\n",
				i+1, f.UserName, f.UserID, f.Notification, f.Class, f.Attempts))
		}
	}

	if summary.Fatal != "" {
		buf.WriteString(fmt.Sprintf("\n**Aborted**: %s\n", summary.Fatal))
	}

	return buf.Bytes()
}

// FailuresToCSV converts failure details to CSV with columns: UserID, UserName, CourseID, Notification, Class, Attempts, Error
func FailuresToCSV(failures []engine.FailureDetail) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"UserID", "UserName", "CourseID", "Notification", "Class", "Attempts", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, f := range failures {
		record := []string{
			strconv.FormatInt(f.UserID, 10),
			f.UserName,
			strconv.FormatInt(f.CourseID, 10),
			f.Notification,
			f.Class,
			strconv.Itoa(f.Attempts),
			f.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SummaryToJSON generates a JSON representation of the full run summary
func SummaryToJSON(summary *engine.RunSummary) ([]byte, error) {
	return shared.MarshalJSON(summary, true)
}

// WriteFailuresCSV writes the run's failure details next to the caller for a
// later manual retry pass.
//
// Defaults to failures_{short run id}.csv as the filename.
func WriteFailuresCSV(summary *engine.RunSummary, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("failures_%s.csv", shared.ShortID(summary.RunID))
	}

	csvData, err := FailuresToCSV(summary.Failures)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// WriteSummaryJSON writes the full run summary as an indented JSON file.
//
// Defaults to sweep_{short run id}.json as the filename.
func WriteSummaryJSON(summary *engine.RunSummary, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("sweep_%s.json", shared.ShortID(summary.RunID))
	}

	data, err := SummaryToJSON(summary)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return filepath, nil
}
