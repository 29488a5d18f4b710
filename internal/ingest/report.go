package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// maxReportErrors caps the error preview in WriteReport.
const maxReportErrors = 5

var rule = strings.Repeat("=", 70)

// FormatDuration renders d in seconds, minutes or hours with one decimal.
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		return fmt.Sprintf("%.1fm", s/60)
	default:
		return fmt.Sprintf("%.1fh", s/3600)
	}
}

// WriteReport writes a human-readable summary of run to w.
func WriteReport(w io.Writer, run Run) error {
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "IMPORT STATISTICS")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Run:             %s\n", run.ID)
	fmt.Fprintf(&b, "Files processed: %d/%d\n", run.Processed, run.Total)
	fmt.Fprintf(&b, "Files failed:    %d\n", run.Failed)
	fmt.Fprintf(&b, "Files embedded:  %d (%d failed)\n", run.Embedded, run.EmbedFailed)
	if run.Cancelled {
		fmt.Fprintln(&b, "Status:          cancelled")
	}

	fmt.Fprintln(&b, "\nTiming:")
	fmt.Fprintf(&b, "  Total time:           %s\n", FormatDuration(run.Elapsed))
	fmt.Fprintf(&b, "  Cypher generation:    %s (%.1f%%)\n", FormatDuration(run.Translation), run.Share(run.Translation))
	fmt.Fprintf(&b, "  Database execution:   %s (%.1f%%)\n", FormatDuration(run.GraphWrite), run.Share(run.GraphWrite))
	fmt.Fprintf(&b, "  Embedding generation: %s (%.1f%%)\n", FormatDuration(run.Embedding), run.Share(run.Embedding))
	if run.Processed+run.Failed > 0 {
		fmt.Fprintln(&b)
	}
	if run.Processed > 0 {
		fmt.Fprintf(&b, "Average time per file: %s\n", FormatDuration(run.AvgPerDocument()))
	}
	if run.Processed+run.Failed > 0 {
		fmt.Fprintf(&b, "  Cypher generation:    %s per file\n", FormatDuration(run.AvgTranslation()))
	}
	if run.Processed > 0 {
		fmt.Fprintf(&b, "  Database execution:   %s per file\n", FormatDuration(run.AvgGraphWrite()))
	}

	if len(run.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors encountered: %d\n", len(run.Errors))
		for _, e := range run.Errors[:min(len(run.Errors), maxReportErrors)] {
			fmt.Fprintf(&b, "  - %s (%s): %s\n", filepath.Base(e.Document), e.Phase, e.Message)
		}
		if n := len(run.Errors) - maxReportErrors; n > 0 {
			fmt.Fprintf(&b, "  ... and %d more errors\n", n)
		}
	}
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}
