// Package cli formats answers, builds, and status for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat selects text or JSON output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q: use text or json", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer in the given format.
func WriteAnswer(w io.Writer, a *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	if a.Result.Found() {
		fmt.Fprintf(w, "%s\n", strings.TrimSpace(a.Result.Text))
	} else if a.Result.Text != "" {
		fmt.Fprintf(w, "%s\n", a.Result.Text)
	} else {
		fmt.Fprintf(w, "No answer was generated (%s).\n", a.Result.Reason)
	}
	fmt.Fprintf(w, "\n─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Best passage #%d | Score: %s | %dms\n", a.Match.Index, formatScore(a.Match.Score), a.QueryTime)
	fmt.Fprintf(w, "%s\n", utils.Truncate(utils.OneLine(a.Match.Passage.Text), 200))
	return nil
}

// WriteBuild writes a build summary.
func WriteBuild(w io.Writer, b *pipeline.BuildResult, format OutputFormat) error {
	if format == OutputJSON {
		out := struct {
			*pipeline.BuildResult
			PersistError string `json:"persist_error,omitempty"`
		}{BuildResult: b}
		if b.PersistErr != nil {
			out.PersistError = b.PersistErr.Error()
		}
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "Indexed %d passages (%d dimensions) as %q in %s\n", b.Passages, b.Dimensions, b.Key, b.Duration.Round(1e6))
	if !b.Persisted {
		fmt.Fprintf(w, "Warning: index was not saved: %v\n", b.PersistErr)
	}
	return nil
}

// WriteStatus writes store status.
func WriteStatus(w io.Writer, s *pipeline.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Backend:    %s\n", s.Backend)
	fmt.Fprintf(w, "Key:        %s\n", s.Key)
	if s.LoadError != "" {
		fmt.Fprintf(w, "Index:      unavailable (%s)\n", s.LoadError)
	} else {
		fmt.Fprintf(w, "Passages:   %d\n", s.Passages)
		fmt.Fprintf(w, "Dimensions: %d\n", s.Dimensions)
	}
	fmt.Fprintf(w, "Threshold:  %g\n", s.Threshold)
	if s.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(s.DiskUsageBytes))
	}
	if len(s.Indexes) > 0 {
		fmt.Fprintln(w, "\nStored indexes:")
		for _, idx := range s.Indexes {
			fmt.Fprintf(w, "  %-20s %10s  %s\n", idx.Key, FormatBytes(idx.SizeBytes), idx.UpdatedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func formatScore(s float64) string {
	if math.IsInf(s, -1) {
		return "-Inf"
	}
	return fmt.Sprintf("%.4f", s)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
