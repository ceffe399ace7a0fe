package validate

import (
	"encoding/json"
	"fmt"
	"io"
)

// Formatter writes a Result.
type Formatter interface {
	Format(w io.Writer, path string, result *Result) error
}

// TextFormatter formats results for a terminal.
type TextFormatter struct{}

// Format writes one line per issue followed by a summary.
func (TextFormatter) Format(w io.Writer, path string, result *Result) error {
	for _, issue := range result.Issues {
		where := issue.Device
		if issue.Stream != "" {
			where += "/" + issue.Stream
		}
		if _, err := fmt.Fprintf(w, "%-7s %s: %s [%s]\n", issue.Severity, where, issue.Message, issue.Rule); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s: %d devices, %d streams, %d errors, %d warnings\n",
		path, result.Devices, result.Streams, result.ErrorCount(), result.WarningCount())
	return err
}

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// JSONOutput represents the JSON output structure.
type JSONOutput struct {
	Path         string      `json:"path"`
	Devices      int         `json:"devices"`
	Streams      int         `json:"streams"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	Issues       []JSONIssue `json:"issues"`
}

// JSONIssue represents a single issue in JSON format.
type JSONIssue struct {
	Device   string `json:"device"`
	Stream   string `json:"stream,omitempty"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

// Format writes result as an indented JSON document.
func (JSONFormatter) Format(w io.Writer, path string, result *Result) error {
	out := JSONOutput{
		Path:         path,
		Devices:      result.Devices,
		Streams:      result.Streams,
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
		Issues:       make([]JSONIssue, 0, len(result.Issues)),
	}
	for _, issue := range result.Issues {
		out.Issues = append(out.Issues, JSONIssue{
			Device:   issue.Device,
			Stream:   issue.Stream,
			Severity: issue.Severity.String(),
			Rule:     issue.Rule,
			Message:  issue.Message,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
