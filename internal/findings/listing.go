package findings

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Group is the outcome of one detector: its findings or the error it failed with.
type Group struct {
	Detector string    `json:"detector"`
	Findings []Finding `json:"findings"`
	Error    string    `json:"error,omitempty"`
}

// Count returns the number of findings across groups.
func Count(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Findings)
	}
	return n
}

// Flatten returns every finding in group order.
func Flatten(groups []Group) []Finding {
	out := make([]Finding, 0, Count(groups))
	for _, g := range groups {
		out = append(out, g.Findings...)
	}
	return out
}

func severityColor(s Severity) func(a ...interface{}) string {
	switch s {
	case SeverityCritical:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case SeverityHigh:
		return color.New(color.FgRed).SprintFunc()
	case SeverityMedium:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgCyan).SprintFunc()
	}
}

// FormatLine renders a finding as a single listing line.
func FormatLine(f Finding) string {
	var where []string
	if f.Location.Job != "" {
		where = append(where, "job="+f.Location.Job)
	}
	if f.Location.Step != "" {
		where = append(where, "step="+f.Location.Step)
	}
	if f.Location.Line > 0 {
		where = append(where, fmt.Sprintf("line=%d", f.Location.Line))
	}
	line := fmt.Sprintf("%s %s: %s", severityColor(f.Severity)("["+string(f.Severity)+"]"), f.Category, f.Message)
	if len(where) > 0 {
		line += " (" + strings.Join(where, ", ") + ")"
	}
	return line
}

// WriteText prints one line per finding, grouped by detector.
func WriteText(w io.Writer, source string, groups []Group) error {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	if _, err := fmt.Fprintf(w, "%s %s (%d findings)\n", header("==>"), source, Count(groups)); err != nil {
		return err
	}
	for _, g := range groups {
		if g.Error != "" {
			if _, err := fmt.Fprintf(w, "  %s: error: %s\n", g.Detector, g.Error); err != nil {
				return err
			}
			continue
		}
		if len(g.Findings) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s\n", g.Detector); err != nil {
			return err
		}
		for _, f := range g.Findings {
			if _, err := fmt.Fprintf(w, "    %s\n", FormatLine(f)); err != nil {
				return err
			}
		}
	}
	return nil
}
