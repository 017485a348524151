package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/paulista5/SABER/pkg/dataset"
)

// writeStructured writes v as JSON or YAML
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// outputReport displays an inspection report
func outputReport(w io.Writer, format string, report *dataset.Report) error {
	if format != "table" {
		return writeStructured(w, format, report)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Path:\t%s\n", report.Path)
	fmt.Fprintf(tw, "Engine:\t%s\n", report.Engine)
	fmt.Fprintf(tw, "Samples:\t%d\n", report.NumSamples)
	fmt.Fprintf(tw, "Present:\t%d\n", report.Present)
	fmt.Fprintf(tw, "Missing:\t%d %s\n", len(report.Missing), formatIndices(report.Missing))
	if len(report.Corrupt) > 0 {
		fmt.Fprintf(tw, "Corrupt:\t%d %s\n", len(report.Corrupt), formatIndices(report.Corrupt))
	}
	fmt.Fprintf(tw, "Bytes:\t%d\n", report.Bytes)
	return nil
}

// formatIndices lists the first few indices
func formatIndices(indices []int) string {
	if len(indices) == 0 {
		return ""
	}
	const limit = 10

	parts := make([]string, 0, limit)
	for i, idx := range indices {
		if i == limit {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprint(idx))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
