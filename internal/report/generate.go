package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/mfellner/squeezeoff/internal/result"
)

type row struct {
	Name      string
	Group     string
	RMS       float64
	TotalBits *int64
	Fail      bool
}

// Generate re-renders a stored summary.json from an output directory.
func Generate(outDir, format string, w io.Writer) error {
	summary, err := result.ReadSummary(filepath.Join(outDir, "summary.json"))
	if err != nil {
		return err
	}
	rows := flatten(summary)

	switch format {
	case "markdown":
		return writeMarkdown(rows, summary.Failed, w)
	case "json":
		return writeJSON(summary, w)
	default:
		return writeTable(rows, summary.Failed, w)
	}
}

func flatten(s *result.Summary) []row {
	var rows []row
	appendGroup := func(group string, results map[string]result.ImageResult) {
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r := results[name]
			rows = append(rows, row{Name: name, Group: group, RMS: r.RMS, TotalBits: r.TotalBits, Fail: r.Fail})
		}
	}
	appendGroup("required", s.Required)
	appendGroup("extra", s.Extra)
	return rows
}

func status(fail bool) string {
	if fail {
		return "FAIL"
	}
	return "pass"
}

func bits(total *int64) string {
	if total == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *total)
}

func writeTable(rows []row, failed bool, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE\tGROUP\tRMS\tTOTAL BITS\tSTATUS")
	fmt.Fprintln(tw, strings.Repeat("-", 60))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\t%s\n", r.Name, r.Group, r.RMS, bits(r.TotalBits), status(r.Fail))
	}
	fmt.Fprintf(tw, "\nOverall: %s\n", status(failed))
	return tw.Flush()
}

func writeMarkdown(rows []row, failed bool, w io.Writer) error {
	fmt.Fprintln(w, "| Image | Group | RMS | Total Bits | Status |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %s | %.3f | %s | %s |\n", r.Name, r.Group, r.RMS, bits(r.TotalBits), status(r.Fail))
	}
	fmt.Fprintf(w, "\nOverall: **%s**\n", status(failed))
	return nil
}

func writeJSON(s *result.Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
