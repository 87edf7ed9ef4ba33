package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sprucekit/spruce/internal/classify"
	"github.com/sprucekit/spruce/internal/inventory"
)

const headingWidth = 10

// WriteText renders the report for humans: one heading per section,
// each record as id, name, and reasons. verbose additionally lists the
// in-use objects per section.
func WriteText(w io.Writer, rpt *Report, verbose bool) error {
	fmt.Fprintf(w, "Spruce report for %s\n", rpt.Header.Server)
	fmt.Fprintf(w, "Generated %s by %s (API user %s)\n\n",
		rpt.Header.Date.Format("2006-01-02 15:04:05 MST"),
		rpt.Header.LocalUser, rpt.Header.APIUser)

	for _, section := range rpt.Sections {
		writeHeading(w, fmt.Sprintf("Cruft: %s (%d of %d)",
			section.Type.Plural(), len(section.Records), len(section.Records)+len(section.Used)))
		if len(section.Records) == 0 {
			fmt.Fprintln(w, "Nothing flagged.")
		}
		for _, record := range section.Records {
			name := record.Object.Name
			if strings.TrimSpace(name) == "" {
				name = "(no name)"
			}
			if note := recordNote(record.Object); note != "" {
				name += " [" + note + "]"
			}
			fmt.Fprintf(w, "[%d] %s - %s (%s)\n",
				record.Object.ID, name, joinReasons(record.Reasons), rankLabel(record.Rank))
		}
		fmt.Fprintln(w)

		if verbose {
			writeHeading(w, fmt.Sprintf("In use: %s", section.Type.Plural()))
			for _, obj := range section.Used {
				fmt.Fprintf(w, "[%d] %s\n", obj.ID, obj.Name)
			}
			fmt.Fprintln(w)
		}
	}

	writeSummary(w, rpt.Summary)

	if len(rpt.Diags) > 0 {
		writeHeading(w, "Diagnostics")
		for _, diag := range rpt.Diags {
			fmt.Fprintf(w, "%s %d: %s\n", diag.Container.Type, diag.Container.ID, diag.Problem)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// recordNote adds per-type context an operator wants before deleting:
// whether a flagged group is smart or static, and whether a flagged
// policy is already disabled.
func recordNote(obj inventory.ManagedObject) string {
	if obj.Detail == nil {
		return ""
	}
	switch obj.Type {
	case inventory.TypeComputerGroup, inventory.TypeMobileDeviceGroup:
		if obj.Detail.Smart {
			return "smart"
		}
		return "static"
	case inventory.TypePolicy:
		if !obj.Detail.Enabled {
			return "disabled"
		}
	}
	return ""
}

func writeHeading(w io.Writer, title string) {
	fmt.Fprintf(w, "%s %s:\n", strings.Repeat("#", headingWidth), title)
}

func joinReasons(reasons []classify.Reason) string {
	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = string(reason)
	}
	return strings.Join(parts, ", ")
}

func writeSummary(w io.Writer, summary Summary) {
	writeHeading(w, "Summary")
	fmt.Fprintf(w, "Objects examined: %d\n", summary.TotalObjects)
	fmt.Fprintf(w, "Cruft records: %d\n", summary.TotalCruft)
	for rank := 1; rank <= 4; rank++ {
		if count := summary.CountsByRank[rank]; count > 0 {
			fmt.Fprintf(w, "  rank %s: %d\n", rankLabel(rank), count)
		}
	}
	writeHistogram(w, "OS versions", summary.OSVersions)
	writeHistogram(w, "Last check-in by month", summary.CheckInMonths)
	fmt.Fprintln(w)
}

// writeHistogram prints buckets sorted by key so identical snapshots
// produce identical output.
func writeHistogram(w io.Writer, title string, buckets map[string]int) {
	if len(buckets) == 0 {
		return
	}
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, key := range keys {
		fmt.Fprintf(w, "  %-12s %s (%d)\n", key, strings.Repeat("*", bar(buckets[key])), buckets[key])
	}
}

// bar caps histogram bars so one huge bucket cannot blow out the line
// width.
func bar(count int) int {
	if count > 40 {
		return 40
	}
	return count
}
