// Package report aggregates classifier output into a single immutable
// report and serializes it: plain text for humans, the SpruceReport
// interchange document for editing and resubmission as a removal
// request.
package report

import (
	"fmt"
	"time"

	"github.com/sprucekit/spruce/internal/classify"
	"github.com/sprucekit/spruce/internal/graph"
	"github.com/sprucekit/spruce/internal/inventory"
)

// Header carries the report provenance fields from the interchange
// schema.
type Header struct {
	Date          time.Time
	Server        string
	APIUser       string
	LocalUser     string
	ToolVersion   string
	ClientVersion string
}

// Section is one object type's cruft records plus, for verbose text
// output, the objects that are in use.
type Section struct {
	Type    inventory.ObjectType
	Records []classify.Record
	Used    []inventory.ManagedObject
}

// Summary holds the report-wide statistics.
type Summary struct {
	TotalObjects  int
	TotalCruft    int
	CountsByRank  map[int]int
	OSVersions    map[string]int // OS version spread across computers and devices
	CheckInMonths map[string]int // last-check-in bucketed by YYYY-MM; "never" for absent
}

// Report is the product of one reporting invocation. It is immutable
// after Aggregate returns.
type Report struct {
	Header   Header
	Sections []Section
	Summary  Summary
	Diags    []graph.Diagnostic
}

// Aggregate classifies every requested type and merges the results.
// Section order follows the type enumeration; record order within a
// section is ascending rank then ascending id. Given an identical
// snapshot the output is byte-for-byte reproducible.
func Aggregate(header Header, snap *inventory.Snapshot, idx *graph.Index, requested []inventory.ObjectType, opts classify.Options) *Report {
	wanted := make(map[inventory.ObjectType]bool, len(requested))
	for _, t := range requested {
		wanted[t] = true
	}

	rpt := &Report{
		Header: header,
		Summary: Summary{
			CountsByRank:  make(map[int]int),
			OSVersions:    make(map[string]int),
			CheckInMonths: make(map[string]int),
		},
		Diags: idx.Diagnostics(),
	}

	for _, t := range inventory.AllTypes() {
		if !wanted[t] {
			continue
		}
		objects := snap.ObjectsOf(t)
		section := Section{
			Type:    t,
			Records: classify.Run(t, idx, snap, opts),
		}
		section.Used = usedObjects(t, objects, idx, section.Records)

		rpt.Summary.TotalObjects += len(objects)
		rpt.Summary.TotalCruft += len(section.Records)
		for _, record := range section.Records {
			rpt.Summary.CountsByRank[record.Rank]++
		}
		if t == inventory.TypeComputer || t == inventory.TypeMobileDevice {
			bucketDevices(&rpt.Summary, objects)
		}
		rpt.Sections = append(rpt.Sections, section)
	}
	return rpt
}

// usedObjects lists the in-use objects of a type for verbose output.
// Device types have no usage definition, so staleness decides instead.
func usedObjects(t inventory.ObjectType, objects []inventory.ManagedObject, idx *graph.Index, records []classify.Record) []inventory.ManagedObject {
	flagged := make(map[int]bool, len(records))
	for _, record := range records {
		flagged[record.Object.ID] = true
	}
	var used []inventory.ManagedObject
	for _, obj := range objects {
		if t == inventory.TypeComputer || t == inventory.TypeMobileDevice {
			if !flagged[obj.ID] {
				used = append(used, obj)
			}
			continue
		}
		if idx.InUse(t, obj.ID) {
			used = append(used, obj)
		}
	}
	return used
}

// bucketDevices feeds the OS-version and check-in histograms.
func bucketDevices(summary *Summary, objects []inventory.ManagedObject) {
	for _, obj := range objects {
		osVersion := "unknown"
		checkin := "never"
		if obj.Detail != nil {
			if obj.Detail.OSVersion != "" {
				osVersion = obj.Detail.OSVersion
			}
			if obj.Detail.LastCheckIn != nil {
				checkin = obj.Detail.LastCheckIn.Format("2006-01")
			}
		}
		summary.OSVersions[osVersion]++
		summary.CheckInMonths[checkin]++
	}
}

// RemovalCandidates returns the report's cruft records as removal
// items, preserving section and record order. Device records are left
// out: stale hardware needs un-management, not a database delete, and
// the one-shot clean mode must never touch it.
func (r *Report) RemovalCandidates() []RemovalCandidate {
	var candidates []RemovalCandidate
	for _, section := range r.Sections {
		if section.Type == inventory.TypeComputer || section.Type == inventory.TypeMobileDevice {
			continue
		}
		for _, record := range section.Records {
			candidates = append(candidates, RemovalCandidate{
				Type: section.Type,
				ID:   record.Object.ID,
				Name: record.Object.Name,
			})
		}
	}
	return candidates
}

// RemovalCandidate mirrors a removal.Item without importing the
// removal package; the app layer converts.
type RemovalCandidate struct {
	Type inventory.ObjectType
	ID   int
	Name string
}

func rankLabel(rank int) string {
	switch rank {
	case classify.RankLow:
		return "low"
	case classify.RankModerate:
		return "moderate"
	case classify.RankHigh:
		return "high"
	case classify.RankCritical:
		return "critical"
	default:
		return fmt.Sprintf("rank-%d", rank)
	}
}
