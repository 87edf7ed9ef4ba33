package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/sprucekit/spruce/internal/classify"
	"github.com/sprucekit/spruce/internal/graph"
	"github.com/sprucekit/spruce/internal/inventory"
)

func pipelineSnapshot() *inventory.Snapshot {
	checkin := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	snap := &inventory.Snapshot{Objects: map[inventory.ObjectType][]inventory.ManagedObject{
		inventory.TypePackage: {
			{Type: inventory.TypePackage, ID: 1, Name: "Used-1.0.pkg"},
			{Type: inventory.TypePackage, ID: 2, Name: "Orphan.pkg"},
		},
		inventory.TypeScript: {
			{Type: inventory.TypeScript, ID: 3, Name: "lonely.sh"},
		},
		inventory.TypePolicy: {
			{Type: inventory.TypePolicy, ID: 9, Name: "deploy",
				Detail: &inventory.Detail{
					PackageIDs: []int{1},
					Scope:      &inventory.Scope{AllTargets: true},
				}},
		},
		inventory.TypeComputer: {
			{Type: inventory.TypeComputer, ID: 20, Name: "mac-1",
				Detail: &inventory.Detail{OSVersion: "14.5", LastCheckIn: &checkin}},
			{Type: inventory.TypeComputer, ID: 21, Name: "mac-2",
				Detail: &inventory.Detail{OSVersion: "13.6"}},
		},
	}}
	return snap
}

func pipelineReport() *Report {
	snap := pipelineSnapshot()
	idx := graph.Build(snap)
	opts := classify.Options{
		VersionsToKeep: 1,
		StaleAfter:     90 * 24 * time.Hour,
		Now:            time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	requested := []inventory.ObjectType{
		inventory.TypePackage, inventory.TypeScript,
		inventory.TypePolicy, inventory.TypeComputer,
	}
	return Aggregate(testHeader(), snap, idx, requested, opts)
}

// Running the full pipeline twice over the same snapshot must produce
// byte-identical output.
func TestPipelineIdempotent(t *testing.T) {
	var first, second bytes.Buffer
	if err := WriteText(&first, pipelineReport(), true); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if err := WriteText(&second, pipelineReport(), true); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two runs over the same snapshot differ")
	}

	first.Reset()
	second.Reset()
	if err := WriteInterchange(&first, pipelineReport()); err != nil {
		t.Fatalf("WriteInterchange: %v", err)
	}
	if err := WriteInterchange(&second, pipelineReport()); err != nil {
		t.Fatalf("WriteInterchange: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two serializations of the same snapshot differ")
	}
}

func TestAggregateSections(t *testing.T) {
	rpt := pipelineReport()

	if len(rpt.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(rpt.Sections))
	}
	// Sections follow the type enumeration order.
	for i := 1; i < len(rpt.Sections); i++ {
		if rpt.Sections[i-1].Type >= rpt.Sections[i].Type {
			t.Fatalf("sections out of order: %v", rpt.Sections)
		}
	}

	var packages Section
	for _, section := range rpt.Sections {
		if section.Type == inventory.TypePackage {
			packages = section
		}
	}
	if len(packages.Records) != 1 || packages.Records[0].Object.ID != 2 {
		t.Errorf("expected only the orphan package flagged, got %+v", packages.Records)
	}
	if len(packages.Used) != 1 || packages.Used[0].ID != 1 {
		t.Errorf("expected package 1 in the used list, got %+v", packages.Used)
	}
}

func TestAggregateSummary(t *testing.T) {
	rpt := pipelineReport()

	if rpt.Summary.TotalObjects != 6 {
		t.Errorf("TotalObjects = %d, want 6", rpt.Summary.TotalObjects)
	}
	// Orphan package, lonely script, stale mac-2 (no check-in ever).
	if rpt.Summary.TotalCruft != 3 {
		t.Errorf("TotalCruft = %d, want 3", rpt.Summary.TotalCruft)
	}
	if rpt.Summary.OSVersions["14.5"] != 1 || rpt.Summary.OSVersions["13.6"] != 1 {
		t.Errorf("OS histogram wrong: %v", rpt.Summary.OSVersions)
	}
	if rpt.Summary.CheckInMonths["2026-08"] != 1 || rpt.Summary.CheckInMonths["never"] != 1 {
		t.Errorf("check-in histogram wrong: %v", rpt.Summary.CheckInMonths)
	}
}

func TestRemovalCandidatesExcludeDevices(t *testing.T) {
	rpt := pipelineReport()
	for _, candidate := range rpt.RemovalCandidates() {
		if candidate.Type == inventory.TypeComputer || candidate.Type == inventory.TypeMobileDevice {
			t.Errorf("device %d offered for removal", candidate.ID)
		}
	}
}

func TestWriteTextRecordNotes(t *testing.T) {
	snap := &inventory.Snapshot{Objects: map[inventory.ObjectType][]inventory.ManagedObject{
		inventory.TypeComputerGroup: {
			{Type: inventory.TypeComputerGroup, ID: 5, Name: "Empty Smart",
				Detail: &inventory.Detail{Smart: true}},
			{Type: inventory.TypeComputerGroup, ID: 6, Name: "Empty Static",
				Detail: &inventory.Detail{}},
		},
		inventory.TypePolicy: {
			{Type: inventory.TypePolicy, ID: 9, Name: "retired deploy",
				Detail: &inventory.Detail{Enabled: false, Scope: &inventory.Scope{}}},
		},
	}}
	idx := graph.Build(snap)
	requested := []inventory.ObjectType{inventory.TypeComputerGroup, inventory.TypePolicy}
	rpt := Aggregate(testHeader(), snap, idx, requested, classify.DefaultOptions())

	var buf bytes.Buffer
	if err := WriteText(&buf, rpt, false); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	for _, want := range []string{
		"[5] Empty Smart [smart]",
		"[6] Empty Static [static]",
		"[9] retired deploy [disabled]",
	} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestWriteTextBlankNames(t *testing.T) {
	snap := &inventory.Snapshot{Objects: map[inventory.ObjectType][]inventory.ManagedObject{
		inventory.TypeScript: {{Type: inventory.TypeScript, ID: 4, Name: "  "}},
	}}
	idx := graph.Build(snap)
	rpt := Aggregate(testHeader(), snap, idx, []inventory.ObjectType{inventory.TypeScript}, classify.DefaultOptions())

	var buf bytes.Buffer
	if err := WriteText(&buf, rpt, false); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("[4] (no name)")) {
		t.Errorf("blank-named object missing from output:\n%s", buf.String())
	}
}
