package graph

import (
	"testing"

	"github.com/sprucekit/spruce/internal/inventory"
)

func snapshotOf(objects ...inventory.ManagedObject) *inventory.Snapshot {
	snap := &inventory.Snapshot{Objects: make(map[inventory.ObjectType][]inventory.ManagedObject)}
	for _, obj := range objects {
		snap.Objects[obj.Type] = append(snap.Objects[obj.Type], obj)
	}
	return snap
}

func policy(id int, detail *inventory.Detail) inventory.ManagedObject {
	return inventory.ManagedObject{Type: inventory.TypePolicy, ID: id, Name: "policy", Detail: detail}
}

func TestBuildIndexesPolicyReferences(t *testing.T) {
	snap := snapshotOf(
		policy(1, &inventory.Detail{
			PackageIDs: []int{10, 11},
			ScriptIDs:  []int{20},
			Scope:      &inventory.Scope{GroupIDs: []int{30}},
		}),
		policy(2, &inventory.Detail{
			PackageIDs: []int{10},
			Scope:      &inventory.Scope{},
		}),
	)
	idx := Build(snap)

	if got := idx.RefCount(inventory.TypePackage, 10); got != 2 {
		t.Errorf("package 10 ref count = %d, want 2", got)
	}
	if got := idx.RefCount(inventory.TypePackage, 11); got != 1 {
		t.Errorf("package 11 ref count = %d, want 1", got)
	}
	if !idx.InUse(inventory.TypeScript, 20) {
		t.Error("script 20 should be in use")
	}
	if idx.InUse(inventory.TypeScript, 99) {
		t.Error("script 99 should not be in use")
	}
	if !idx.InUse(inventory.TypeComputerGroup, 30) {
		t.Error("group 30 is scoped by policy 1 and should be in use")
	}
}

func TestBuildSelfScopeEntries(t *testing.T) {
	snap := snapshotOf(
		policy(1, &inventory.Detail{Scope: &inventory.Scope{GroupIDs: []int{30}}}),
		policy(2, &inventory.Detail{Scope: &inventory.Scope{}}),
		policy(3, &inventory.Detail{Scope: &inventory.Scope{AllTargets: true}}),
	)
	idx := Build(snap)

	if !idx.InUse(inventory.TypePolicy, 1) {
		t.Error("scoped policy 1 should be in use")
	}
	if idx.InUse(inventory.TypePolicy, 2) {
		t.Error("unscoped policy 2 should have no usage entries")
	}
	if !idx.InUse(inventory.TypePolicy, 3) {
		t.Error("all-targets policy 3 should be in use")
	}
}

func TestBuildExclusionsCountAsGroupUsage(t *testing.T) {
	snap := snapshotOf(
		policy(1, &inventory.Detail{Scope: &inventory.Scope{
			AllTargets:        true,
			ExclusionGroupIDs: []int{40},
		}}),
	)
	idx := Build(snap)
	if !idx.InUse(inventory.TypeComputerGroup, 40) {
		t.Error("excluded group 40 is still referenced and should be in use")
	}
}

func TestBuildNestedGroupsByName(t *testing.T) {
	snap := snapshotOf(
		inventory.ManagedObject{Type: inventory.TypeComputerGroup, ID: 1, Name: "All Labs",
			Detail: &inventory.Detail{NestedGroupNames: []string{"Lab A", "Ghost Group"}}},
		inventory.ManagedObject{Type: inventory.TypeComputerGroup, ID: 2, Name: "Lab A",
			Detail: &inventory.Detail{MemberCount: 4}},
	)
	idx := Build(snap)

	if !idx.InUse(inventory.TypeComputerGroup, 2) {
		t.Error("nested group Lab A should be in use")
	}
	diags := idx.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic for the unresolvable name, got %d", len(diags))
	}
	if diags[0].Container.ID != 1 {
		t.Errorf("diagnostic should name group 1, got %d", diags[0].Container.ID)
	}
}

func TestBuildMalformedContainerSkippedNotFatal(t *testing.T) {
	snap := snapshotOf(
		policy(1, nil), // detail payload missing
		policy(2, &inventory.Detail{PackageIDs: []int{10}, Scope: &inventory.Scope{AllTargets: true}}),
	)
	idx := Build(snap)

	// The malformed container is diagnosed, the healthy one indexed.
	if !idx.InUse(inventory.TypePackage, 10) {
		t.Error("package 10 should still be indexed from the healthy policy")
	}
	found := false
	for _, diag := range idx.Diagnostics() {
		if diag.Container.Type == inventory.TypePolicy && diag.Container.ID == 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected a diagnostic for policy 1")
	}
}

// A group whose detail never arrived (vanished mid-fetch, kept as a
// bare summary) cannot contribute nested-group edges; that gap must be
// diagnosed, not silently skipped.
func TestBuildGroupMissingDetailDiagnosed(t *testing.T) {
	snap := snapshotOf(
		inventory.ManagedObject{Type: inventory.TypeComputerGroup, ID: 7, Name: "Lost Group"},
		inventory.ManagedObject{Type: inventory.TypeComputerGroup, ID: 8, Name: "Lab B",
			Detail: &inventory.Detail{MemberCount: 2}},
	)
	idx := Build(snap)

	found := false
	for _, diag := range idx.Diagnostics() {
		if diag.Container.Type == inventory.TypeComputerGroup && diag.Container.ID == 7 {
			found = true
		}
	}
	if !found {
		t.Error("expected a diagnostic for group 7 with no detail payload")
	}
}

func TestReferencersDeterministicOrder(t *testing.T) {
	snap := snapshotOf(
		policy(5, &inventory.Detail{PackageIDs: []int{10}, Scope: &inventory.Scope{}}),
		policy(3, &inventory.Detail{PackageIDs: []int{10}, Scope: &inventory.Scope{}}),
		policy(9, &inventory.Detail{PackageIDs: []int{10}, Scope: &inventory.Scope{}}),
	)
	idx := Build(snap)
	refs := idx.Referencers(inventory.TypePackage, 10)
	if len(refs) != 3 {
		t.Fatalf("expected 3 referencers, got %d", len(refs))
	}
	for i := 1; i < len(refs); i++ {
		if refs[i-1].ID > refs[i].ID {
			t.Fatalf("referencers not sorted: %v", refs)
		}
	}
}
