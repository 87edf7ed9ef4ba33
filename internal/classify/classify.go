package classify

import (
	"github.com/sprucekit/spruce/internal/graph"
	"github.com/sprucekit/spruce/internal/inventory"
)

// Classifier emits the cruft records for one object type. objects are
// the fetched objects of that type; idx is the usage index built from
// the full snapshot; snap is the snapshot itself for heuristics that
// look across types.
type Classifier func(objects []inventory.ManagedObject, idx *graph.Index, snap *inventory.Snapshot, opts Options) []Record

// classifiers is the closed dispatch table, one strategy per
// ObjectType. Adding a type without a strategy panics at init so the
// table stays exhaustive.
var classifiers map[inventory.ObjectType]Classifier

func init() {
	classifiers = map[inventory.ObjectType]Classifier{
		inventory.TypePackage:                          classifyPackages,
		inventory.TypeScript:                           classifyScripts,
		inventory.TypePolicy:                           classifyPolicies,
		inventory.TypeComputerGroup:                    classifyGroups,
		inventory.TypeMobileDeviceGroup:                classifyGroups,
		inventory.TypeComputerConfigurationProfile:     classifyProfiles,
		inventory.TypeMobileDeviceConfigurationProfile: classifyProfiles,
		inventory.TypeMobileApplication:                classifyMobileApplications,
		inventory.TypeComputer:                         classifyDevices,
		inventory.TypeMobileDevice:                     classifyDevices,
	}
	for _, t := range inventory.AllTypes() {
		if classifiers[t] == nil {
			panic("classify: no strategy for type " + t.String())
		}
	}
}

// For returns the strategy for a type.
func For(t inventory.ObjectType) Classifier {
	return classifiers[t]
}

// Run classifies one type's objects and returns its section records
// ordered by ascending rank then ascending id.
func Run(t inventory.ObjectType, idx *graph.Index, snap *inventory.Snapshot, opts Options) []Record {
	records := For(t)(snap.ObjectsOf(t), idx, snap, opts.normalized())
	sortRecords(records)
	return records
}

// classifyPackages flags unused packages and superseded versions.
// Blank-named packages are classified like any other; they are exactly
// the sort of leftovers a cruft report exists to surface.
func classifyPackages(objects []inventory.ManagedObject, idx *graph.Index, _ *inventory.Snapshot, opts Options) []Record {
	superseded := make(map[int]bool)
	for _, family := range versionFamilies(objects, nil) {
		for _, id := range supersededIn(family, opts.VersionsToKeep, func(id int) bool {
			return idx.InUse(inventory.TypePackage, id)
		}) {
			superseded[id] = true
		}
	}

	var records []Record
	for _, obj := range objects {
		reasons := map[Reason]bool{}
		if !idx.InUse(inventory.TypePackage, obj.ID) {
			reasons[ReasonUnused] = true
		}
		if superseded[obj.ID] {
			reasons[ReasonSupersededVersion] = true
		}
		if len(reasons) > 0 {
			records = append(records, newRecord(obj, reasons))
		}
	}
	return records
}

func classifyScripts(objects []inventory.ManagedObject, idx *graph.Index, _ *inventory.Snapshot, _ Options) []Record {
	var records []Record
	for _, obj := range objects {
		if !idx.InUse(inventory.TypeScript, obj.ID) {
			records = append(records, newRecord(obj, map[Reason]bool{ReasonUnused: true}))
		}
	}
	return records
}

// classifyPolicies flags policies with no effective scope. The usage
// index stores a policy's scope targets as its referencing set, so
// unused and unscoped travel together here and compound the rank.
func classifyPolicies(objects []inventory.ManagedObject, idx *graph.Index, _ *inventory.Snapshot, _ Options) []Record {
	var records []Record
	for _, obj := range objects {
		reasons := map[Reason]bool{}
		if !idx.InUse(inventory.TypePolicy, obj.ID) {
			reasons[ReasonUnused] = true
		}
		if obj.Detail != nil && obj.Detail.Scope.Empty() {
			reasons[ReasonUnscoped] = true
		}
		if len(reasons) > 0 {
			records = append(records, newRecord(obj, reasons))
		}
	}
	return records
}

func classifyProfiles(objects []inventory.ManagedObject, idx *graph.Index, _ *inventory.Snapshot, _ Options) []Record {
	var records []Record
	for _, obj := range objects {
		reasons := map[Reason]bool{}
		if !idx.InUse(obj.Type, obj.ID) {
			reasons[ReasonUnused] = true
		}
		if obj.Detail != nil && obj.Detail.Scope.Empty() {
			reasons[ReasonUnscoped] = true
		}
		if len(reasons) > 0 {
			records = append(records, newRecord(obj, reasons))
		}
	}
	return records
}

// classifyGroups flags groups nothing scopes (or nests) plus groups
// with zero current members. Empty membership applies regardless of
// scoping usage: an empty smart group scoped by ten policies is still
// doing nothing.
func classifyGroups(objects []inventory.ManagedObject, idx *graph.Index, _ *inventory.Snapshot, _ Options) []Record {
	var records []Record
	for _, obj := range objects {
		reasons := map[Reason]bool{}
		if !idx.InUse(obj.Type, obj.ID) {
			reasons[ReasonUnused] = true
		}
		if obj.Detail != nil && obj.Detail.MemberCount == 0 {
			reasons[ReasonEmptyMembership] = true
		}
		if len(reasons) > 0 {
			records = append(records, newRecord(obj, reasons))
		}
	}
	return records
}

// classifyMobileApplications adds version redundancy on top of the
// usage check, using the app's reported version string when present
// and falling back to the display name.
func classifyMobileApplications(objects []inventory.ManagedObject, idx *graph.Index, _ *inventory.Snapshot, opts Options) []Record {
	superseded := make(map[int]bool)
	explicit := func(obj inventory.ManagedObject) string {
		if obj.Detail != nil {
			return obj.Detail.Version
		}
		return ""
	}
	for _, family := range versionFamilies(objects, explicit) {
		for _, id := range supersededIn(family, opts.VersionsToKeep, func(id int) bool {
			return idx.InUse(inventory.TypeMobileApplication, id)
		}) {
			superseded[id] = true
		}
	}

	var records []Record
	for _, obj := range objects {
		reasons := map[Reason]bool{}
		if !idx.InUse(inventory.TypeMobileApplication, obj.ID) {
			reasons[ReasonUnused] = true
		}
		if superseded[obj.ID] {
			reasons[ReasonSupersededVersion] = true
		}
		if len(reasons) > 0 {
			records = append(records, newRecord(obj, reasons))
		}
	}
	return records
}

// classifyDevices flags computers and mobile devices whose last
// check-in predates the staleness cutoff. A device that has never
// checked in is maximally stale, not exempt.
func classifyDevices(objects []inventory.ManagedObject, _ *graph.Index, _ *inventory.Snapshot, opts Options) []Record {
	cutoff := opts.Now.Add(-opts.StaleAfter)
	var records []Record
	for _, obj := range objects {
		stale := true
		if obj.Detail != nil && obj.Detail.LastCheckIn != nil {
			stale = obj.Detail.LastCheckIn.Before(cutoff)
		}
		if stale {
			records = append(records, newRecord(obj, map[Reason]bool{ReasonStale: true}))
		}
	}
	return records
}
