// Package graph builds the reverse usage-reference index: for every
// referenced object identity, the set of container identities that
// reference it. The build is a pure two-pass transformation over a
// fetched snapshot (collect reference data, then index) so the
// reporting path's single synchronization barrier sits in front of it
// and nothing here touches the network.
package graph

import (
	"fmt"
	"sort"

	"github.com/sprucekit/spruce/internal/inventory"
)

// Ref identifies a referencing container (or, for self-scoped types, a
// scope target).
type Ref struct {
	Type inventory.ObjectType
	ID   int
}

// key is a referenced object identity.
type key struct {
	t  inventory.ObjectType
	id int
}

// Diagnostic records a container whose reference data could not be
// used. One malformed container must never block unrelated
// classifications, so these are collected instead of raised.
type Diagnostic struct {
	Container Ref
	Problem   string
}

// Index is the immutable usage-reference index for one snapshot.
type Index struct {
	refs  map[key]map[Ref]struct{}
	diags []Diagnostic
}

// Build indexes every usage reference in the snapshot. Containers
// whose detail payload is missing or malformed contribute a diagnostic
// and are skipped.
//
// Usage definitions per referenced type:
//   - Package, Script: referenced by a policy's package/script lists.
//   - ComputerGroup: scoped (or excluded) by a policy or computer
//     profile, or nested in another computer group's criteria.
//   - MobileDeviceGroup: scoped by a mobile profile or mobile
//     application, or nested in another mobile device group.
//   - Policy, profiles, MobileApplication: "in use" when their own
//     scope resolves to at least one target; the scope targets are
//     stored as the referencing set so an empty scope means an empty
//     reference set.
func Build(snap *inventory.Snapshot) *Index {
	idx := &Index{refs: make(map[key]map[Ref]struct{})}

	for _, policy := range snap.ObjectsOf(inventory.TypePolicy) {
		self := Ref{inventory.TypePolicy, policy.ID}
		detail := policy.Detail
		if detail == nil {
			idx.malformed(self, "missing detail payload")
			continue
		}
		for _, pkgID := range detail.PackageIDs {
			idx.add(inventory.TypePackage, pkgID, self)
		}
		for _, scriptID := range detail.ScriptIDs {
			idx.add(inventory.TypeScript, scriptID, self)
		}
		idx.indexScope(self, detail.Scope, inventory.TypeComputerGroup, inventory.TypeComputer)
	}

	for _, profile := range snap.ObjectsOf(inventory.TypeComputerConfigurationProfile) {
		self := Ref{inventory.TypeComputerConfigurationProfile, profile.ID}
		if profile.Detail == nil {
			idx.malformed(self, "missing detail payload")
			continue
		}
		idx.indexScope(self, profile.Detail.Scope, inventory.TypeComputerGroup, inventory.TypeComputer)
	}

	for _, profile := range snap.ObjectsOf(inventory.TypeMobileDeviceConfigurationProfile) {
		self := Ref{inventory.TypeMobileDeviceConfigurationProfile, profile.ID}
		if profile.Detail == nil {
			idx.malformed(self, "missing detail payload")
			continue
		}
		idx.indexScope(self, profile.Detail.Scope, inventory.TypeMobileDeviceGroup, inventory.TypeMobileDevice)
	}

	for _, app := range snap.ObjectsOf(inventory.TypeMobileApplication) {
		self := Ref{inventory.TypeMobileApplication, app.ID}
		if app.Detail == nil {
			idx.malformed(self, "missing detail payload")
			continue
		}
		idx.indexScope(self, app.Detail.Scope, inventory.TypeMobileDeviceGroup, inventory.TypeMobileDevice)
	}

	idx.indexNestedGroups(snap, inventory.TypeComputerGroup)
	idx.indexNestedGroups(snap, inventory.TypeMobileDeviceGroup)

	return idx
}

// indexScope records the container's references to its scoped groups
// and individual targets, and, when the scope is non-empty, records
// the scope targets as the container's own usage entries.
func (idx *Index) indexScope(self Ref, scope *inventory.Scope, groupType, targetType inventory.ObjectType) {
	if scope == nil {
		idx.malformed(self, "missing scope data")
		return
	}
	for _, groupID := range scope.GroupIDs {
		idx.add(groupType, groupID, self)
	}
	for _, groupID := range scope.ExclusionGroupIDs {
		idx.add(groupType, groupID, self)
	}
	if scope.Empty() {
		return
	}
	if scope.AllTargets {
		idx.add(self.Type, self.ID, Ref{targetType, allTargetsID})
	}
	for _, groupID := range scope.GroupIDs {
		idx.add(self.Type, self.ID, Ref{groupType, groupID})
	}
	for _, targetID := range scope.TargetIDs {
		idx.add(self.Type, self.ID, Ref{targetType, targetID})
	}
}

// allTargetsID is the pseudo-target recorded when a scope covers all
// computers or all devices.
const allTargetsID = -1

// indexNestedGroups resolves smart-group criteria that reference other
// groups. Criteria carry group names, not ids; ambiguous names resolve
// to every matching group, and unresolvable names become diagnostics.
func (idx *Index) indexNestedGroups(snap *inventory.Snapshot, groupType inventory.ObjectType) {
	groups := snap.ObjectsOf(groupType)
	byName := make(map[string][]int, len(groups))
	for _, g := range groups {
		byName[g.Name] = append(byName[g.Name], g.ID)
	}
	for _, g := range groups {
		self := Ref{groupType, g.ID}
		if g.Detail == nil {
			idx.malformed(self, "missing detail payload")
			continue
		}
		for _, name := range g.Detail.NestedGroupNames {
			ids, ok := byName[name]
			if !ok {
				idx.malformed(self, fmt.Sprintf("criteria reference unknown group %q", name))
				continue
			}
			for _, id := range ids {
				idx.add(groupType, id, self)
			}
		}
	}
}

func (idx *Index) add(t inventory.ObjectType, id int, ref Ref) {
	k := key{t, id}
	set, ok := idx.refs[k]
	if !ok {
		set = make(map[Ref]struct{})
		idx.refs[k] = set
	}
	set[ref] = struct{}{}
}

func (idx *Index) malformed(container Ref, problem string) {
	idx.diags = append(idx.diags, Diagnostic{Container: container, Problem: problem})
}

// InUse reports whether the identity has at least one usage reference.
func (idx *Index) InUse(t inventory.ObjectType, id int) bool {
	return len(idx.refs[key{t, id}]) > 0
}

// RefCount returns the number of distinct referencing containers.
func (idx *Index) RefCount(t inventory.ObjectType, id int) int {
	return len(idx.refs[key{t, id}])
}

// Referencers returns the referencing containers in deterministic
// order (type, then id).
func (idx *Index) Referencers(t inventory.ObjectType, id int) []Ref {
	set := idx.refs[key{t, id}]
	if len(set) == 0 {
		return nil
	}
	refs := make([]Ref, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Type != refs[j].Type {
			return refs[i].Type < refs[j].Type
		}
		return refs[i].ID < refs[j].ID
	})
	return refs
}

// Diagnostics returns the malformed-container records collected during
// the build.
func (idx *Index) Diagnostics() []Diagnostic {
	return idx.diags
}
