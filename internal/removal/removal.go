// Package removal turns a parsed removal request into confirmed,
// per-type delete operations. Confirmation is separated from
// execution: BuildPlan is a pure function from request plus
// confirmation answers to a plan, and Execute applies a plan without
// asking anything.
package removal

import "github.com/sprucekit/spruce/internal/inventory"

// Item is one (type, id, display-name) tuple from a removal request.
// The name is informational only; deletes key on (type, id).
type Item struct {
	Type inventory.ObjectType
	ID   int
	Name string
}

// Request is the parsed, validated removal request. It is consumed
// exactly once by the executor and never mutated.
type Request struct {
	Items []Item
}

// Empty reports whether there is nothing to remove.
func (r Request) Empty() bool { return len(r.Items) == 0 }

// groupByType buckets request items into the ten-type enumeration
// order, preserving the request's item order within each type.
func groupByType(r Request) []PlanGroup {
	buckets := make(map[inventory.ObjectType][]Item)
	for _, item := range r.Items {
		buckets[item.Type] = append(buckets[item.Type], item)
	}
	var groups []PlanGroup
	for _, t := range inventory.AllTypes() {
		if items := buckets[t]; len(items) > 0 {
			groups = append(groups, PlanGroup{Type: t, Items: items})
		}
	}
	return groups
}
