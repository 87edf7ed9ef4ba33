package removal

import (
	"fmt"
	"io"

	"github.com/sprucekit/spruce/internal/inventory"
)

// Prompter answers yes/no confirmation questions. The CLI wires a
// terminal prompter; tests supply canned answers.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// PlanGroup is the request's items for one object type plus the
// operator's decision for that type.
type PlanGroup struct {
	Type      inventory.ObjectType
	Items     []Item
	Confirmed bool
}

// Plan is a confirmed removal plan: every requested type in stable
// enumeration order, each marked confirmed or declined.
type Plan struct {
	Groups []PlanGroup
}

// BuildPlan walks the request's types in enumeration order, shows the
// operator what each type's removal would delete, and records the
// per-type decision. Declining a type keeps its items in the plan as
// unconfirmed so the outcome summary can report them as skipped.
func BuildPlan(request Request, prompter Prompter, out io.Writer) (Plan, error) {
	var plan Plan
	for _, group := range groupByType(request) {
		fmt.Fprintf(out, "\n%d %s to remove:\n", len(group.Items), group.Type.Plural())
		for _, item := range group.Items {
			name := item.Name
			if name == "" {
				name = "(no name)"
			}
			fmt.Fprintf(out, "  [%d] %s\n", item.ID, name)
		}
		confirmed, err := prompter.Confirm(fmt.Sprintf("Remove these %s?", group.Type.Plural()))
		if err != nil {
			return Plan{}, fmt.Errorf("reading confirmation: %w", err)
		}
		group.Confirmed = confirmed
		if !confirmed {
			fmt.Fprintf(out, "Skipping %s.\n", group.Type.Plural())
		}
		plan.Groups = append(plan.Groups, group)
	}
	return plan, nil
}

// ConfirmAll builds a plan with every type pre-confirmed. Used by the
// one-shot clean mode after its own blanket prompt.
func ConfirmAll(request Request) Plan {
	var plan Plan
	for _, group := range groupByType(request) {
		group.Confirmed = true
		plan.Groups = append(plan.Groups, group)
	}
	return plan
}
