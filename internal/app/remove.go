package app

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/sprucekit/spruce/internal/inventory"
	"github.com/sprucekit/spruce/internal/removal"
	"github.com/sprucekit/spruce/internal/report"
)

// runRemove drives the removal path: parse the supplied file (XML
// interchange, or the deprecated plain-text list), confirm each
// object type, execute, and print the outcome summary. Parse errors
// abort before any deletion; per-item failures do not fail the run.
func runRemove(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading removal file: %w", err)
	}

	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	request, err := parseRemovalFile(ctx, sess, data)
	if err != nil {
		return err
	}
	if request.Empty() {
		fmt.Println("Nothing listed for removal.")
		return nil
	}
	return confirmAndExecute(ctx, sess, request)
}

func confirmAndExecute(ctx context.Context, sess *session, request removal.Request) error {
	plan, err := removal.BuildPlan(request, newTerminalPrompter(), os.Stdout)
	if err != nil {
		return err
	}
	executor := removal.NewExecutor(sess.fetcher, sess.log)
	summary := executor.Execute(ctx, plan)
	fmt.Println()
	removal.WriteSummary(os.Stdout, summary)
	return nil
}

// parseRemovalFile picks the parser by sniffing the first byte: an
// XML interchange document, or the deprecated one-name-per-line list
// which must then be resolved against the live server.
func parseRemovalFile(ctx context.Context, sess *session, data []byte) (removal.Request, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && report.SniffInterchange(trimmed[0]) {
		return report.ParseRemovals(bytes.NewReader(data))
	}
	fmt.Fprintln(os.Stderr, "Warning: plain-text removal lists are deprecated; use an interchange document (-o)")
	items, err := report.ParseLegacyList(bytes.NewReader(data))
	if err != nil {
		return removal.Request{}, err
	}
	return resolveLegacyItems(ctx, sess, items)
}

// resolveLegacyItems maps legacy name-only entries to identities by
// listing the server's packages and scripts. A name matching more
// than one object aborts: the legacy format has no way to say which
// one was meant, and guessing deletes someone's data.
func resolveLegacyItems(ctx context.Context, sess *session, items []report.LegacyItem) (removal.Request, error) {
	byName := make(map[inventory.ObjectType]map[string][]int)
	for _, t := range []inventory.ObjectType{inventory.TypePackage, inventory.TypeScript} {
		objects, err := sess.client.List(ctx, t)
		if err != nil {
			return removal.Request{}, fmt.Errorf("resolving legacy names: %w", err)
		}
		names := make(map[string][]int, len(objects))
		for _, obj := range objects {
			names[obj.Name] = append(names[obj.Name], obj.ID)
		}
		byName[t] = names
	}

	var request removal.Request
	for _, item := range items {
		ids := byName[item.Type][item.Name]
		switch len(ids) {
		case 0:
			fmt.Fprintf(os.Stderr, "Warning: no %s named %q on the server; skipping\n", item.Type, item.Name)
		case 1:
			request.Items = append(request.Items, removal.Item{Type: item.Type, ID: ids[0], Name: item.Name})
		default:
			return removal.Request{}, fmt.Errorf("%d objects named %q: the legacy list cannot disambiguate, use an interchange document", len(ids), item.Name)
		}
	}
	return request, nil
}
