package removal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sprucekit/spruce/internal/inventory"
)

// Outcome is the per-item result of a removal attempt.
type Outcome int

const (
	OutcomeDeleted Outcome = iota
	OutcomeNotFound
	OutcomeUnsupported
	OutcomeFailed
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDeleted:
		return "Deleted"
	case OutcomeNotFound:
		return "NotFound"
	case OutcomeUnsupported:
		return "Unsupported"
	case OutcomeFailed:
		return "Failed"
	case OutcomeSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// ItemResult pairs one request item with its outcome.
type ItemResult struct {
	Item    Item
	Outcome Outcome
	Err     error
}

// Summary aggregates every item's outcome for the final report.
type Summary struct {
	Results []ItemResult
	Counts  map[Outcome]int
}

// Failed reports whether any item failed or was unsupported. Partial
// failure is not fatal; callers print the summary and still exit zero.
func (s Summary) Failed() bool {
	return s.Counts[OutcomeFailed] > 0 || s.Counts[OutcomeUnsupported] > 0
}

// Deleter issues the actual delete calls. Satisfied by
// inventory.Fetcher, which adds retry on transient failures.
type Deleter interface {
	Delete(ctx context.Context, t inventory.ObjectType, id int) error
}

const deleteWorkers = 4

// Executor applies a confirmed plan.
type Executor struct {
	deleter Deleter
	log     *zap.Logger
	workers int
}

// NewExecutor wires an executor to a deleter.
func NewExecutor(deleter Deleter, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{deleter: deleter, log: log, workers: deleteWorkers}
}

// Execute runs the plan group by group in plan order. Deletes within a
// confirmed group run with a small parallel bound; outcomes are keyed
// by item so completion order never reorders the summary. A single
// failed or unsupported delete never aborts the remaining queue.
func (e *Executor) Execute(ctx context.Context, plan Plan) Summary {
	summary := Summary{Counts: make(map[Outcome]int)}
	for _, group := range plan.Groups {
		if !group.Confirmed {
			for _, item := range group.Items {
				summary.append(ItemResult{Item: item, Outcome: OutcomeSkipped})
			}
			continue
		}
		results := make([]ItemResult, len(group.Items))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(e.workers)
		for i, item := range group.Items {
			eg.Go(func() error {
				results[i] = e.deleteOne(egCtx, item)
				return nil
			})
		}
		eg.Wait() //nolint:errcheck // workers never return errors
		sort.SliceStable(results, func(a, b int) bool { return results[a].Item.ID < results[b].Item.ID })
		for _, result := range results {
			summary.append(result)
		}
	}
	return summary
}

func (e *Executor) deleteOne(ctx context.Context, item Item) ItemResult {
	err := e.deleter.Delete(ctx, item.Type, item.ID)
	result := ItemResult{Item: item}
	switch {
	case err == nil:
		result.Outcome = OutcomeDeleted
	case errors.Is(err, inventory.ErrNotFound):
		result.Outcome = OutcomeNotFound
	case errors.Is(err, inventory.ErrUnsupported):
		result.Outcome = OutcomeUnsupported
		result.Err = err
	default:
		result.Outcome = OutcomeFailed
		result.Err = err
	}
	if result.Outcome != OutcomeDeleted {
		e.log.Warn("delete did not complete",
			zap.String("type", item.Type.String()),
			zap.Int("id", item.ID),
			zap.String("outcome", result.Outcome.String()),
			zap.Error(err))
	}
	return result
}

func (s *Summary) append(result ItemResult) {
	s.Results = append(s.Results, result)
	s.Counts[result.Outcome]++
}

// WriteSummary prints the final outcome summary: per-item lines for
// anything that was not cleanly deleted, then the counts.
func WriteSummary(w io.Writer, summary Summary) {
	for _, result := range summary.Results {
		switch result.Outcome {
		case OutcomeDeleted:
			fmt.Fprintf(w, "Deleted: %s %d (%s)\n", result.Item.Type, result.Item.ID, result.Item.Name)
		case OutcomeSkipped:
			// Covered by the per-type skip notice during confirmation.
		default:
			reason := ""
			if result.Err != nil {
				reason = ": " + result.Err.Error()
			}
			fmt.Fprintf(w, "%s: %s %d (%s)%s\n", result.Outcome, result.Item.Type, result.Item.ID, result.Item.Name, reason)
		}
	}
	fmt.Fprintf(w, "\nRemoval summary: %d deleted, %d not found, %d unsupported, %d failed, %d skipped\n",
		summary.Counts[OutcomeDeleted],
		summary.Counts[OutcomeNotFound],
		summary.Counts[OutcomeUnsupported],
		summary.Counts[OutcomeFailed],
		summary.Counts[OutcomeSkipped])
}
