package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client is the contract the core needs from the remote API: list the
// summaries of a type, fetch one object's detail, delete by identity.
// The concrete implementation lives in internal/jamf.
type Client interface {
	List(ctx context.Context, t ObjectType) ([]ManagedObject, error)
	Get(ctx context.Context, t ObjectType, id int) (ManagedObject, error)
	Delete(ctx context.Context, t ObjectType, id int) error
}

const (
	defaultWorkers = 6
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// Fetcher is a thin adapter over the API client. It issues list and
// detail fetches with bounded parallelism, retries transient failures,
// and assembles the normalized Snapshot the rest of the pipeline runs
// on.
type Fetcher struct {
	client  Client
	log     *zap.Logger
	workers int
}

// NewFetcher wires a Fetcher to a client. workers bounds parallel
// fetches; values below 1 fall back to the default so a bad preference
// cannot stall the pool.
func NewFetcher(client Client, log *zap.Logger, workers int) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Fetcher{client: client, log: log, workers: workers}
}

// containerDeps maps each reportable type to the container types whose
// detail payloads the usage graph needs for it. A report on packages
// still requires the full policy scope data, so those are fetched
// whenever any dependent type is requested.
var containerDeps = map[ObjectType][]ObjectType{
	TypePackage:                          {TypePolicy},
	TypeScript:                           {TypePolicy},
	TypeComputerGroup:                    {TypePolicy, TypeComputerConfigurationProfile, TypeComputerGroup},
	TypeMobileDeviceGroup:                {TypeMobileDeviceConfigurationProfile, TypeMobileApplication, TypeMobileDeviceGroup},
	TypePolicy:                           {TypePolicy},
	TypeComputerConfigurationProfile:     {TypeComputerConfigurationProfile},
	TypeMobileDeviceConfigurationProfile: {TypeMobileDeviceConfigurationProfile},
	TypeMobileApplication:                {TypeMobileApplication},
	TypeComputer:                         {},
	TypeMobileDevice:                     {},
}

// detailTypes need per-object detail fetches to classify at all
// (membership counts, scopes, check-in times). Packages and scripts
// classify from their summaries alone.
var needsDetail = map[ObjectType]bool{
	TypeComputerGroup:                    true,
	TypeMobileDeviceGroup:                true,
	TypePolicy:                           true,
	TypeComputerConfigurationProfile:     true,
	TypeMobileDeviceConfigurationProfile: true,
	TypeMobileApplication:                true,
	TypeComputer:                         true,
	TypeMobileDevice:                     true,
}

// fetchSet expands the requested report types into the full set of
// (type, wantDetail) fetches the run needs.
func fetchSet(requested []ObjectType) map[ObjectType]bool {
	wanted := make(map[ObjectType]bool)
	for _, t := range requested {
		if needsDetail[t] {
			wanted[t] = true
		} else if _, seen := wanted[t]; !seen {
			wanted[t] = false
		}
		for _, dep := range containerDeps[t] {
			wanted[dep] = true // container data is always detail data
		}
	}
	return wanted
}

// Snapshot fetches everything the requested report types need and
// returns the assembled inventory. Fetches for distinct types run in
// parallel with a bounded worker count; detail fetches within a type
// share the same bound. Transient failures are retried a few times,
// then the whole snapshot fails; a report built on a partial
// inventory would misclassify everything the missing data references.
func (f *Fetcher) Snapshot(ctx context.Context, requested []ObjectType) (*Snapshot, error) {
	wanted := fetchSet(requested)

	types := make([]ObjectType, 0, len(wanted))
	for t := range wanted {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	snap := &Snapshot{Objects: make(map[ObjectType][]ManagedObject, len(types))}
	results := make([][]ManagedObject, len(types))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.workers)

	for i, t := range types {
		group.Go(func() error {
			start := time.Now()
			objects, err := f.fetchType(groupCtx, t, wanted[t])
			if err != nil {
				return fmt.Errorf("fetching %s: %w", t.Plural(), err)
			}
			f.log.Debug("fetched inventory type",
				zap.String("type", t.String()),
				zap.Int("count", len(objects)),
				zap.Duration("elapsed", time.Since(start)))
			results[i] = objects
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for i, t := range types {
		objects := results[i]
		sort.Slice(objects, func(a, b int) bool { return objects[a].ID < objects[b].ID })
		snap.Objects[t] = objects
	}
	return snap, nil
}

// fetchType lists one type's summaries and, when needed, fills in each
// object's detail payload.
func (f *Fetcher) fetchType(ctx context.Context, t ObjectType, withDetail bool) ([]ManagedObject, error) {
	var summaries []ManagedObject
	err := f.withRetry(ctx, func() error {
		var listErr error
		summaries, listErr = f.client.List(ctx, t)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	if !withDetail {
		return summaries, nil
	}

	detailed := make([]ManagedObject, len(summaries))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.workers)
	for i, summary := range summaries {
		group.Go(func() error {
			var obj ManagedObject
			err := f.withRetry(groupCtx, func() error {
				var getErr error
				obj, getErr = f.client.Get(groupCtx, t, summary.ID)
				return getErr
			})
			if err != nil {
				// An object deleted between the list and the detail
				// fetch is not worth failing the snapshot over.
				if errors.Is(err, context.Canceled) {
					return err
				}
				if errors.Is(err, ErrNotFound) {
					f.log.Warn("object vanished during fetch",
						zap.String("type", t.String()), zap.Int("id", summary.ID))
					detailed[i] = summary
					return nil
				}
				return err
			}
			detailed[i] = obj
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return detailed, nil
}

// Delete removes one object, retrying transient failures. Permanent
// failures (not found, unsupported) come back unwrapped for the
// removal executor to classify.
func (f *Fetcher) Delete(ctx context.Context, t ObjectType, id int) error {
	return f.withRetry(ctx, func() error {
		return f.client.Delete(ctx, t, id)
	})
}

// withRetry runs op with a small bounded retry on transient failures
// only. Permanent failures return immediately.
func (f *Fetcher) withRetry(ctx context.Context, op func() error) error {
	return retry.Do(op,
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.RetryIf(IsTransient),
		retry.LastErrorOnly(true),
	)
}
