// Package classify holds one cruft-classification strategy per object
// type. Each strategy consumes the usage index plus type-specific
// heuristics and emits CruftRecords with a deterministic severity
// rank.
package classify

import (
	"sort"
	"time"

	"github.com/sprucekit/spruce/internal/inventory"
)

// Reason is a single cruft signal attached to an object.
type Reason string

const (
	ReasonUnused            Reason = "unused"
	ReasonSupersededVersion Reason = "superseded-version"
	ReasonEmptyMembership   Reason = "empty-membership"
	ReasonUnscoped          Reason = "unscoped"
	ReasonStale             Reason = "stale"
)

// reasonWeights is the fixed severity table. Higher means a stronger
// removal signal.
var reasonWeights = map[Reason]int{
	ReasonUnused:            40,
	ReasonSupersededVersion: 30,
	ReasonEmptyMembership:   25,
	ReasonUnscoped:          20,
	ReasonStale:             10,
}

// canonicalReasonOrder fixes the order reasons appear in a record so
// identical inputs always render identically.
var canonicalReasonOrder = []Reason{
	ReasonUnused,
	ReasonSupersededVersion,
	ReasonEmptyMembership,
	ReasonUnscoped,
	ReasonStale,
}

// Rank buckets. Rank is monotonic in both the number of signals and
// their combined weight: adding any reason can only hold or raise it.
const (
	RankLow      = 1
	RankModerate = 2
	RankHigh     = 3
	RankCritical = 4
)

// Record is one classified object with its cruft signals.
type Record struct {
	Object  inventory.ManagedObject
	Reasons []Reason
	Score   int // sum of reason weights
	Rank    int // 1 (low) .. 4 (critical)
}

// HasReason reports whether the record carries the given signal.
func (r Record) HasReason(reason Reason) bool {
	for _, have := range r.Reasons {
		if have == reason {
			return true
		}
	}
	return false
}

// newRecord assembles a record from a distinct reason set, ordering
// the reasons canonically and deriving score and rank.
func newRecord(obj inventory.ManagedObject, reasons map[Reason]bool) Record {
	rec := Record{Object: obj}
	for _, reason := range canonicalReasonOrder {
		if reasons[reason] {
			rec.Reasons = append(rec.Reasons, reason)
			rec.Score += reasonWeights[reason]
		}
	}
	rec.Rank = rankFor(rec.Score)
	return rec
}

func rankFor(score int) int {
	switch {
	case score >= 60:
		return RankCritical
	case score >= 40:
		return RankHigh
	case score >= 20:
		return RankModerate
	default:
		return RankLow
	}
}

// Options are the tunable classification thresholds.
type Options struct {
	// VersionsToKeep is how many newest versions of a package family
	// survive the redundancy check.
	VersionsToKeep int
	// StaleAfter is the check-in age beyond which a device is stale.
	StaleAfter time.Duration
	// Now anchors staleness; tests pin it, callers use time.Now().
	Now time.Time
}

// DefaultOptions mirror the shipped preference defaults.
func DefaultOptions() Options {
	return Options{
		VersionsToKeep: 1,
		StaleAfter:     90 * 24 * time.Hour,
		Now:            time.Now(),
	}
}

func (o Options) normalized() Options {
	if o.VersionsToKeep < 1 {
		o.VersionsToKeep = 1
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 90 * 24 * time.Hour
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// sortRecords orders a section: ascending rank, then ascending id.
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Rank != records[j].Rank {
			return records[i].Rank < records[j].Rank
		}
		return records[i].Object.ID < records[j].Object.ID
	})
}
