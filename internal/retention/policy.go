// Package retention implements the Policy Engine: the bucketed filter
// pipeline that partitions a snapshot set into what survives and what gets
// destroyed.
package retention

import (
	"sort"
	"time"

	"github.com/stormont-systems/shadowcopy-go/internal/filter"
)

// Cutoff bounds how old a snapshot may be for a filter to process it. The
// zero value is a zero-length cutoff (matches only snapshots not yet old at
// all); use Unbounded for "no upper bound".
type Cutoff struct {
	unbounded bool
	duration  time.Duration
}

// Unbounded is the sentinel cutoff that absorbs every remaining snapshot,
// however old.
var Unbounded = Cutoff{unbounded: true}

// Days builds a Cutoff of n days.
func Days(n int) Cutoff {
	return Cutoff{duration: time.Duration(n) * 24 * time.Hour}
}

// Covers reports whether age falls within this cutoff.
func (c Cutoff) Covers(age time.Duration) bool {
	if c.unbounded {
		return true
	}
	return age <= c.duration
}

// Entry pairs a Filter with the age cutoff it applies to.
type Entry struct {
	Filter filter.Filter
	Cutoff Cutoff
}

// Policy is an ordered sequence of (Filter, Cutoff) pairs for one
// filesystem. At most one entry per filter variant is expected; Policy
// itself does not enforce this, the configuration loader does.
type Policy struct {
	Entries    []Entry
	Recursive  bool
	Ignore     bool
}

// Canonicalize returns a copy of the policy with entries sorted ascending
// by filter granularity. Finer-grained filters must consume fresher
// snapshots first so their representatives are not swallowed by coarser
// bucketing - this is why canonicalization happens unconditionally, even
// though the configuration loader already emits entries in this order.
func (p Policy) Canonicalize() Policy {
	sorted := make([]Entry, len(p.Entries))
	copy(sorted, p.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Filter.Granularity() < sorted[j].Filter.Granularity()
	})
	p.Entries = sorted
	return p
}

// Default is the built-in policy injected whenever a configuration omits a
// _default section: 2d passthrough, 7d hourly, 30d daily, 90d weekly,
// 365d monthly, unbounded yearly.
func Default() Policy {
	return Policy{
		Entries: []Entry{
			{Filter: filter.Passthrough{}, Cutoff: Days(2)},
			{Filter: filter.NewHourly(), Cutoff: Days(7)},
			{Filter: filter.NewDaily(), Cutoff: Days(30)},
			{Filter: filter.NewWeekly(), Cutoff: Days(90)},
			{Filter: filter.NewMonthly(), Cutoff: Days(365)},
			{Filter: filter.NewYearly(), Cutoff: Unbounded},
		},
		Recursive: true,
		Ignore:    false,
	}
}
