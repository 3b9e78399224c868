// Package filter implements the bucketed classifiers the retention engine
// uses to pick a single representative snapshot out of each time bucket.
//
// The variant set is closed and encoded as a tagged alternative - one Go
// type per variant - rather than an open class hierarchy: Passthrough,
// Hourly, Daily, Weekly, Monthly, Yearly.
package filter

import (
	"sort"

	"github.com/stormont-systems/shadowcopy-go/internal/snapshot"
)

// Granularity ranks order filters for policy canonicalization only - they
// are not durations and must never be compared against a Cutoff.
const (
	GranularityPassthrough = 0
	GranularityHourly      = 1
	GranularityDaily       = 24
	GranularityWeekly      = 168
	GranularityMonthly     = 720
	GranularityYearly      = 8760
)

// Filter reduces a list of snapshots to a representative subset.
type Filter interface {
	// Granularity is this variant's fixed ordering rank.
	Granularity() int
	// Apply returns the representative snapshots chosen from snapshots.
	Apply(snapshots []snapshot.Snapshot) []snapshot.Snapshot
	// Name identifies the variant, matching its configuration key.
	Name() string
}

// Passthrough keeps every input snapshot untouched. It is the finest
// granularity: everything it is given is already a representative.
type Passthrough struct{}

func (Passthrough) Granularity() int { return GranularityPassthrough }
func (Passthrough) Name() string     { return "all" }
func (Passthrough) Apply(snapshots []snapshot.Snapshot) []snapshot.Snapshot {
	return snapshots
}

// bucketKeyFunc derives the bucket a snapshot belongs to.
type bucketKeyFunc func(snapshot.Snapshot) any

// bucketFilter is the shared skeleton for every non-passthrough variant:
// group by a derived key, then keep the newest member of each group.
type bucketFilter struct {
	granularity int
	name        string
	key         bucketKeyFunc
}

func (b bucketFilter) Granularity() int { return b.granularity }
func (b bucketFilter) Name() string     { return b.name }

func (b bucketFilter) Apply(snapshots []snapshot.Snapshot) []snapshot.Snapshot {
	buckets := make(map[any][]snapshot.Snapshot)
	var order []any

	for _, s := range snapshots {
		k := b.key(s)
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], s)
	}

	result := make([]snapshot.Snapshot, 0, len(order))
	for _, k := range order {
		result = append(result, newestOf(buckets[k]))
	}
	return result
}

// newestOf returns the snapshot with the greatest timestamp, breaking ties
// deterministically on (Path, Name) rather than input/insertion order.
func newestOf(snapshots []snapshot.Snapshot) snapshot.Snapshot {
	best := snapshots[0]
	for _, s := range snapshots[1:] {
		switch {
		case s.Timestamp.After(best.Timestamp):
			best = s
		case s.Timestamp.Equal(best.Timestamp):
			if s.Path < best.Path || (s.Path == best.Path && s.Name < best.Name) {
				best = s
			}
		}
	}
	return best
}

type hourlyBucket struct {
	year, month, day, hour int
}

// Hourly keeps the newest snapshot per calendar hour.
type Hourly struct{ bucketFilter }

// NewHourly constructs an Hourly filter.
func NewHourly() Hourly {
	return Hourly{bucketFilter{
		granularity: GranularityHourly,
		name:        "hourly",
		key: func(s snapshot.Snapshot) any {
			t := s.Timestamp.UTC()
			return hourlyBucket{t.Year(), int(t.Month()), t.Day(), t.Hour()}
		},
	}}
}

type dailyBucket struct{ year, month, day int }

// Daily keeps the newest snapshot per calendar day.
type Daily struct{ bucketFilter }

// NewDaily constructs a Daily filter.
func NewDaily() Daily {
	return Daily{bucketFilter{
		granularity: GranularityDaily,
		name:        "daily",
		key: func(s snapshot.Snapshot) any {
			t := s.Timestamp.UTC()
			return dailyBucket{t.Year(), int(t.Month()), t.Day()}
		},
	}}
}

type weeklyBucket struct{ isoYear, isoWeek int }

// Weekly keeps the newest snapshot per ISO calendar week.
type Weekly struct{ bucketFilter }

// NewWeekly constructs a Weekly filter.
func NewWeekly() Weekly {
	return Weekly{bucketFilter{
		granularity: GranularityWeekly,
		name:        "weekly",
		key: func(s snapshot.Snapshot) any {
			year, week := s.Timestamp.UTC().ISOWeek()
			return weeklyBucket{year, week}
		},
	}}
}

type monthlyBucket struct{ year, month int }

// Monthly keeps the newest snapshot per calendar month.
type Monthly struct{ bucketFilter }

// NewMonthly constructs a Monthly filter.
func NewMonthly() Monthly {
	return Monthly{bucketFilter{
		granularity: GranularityMonthly,
		name:        "monthly",
		key: func(s snapshot.Snapshot) any {
			t := s.Timestamp.UTC()
			return monthlyBucket{t.Year(), int(t.Month())}
		},
	}}
}

type yearlyBucket struct{ year int }

// Yearly keeps the newest snapshot per calendar year.
type Yearly struct{ bucketFilter }

// NewYearly constructs a Yearly filter.
func NewYearly() Yearly {
	return Yearly{bucketFilter{
		granularity: GranularityYearly,
		name:        "yearly",
		key: func(s snapshot.Snapshot) any {
			return yearlyBucket{s.Timestamp.UTC().Year()}
		},
	}}
}

// ByGranularity sorts filters ascending by Granularity, stably.
func ByGranularity(filters []Filter) []Filter {
	sorted := make([]Filter, len(filters))
	copy(sorted, filters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Granularity() < sorted[j].Granularity()
	})
	return sorted
}
