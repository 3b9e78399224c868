package retention

import (
	"sort"
	"time"

	"github.com/stormont-systems/shadowcopy-go/internal/snapshot"
)

// FilterSnapshots partitions snapshots into keep and delete sets per the
// policy, evaluated as of now.
//
// Algorithm: the policy is canonicalized (sorted ascending by filter
// granularity), then walked in order. At each step the remaining snapshots
// are partitioned into the current age band (age <= cutoff) and the rest;
// the current band's filter representatives are added to keep, and the
// rest carries forward to the next, coarser band. Anything still remaining
// after the last band - i.e. older than every configured cutoff - is kept
// unconditionally: a snapshot aging out of every configured band is not
// deletion-eligible, it simply has no policy governing it. delete is
// whatever isn't kept, sorted newest-first.
func FilterSnapshots(snapshots []snapshot.Snapshot, now time.Time, policy Policy) (keep, delete []snapshot.Snapshot) {
	policy = policy.Canonicalize()

	kept := make(map[snapshot.Snapshot]struct{}, len(snapshots))
	remaining := append([]snapshot.Snapshot(nil), snapshots...)

	for _, entry := range policy.Entries {
		if len(remaining) == 0 {
			break
		}

		var current, rest []snapshot.Snapshot
		for _, s := range remaining {
			age := now.Sub(s.Timestamp)
			if entry.Cutoff.Covers(age) {
				current = append(current, s)
			} else {
				rest = append(rest, s)
			}
		}
		remaining = rest

		for _, s := range entry.Filter.Apply(current) {
			kept[s] = struct{}{}
		}
	}

	// Anything older than every configured cutoff is kept - the default
	// policy semantics: absence of a governing band means "keep", not
	// "delete".
	for _, s := range remaining {
		kept[s] = struct{}{}
	}

	keep = make([]snapshot.Snapshot, 0, len(kept))
	for s := range kept {
		keep = append(keep, s)
	}

	for _, s := range snapshots {
		if _, ok := kept[s]; !ok {
			delete = append(delete, s)
		}
	}
	sort.Sort(snapshot.ByTimestampDescending(delete))

	return keep, delete
}
