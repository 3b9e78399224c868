package retention

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/stormont-systems/shadowcopy-go/internal/filter"
	"github.com/stormont-systems/shadowcopy-go/internal/snapshot"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func daily(n time.Time, days int, path string) []snapshot.Snapshot {
	var out []snapshot.Snapshot
	for i := 0; i < days; i++ {
		out = append(out, snapshot.Snapshot{
			Path:      path,
			Name:      snapshot.Name("shadow_copy", n.AddDate(0, 0, -i)),
			Timestamp: n.AddDate(0, 0, -i),
		})
	}
	return out
}

func names(snaps []snapshot.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Name
	}
	sort.Strings(out)
	return out
}

// Invariant 1: partition completeness - keep and delete partition the input.
func TestPartitionCompleteness(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 400, "tank")
	keep, del := FilterSnapshots(snaps, now, Default())

	total := len(keep) + len(del)
	if total != len(snaps) {
		t.Fatalf("keep(%d)+delete(%d) = %d, want %d", len(keep), len(del), total, len(snaps))
	}

	seen := map[snapshot.Snapshot]int{}
	for _, s := range keep {
		seen[s]++
	}
	for _, s := range del {
		seen[s]++
	}
	for s, n := range seen {
		if n != 1 {
			t.Fatalf("snapshot %+v appears in both keep and delete", s)
		}
	}
}

// Invariant 2: idempotence - re-filtering the keep set changes nothing.
func TestIdempotence(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 400, "tank")
	keep, _ := FilterSnapshots(snaps, now, Default())

	keep2, del2 := FilterSnapshots(keep, now, Default())
	if len(del2) != 0 {
		t.Fatalf("re-filtering kept set produced deletions: %+v", del2)
	}
	if !reflect.DeepEqual(names(keep), names(keep2)) {
		t.Fatalf("re-filtering kept set changed membership: %v vs %v", names(keep), names(keep2))
	}
}

// Invariant 4: under the default policy the single newest snapshot is
// always kept.
func TestNewestAlwaysKept(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 1000, "tank")
	keep, _ := FilterSnapshots(snaps, now, Default())

	newest := snaps[0]
	found := false
	for _, s := range keep {
		if s == newest {
			found = true
		}
	}
	if !found {
		t.Fatalf("newest snapshot %+v not in keep set", newest)
	}
}

// Invariant 5: delete list is strictly descending by timestamp.
func TestDeleteOrderingStrictlyDescending(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 400, "tank")
	_, del := FilterSnapshots(snaps, now, Default())

	for i := 1; i < len(del); i++ {
		if del[i].Timestamp.After(del[i-1].Timestamp) {
			t.Fatalf("delete list not descending at index %d: %+v", i, del)
		}
	}
}

// Invariant 7: bucket determinism across input permutations.
func TestBucketDeterminismAcrossPermutations(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 60, "tank")

	_, firstDel := FilterSnapshots(snaps, now, Default())
	for i := 0; i < 5; i++ {
		perm := append([]snapshot.Snapshot(nil), snaps...)
		rand.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		_, del := FilterSnapshots(perm, now, Default())
		if !reflect.DeepEqual(names(firstDel), names(del)) {
			t.Fatalf("delete set not deterministic across permutations")
		}
	}
}

// S1: a 900-day daily series collapses to yearly representatives beyond
// the monthly cutoff. Yearly's cutoff is unbounded, so it absorbs every
// remaining snapshot and keeps only the newest one per calendar year.
func TestScenarioYearlyCollapse(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	var snaps []snapshot.Snapshot
	for i := 0; i < 900; i++ {
		ts := now.AddDate(0, 0, -i)
		snaps = append(snaps, snapshot.Snapshot{Path: "tank", Name: snapshot.Name("shadow_copy", ts), Timestamp: ts})
	}
	keep, del := FilterSnapshots(snaps, now, Default())
	if len(keep)+len(del) != len(snaps) {
		t.Fatalf("completeness violated")
	}
	// 900 days back reaches 2021-12-29; the 2021 Yearly bucket keeps only
	// 2021-12-31, so the oldest snapshot is collapsed away.
	oldest := snaps[len(snaps)-1]
	deleted := false
	for _, s := range del {
		if s == oldest {
			deleted = true
		}
	}
	if !deleted {
		t.Fatalf("oldest snapshot %s should be collapsed into its year's newest representative", oldest.Name)
	}
}

// S2: snapshots older than the coarsest configured cutoff are kept, not
// deleted, when no policy entry covers their age.
func TestScenarioRetainBeyondCoarsestCutoff(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	ancient := now.AddDate(-5, 0, 0)
	snaps := []snapshot.Snapshot{
		{Path: "tank", Name: snapshot.Name("shadow_copy", ancient), Timestamp: ancient},
	}
	policy := Policy{Entries: []Entry{
		{Filter: filter.NewDaily(), Cutoff: Days(30)},
	}}
	keep, del := FilterSnapshots(snaps, now, policy)
	if len(del) != 0 {
		t.Fatalf("expected the ancient snapshot to be kept, got delete=%+v", del)
	}
	if len(keep) != 1 {
		t.Fatalf("expected exactly one kept snapshot, got %+v", keep)
	}
}

// S3: a mixed weekly+monthly policy keeps one representative per bucket in
// each band.
func TestScenarioWeeklyAndMonthlyMix(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 120, "tank")
	policy := Policy{Entries: []Entry{
		{Filter: filter.NewWeekly(), Cutoff: Days(60)},
		{Filter: filter.NewMonthly(), Cutoff: Days(365)},
	}}
	keep, del := FilterSnapshots(snaps, now, policy)
	if len(keep)+len(del) != len(snaps) {
		t.Fatalf("completeness violated")
	}
	if len(keep) == 0 || len(keep) == len(snaps) {
		t.Fatalf("expected partial collapse, got keep=%d of %d", len(keep), len(snaps))
	}
}

// S4: order-independent configuration - two policies built from the same
// key set in different orders produce identical keep/delete sets once
// canonicalized.
func TestScenarioOrderIndependentConfig(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 90, "tank")

	a := Policy{Entries: []Entry{
		{Filter: filter.NewHourly(), Cutoff: Days(2)},
		{Filter: filter.NewDaily(), Cutoff: Days(30)},
	}}
	b := Policy{Entries: []Entry{
		{Filter: filter.NewDaily(), Cutoff: Days(30)},
		{Filter: filter.NewHourly(), Cutoff: Days(2)},
	}}

	keepA, delA := FilterSnapshots(snaps, now, a)
	keepB, delB := FilterSnapshots(snaps, now, b)

	if !reflect.DeepEqual(names(keepA), names(keepB)) {
		t.Fatalf("keep sets differ by entry order: %v vs %v", names(keepA), names(keepB))
	}
	if !reflect.DeepEqual(names(delA), names(delB)) {
		t.Fatalf("delete sets differ by entry order: %v vs %v", names(delA), names(delB))
	}
}

// S6: dry-run isolation is an orchestrator-level concern, but the engine
// itself must be a pure function of its inputs - calling it twice with the
// same arguments must yield the same result, proving no hidden state.
func TestScenarioPureFunctionOfInputs(t *testing.T) {
	now := at("2024-06-15T00:00:00Z")
	snaps := daily(now, 50, "tank")
	keep1, del1 := FilterSnapshots(snaps, now, Default())
	keep2, del2 := FilterSnapshots(snaps, now, Default())
	if !reflect.DeepEqual(names(keep1), names(keep2)) || !reflect.DeepEqual(names(del1), names(del2)) {
		t.Fatalf("FilterSnapshots is not deterministic across repeated calls")
	}
}

func TestEmptyInputsProduceEmptyOutputs(t *testing.T) {
	keep, del := FilterSnapshots(nil, at("2024-01-01T00:00:00Z"), Default())
	if len(keep) != 0 || len(del) != 0 {
		t.Fatalf("expected no output for empty input, got keep=%v delete=%v", keep, del)
	}
}

func TestEmptyPolicyKeepsEverything(t *testing.T) {
	now := at("2024-01-01T00:00:00Z")
	snaps := daily(now, 5, "tank")
	keep, del := FilterSnapshots(snaps, now, Policy{})
	if len(del) != 0 {
		t.Fatalf("empty policy must keep everything, got delete=%v", del)
	}
	if len(keep) != len(snaps) {
		t.Fatalf("expected all %d snapshots kept, got %d", len(snaps), len(keep))
	}
}

func TestDefaultPolicyEntriesAreAllUsableInstances(t *testing.T) {
	// Guards against the historical pitfall where a filter class was
	// referenced where an instance was expected, which would panic at
	// Apply time instead of behaving as a no-op classifier.
	for _, entry := range Default().Entries {
		if entry.Filter == nil {
			t.Fatalf("default policy entry has a nil Filter")
		}
		_ = entry.Filter.Apply(nil)
	}
}
