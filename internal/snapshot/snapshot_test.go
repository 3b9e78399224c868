package snapshot

import (
	"sort"
	"testing"
	"time"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestNameFormatsUTC(t *testing.T) {
	ts := mustParse(t, "2024-03-05T13:07:09Z")
	got := Name("shadow_copy", ts)
	want := "shadow_copy-2024.03.05-13.07.09"
	if got != want {
		t.Fatalf("Name() = %q, want %q", got, want)
	}
}

func TestDayName(t *testing.T) {
	ts := mustParse(t, "2024-03-05T13:07:09Z")
	got := DayName("backup_", ts)
	want := "backup_-2024-03-05"
	if got != want {
		t.Fatalf("DayName() = %q, want %q", got, want)
	}
}

func TestHasPrefix(t *testing.T) {
	s := Snapshot{Path: "tank", Name: "shadow_copy-2024.01.01-00.00.00"}
	if !s.HasPrefix("shadow_copy") {
		t.Fatal("expected prefix match")
	}
	if s.HasPrefix("manual-") {
		t.Fatal("unexpected prefix match")
	}
}

func TestByTimestampDescendingTiebreak(t *testing.T) {
	ts := mustParse(t, "2024-01-01T00:00:00Z")
	snaps := []Snapshot{
		{Path: "tank/b", Name: "shadow_copy-1", Timestamp: ts},
		{Path: "tank/a", Name: "shadow_copy-2", Timestamp: ts},
		{Path: "tank/a", Name: "shadow_copy-1", Timestamp: ts.Add(time.Hour)},
	}
	sort.Sort(ByTimestampDescending(snaps))

	if snaps[0].Name != "shadow_copy-1" || snaps[0].Path != "tank/a" {
		t.Fatalf("newest entry should sort first, got %+v", snaps[0])
	}
	// The two remaining entries share a timestamp; tiebreak is (Path, Name)
	// ascending, so tank/a before tank/b.
	if snaps[1].Path != "tank/a" || snaps[2].Path != "tank/b" {
		t.Fatalf("tiebreak not deterministic, got %+v then %+v", snaps[1], snaps[2])
	}
}
