// Package snapshot defines the value type shared by every other component:
// an immutable, timestamped capture of a filesystem at a point in time.
package snapshot

import (
	"fmt"
	"strings"
	"time"
)

// NameLayout is the textual layout the orchestrator uses when it authors a
// new snapshot name. Components are UTC, zero-padded, and carry no timezone
// suffix - UTC is implied by convention.
const NameLayout = "2006.01.02-15.04.05"

// DayNameLayout is the coarser layout used for replication candidate names.
const DayNameLayout = "2006-01-02"

// Snapshot is an immutable, named, timestamped capture of a filesystem.
//
// Identity is the triple (Path, Name, Timestamp); two Snapshot values with
// equal fields are considered the same snapshot.
type Snapshot struct {
	Path      string
	Name      string
	Timestamp time.Time
}

// String renders the snapshot in the storage manager's own "path@name"
// notation, which is also what the CLI driver passes on argv.
func (s Snapshot) String() string {
	return fmt.Sprintf("%s@%s", s.Path, s.Name)
}

// HasPrefix reports whether the snapshot's name begins with prefix. Names
// lacking the reserved prefix are invisible to the retention engine.
func (s Snapshot) HasPrefix(prefix string) bool {
	return strings.HasPrefix(s.Name, prefix)
}

// Name builds the canonical name for a snapshot created at t with the given
// reserved prefix, at second resolution.
func Name(prefix string, t time.Time) string {
	return prefix + "-" + t.UTC().Format(NameLayout)
}

// DayName builds the coarser, day-resolution name used by the replication
// selector to pick (or create) "today's" candidate snapshot.
func DayName(prefix string, t time.Time) string {
	return prefix + "-" + t.UTC().Format(DayNameLayout)
}

// ByTimestampDescending sorts snapshots newest-first, breaking ties on
// (Path, Name) so the order never depends on map/slice iteration order.
type ByTimestampDescending []Snapshot

func (b ByTimestampDescending) Len() int      { return len(b) }
func (b ByTimestampDescending) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b ByTimestampDescending) Less(i, j int) bool {
	if !b[i].Timestamp.Equal(b[j].Timestamp) {
		return b[i].Timestamp.After(b[j].Timestamp)
	}
	if b[i].Path != b[j].Path {
		return b[i].Path < b[j].Path
	}
	return b[i].Name < b[j].Name
}
