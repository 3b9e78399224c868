// Package storage abstracts the external copy-on-write storage manager.
// Everything above this package is pure; this is the only component that
// spawns external processes.
package storage

import (
	"context"
	"fmt"

	"github.com/stormont-systems/shadowcopy-go/internal/snapshot"
)

// StorageError reports that the underlying storage manager command failed
// (non-zero exit). Listing lines that cannot be parsed are skipped rather
// than reported. The current per-pool or per-filesystem step is abandoned;
// the round continues.
type StorageError struct {
	Path    string
	Command string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: command %q failed: %v", e.Path, e.Command, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StateError reports a destroy safety precondition violation: the name
// lacks the reserved prefix, the named snapshot does not exist, or its
// recorded path does not match what was requested. The destroy is skipped silently (logged by the caller);
// the round continues.
type StateError struct {
	Path   string
	Name   string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("storage: refusing to destroy %s@%s: %s", e.Path, e.Name, e.Reason)
}

// Driver is the storage manager contract: enumeration, creation and
// destruction of snapshots, scoped to pools and filesystems.
type Driver interface {
	// ListPools returns the set of top-level storage containers.
	ListPools(ctx context.Context) ([]string, error)
	// ListFilesystems returns mountable filesystems. An empty root means
	// unscoped (every filesystem on the host).
	ListFilesystems(ctx context.Context, root string) ([]string, error)
	// ListSnapshots returns every snapshot whose owning path equals path.
	ListSnapshots(ctx context.Context, path string) ([]snapshot.Snapshot, error)
	// GetSnapshot returns the named snapshot under path, if it exists.
	GetSnapshot(ctx context.Context, path, name string) (snapshot.Snapshot, bool, error)
	// CreateSnapshot issues a creation. Under dryRun, no subprocess is run;
	// the returned Snapshot is synthesized with the current wall-clock UTC.
	CreateSnapshot(ctx context.Context, path, name string, recursive, dryRun bool) (snapshot.Snapshot, error)
	// DestroySnapshot issues a destruction, enforcing the reserved-prefix
	// and path-match safety preconditions before ever invoking the
	// subprocess.
	DestroySnapshot(ctx context.Context, path, name string, recursive, dryRun bool) error
}
