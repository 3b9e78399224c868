// Package orchestrator drives one invocation of the snapshot/retention
// round: create a snapshot per pool, then destroy whatever the Policy
// Engine says is obsolete per filesystem. Execution is strictly
// sequential - no goroutines, no fan-out - because the spec's ordering
// guarantees (every creation completes before any destruction begins,
// destructions happen newest-first) would otherwise be unenforceable.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stormont-systems/shadowcopy-go/internal/config"
	"github.com/stormont-systems/shadowcopy-go/internal/notify"
	"github.com/stormont-systems/shadowcopy-go/internal/retention"
	"github.com/stormont-systems/shadowcopy-go/internal/snapshot"
	"github.com/stormont-systems/shadowcopy-go/internal/storage"
)

// FatalError reports that the storage manager could not be contacted at
// all (as opposed to a single pool or filesystem operation failing). The
// process exits non-zero when this is returned.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// DefaultPrefix is the reserved leading substring of names the engine
// owns. Snapshots whose names lack it are invisible to the retention
// engine - neither counted nor destroyed.
const DefaultPrefix = "shadow_copy"

// Round bundles the per-invocation settings.
type Round struct {
	Prefix string
	DryRun bool
}

// Summary reports what happened during one phase, for logging and tests.
type Summary struct {
	Created   []snapshot.Snapshot
	Destroyed []snapshot.Snapshot
	Skipped   []string
	Failed    []string
}

func (r Round) prefix() string {
	if r.Prefix == "" {
		return DefaultPrefix
	}
	return r.Prefix
}

// RunSnapshots implements phase one of §4.5: for each pool, resolve its
// policy, skip if ignored, else create one new snapshot.
func RunSnapshots(ctx context.Context, driver storage.Driver, cfg *config.Configuration, notifier *notify.Webhook, logger *slog.Logger, round Round, now time.Time) (Summary, error) {
	roundID := uuid.NewString()
	logger = logger.With("round_id", roundID, "phase", "snapshot")

	pools, err := driver.ListPools(ctx)
	if err != nil {
		return Summary{}, &FatalError{Op: "list pools", Err: err}
	}

	var summary Summary
	name := snapshot.Name(round.prefix(), now)

	for _, pool := range pools {
		policy := cfg.Resolve(pool)
		if policy.Ignore {
			logger.Info("skipping pool, ignored by configuration", "pool", pool)
			summary.Skipped = append(summary.Skipped, pool)
			continue
		}

		s, err := driver.CreateSnapshot(ctx, pool, name, policy.Recursive, round.DryRun)
		if err != nil {
			logger.Error("failed to create snapshot", "pool", pool, "error", err)
			summary.Failed = append(summary.Failed, pool)
			notifyFailure(ctx, notifier, logger, "create", pool, name, err)
			continue
		}

		logger.Info("created snapshot", "pool", pool, "name", name, "dry_run", round.DryRun)
		summary.Created = append(summary.Created, s)
	}

	return summary, nil
}

// RunRetention implements phase two of §4.5: for each filesystem, resolve
// its policy, skip if ignored, else run the Policy Engine over its
// reserved-prefix snapshots and destroy whatever it returns for deletion.
func RunRetention(ctx context.Context, driver storage.Driver, cfg *config.Configuration, notifier *notify.Webhook, logger *slog.Logger, round Round, now time.Time) (Summary, error) {
	roundID := uuid.NewString()
	logger = logger.With("round_id", roundID, "phase", "retention")

	filesystems, err := driver.ListFilesystems(ctx, "")
	if err != nil {
		return Summary{}, &FatalError{Op: "list filesystems", Err: err}
	}

	var summary Summary
	prefix := round.prefix()

	for _, fs := range filesystems {
		policy := cfg.Resolve(fs)
		if policy.Ignore {
			logger.Info("skipping filesystem, ignored by configuration", "filesystem", fs)
			summary.Skipped = append(summary.Skipped, fs)
			continue
		}

		all, err := driver.ListSnapshots(ctx, fs)
		if err != nil {
			logger.Error("failed to list snapshots", "filesystem", fs, "error", err)
			summary.Failed = append(summary.Failed, fs)
			notifyFailure(ctx, notifier, logger, "list", fs, "", err)
			continue
		}

		var owned []snapshot.Snapshot
		for _, s := range all {
			if s.HasPrefix(prefix) {
				owned = append(owned, s)
			}
		}

		_, obsolete := retention.FilterSnapshots(owned, now, policy)
		for _, s := range obsolete {
			if err := driver.DestroySnapshot(ctx, fs, s.Name, false, round.DryRun); err != nil {
				var stateErr *storage.StateError
				if errors.As(err, &stateErr) {
					logger.Warn("destroy skipped, safety precondition not met", "filesystem", fs, "name", s.Name, "reason", stateErr.Reason)
					continue
				}
				logger.Error("failed to destroy snapshot", "filesystem", fs, "name", s.Name, "error", err)
				summary.Failed = append(summary.Failed, fs+"@"+s.Name)
				notifyFailure(ctx, notifier, logger, "destroy", fs, s.Name, err)
				continue
			}
			logger.Info("destroyed snapshot", "filesystem", fs, "name", s.Name, "dry_run", round.DryRun)
			summary.Destroyed = append(summary.Destroyed, s)
		}
	}

	return summary, nil
}

func notifyFailure(ctx context.Context, notifier *notify.Webhook, logger *slog.Logger, op, path, name string, cause error) {
	if notifier == nil {
		return
	}
	failure := notify.OperationFailure{
		Service:   "shadowcopy",
		Path:      path,
		Name:      name,
		Message:   op + " failed: " + cause.Error(),
		Timestamp: time.Now().UTC(),
	}
	if err := notifier.Notify(ctx, failure); err != nil {
		logger.Warn("webhook notification failed", "error", err)
	}
}
