// Package replication implements the Replication Selector: deciding, for
// a given filesystem and backup target, whether a full or incremental
// replication is warranted, and which snapshot to use as the incremental
// base.
package replication

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/stormont-systems/shadowcopy-go/internal/snapshot"
	"github.com/stormont-systems/shadowcopy-go/internal/storage"
)

// Plan describes the replication this selector decided on.
type Plan struct {
	// Incremental is true when an existing target snapshot was found to
	// use as the send base.
	Incremental bool
	// Base is the incremental base snapshot; zero value when Incremental
	// is false.
	Base snapshot.Snapshot
	// Source is the (possibly newly created) snapshot being replicated.
	Source snapshot.Snapshot
	// TargetPath is the destination dataset.
	TargetPath string
	// Command is the shell pipeline this plan corresponds to, suitable
	// for either execution or printing under --dry-run.
	Command string
}

// Select runs the §4.6 algorithm: reuse or create today's dated snapshot
// of fs, then decide full vs incremental against targetPool by probing
// for existing backup-prefixed snapshots under the target path.
func Select(ctx context.Context, driver storage.Driver, fs, targetPool, backupPrefix string, now time.Time, dryRun bool) (Plan, error) {
	name := snapshot.DayName(backupPrefix, now)

	source, ok, err := driver.GetSnapshot(ctx, fs, name)
	if err != nil {
		return Plan{}, err
	}
	if !ok {
		source, err = driver.CreateSnapshot(ctx, fs, name, false, dryRun)
		if err != nil {
			return Plan{}, err
		}
	}

	targetPath := targetPool + "/" + strings.ReplaceAll(fs, "/", "_")

	targetSnapshots, err := driver.ListSnapshots(ctx, targetPath)
	if err != nil {
		return Plan{}, err
	}

	var candidates []snapshot.Snapshot
	for _, s := range targetSnapshots {
		if s.HasPrefix(backupPrefix) {
			candidates = append(candidates, s)
		}
	}

	plan := Plan{Source: source, TargetPath: targetPath}

	if len(candidates) > 0 {
		sort.Sort(snapshot.ByTimestampDescending(candidates))
		plan.Incremental = true
		plan.Base = candidates[0]
		plan.Command = fmt.Sprintf("zfs send -i %s %s | zfs recv -Fuv %s", plan.Base.String(), source.String(), targetPath)
	} else {
		plan.Command = fmt.Sprintf("zfs send %s | zfs recv -Fuv %s", source.String(), targetPath)
	}

	return plan, nil
}

// Run executes plan.Command via the shell. It always runs the command;
// under --dry-run the backup command prints the plan and does not call Run.
func Run(ctx context.Context, plan Plan) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", plan.Command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("replication command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
