package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/stormont-systems/shadowcopy-go/internal/resilience"
	"github.com/stormont-systems/shadowcopy-go/internal/snapshot"
)

// CLIDriver implements Driver by shelling out to the storage manager's
// command-line tools (named zfsBin/zpoolBin, overridable for testing or
// for storage managers that ship differently-named binaries).
type CLIDriver struct {
	ZfsBin      string
	ZpoolBin    string
	Prefix      string
	RetryConfig resilience.RetryConfig
	// run executes a command and returns its stdout. It exists as
	// a field, not a free function, so tests can substitute a fake without
	// touching the filesystem or PATH.
	run func(ctx context.Context, name string, args ...string) (string, error)
}

// NewCLIDriver builds a CLIDriver with the given reserved prefix, invoking
// the real zfs/zpool binaries via os/exec.
func NewCLIDriver(zfsBin, zpoolBin, prefix string) *CLIDriver {
	if zfsBin == "" {
		zfsBin = "zfs"
	}
	if zpoolBin == "" {
		zpoolBin = "zpool"
	}
	return &CLIDriver{
		ZfsBin:      zfsBin,
		ZpoolBin:    zpoolBin,
		Prefix:      prefix,
		RetryConfig: resilience.DefaultRetryConfig,
		run:         execCommand,
	}
}

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"busy", "i/o error", "dataset is locked", "temporarily unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (d *CLIDriver) exec(ctx context.Context, opName string, name string, args ...string) (string, error) {
	var out string
	err := resilience.Execute(ctx, d.RetryConfig, opName, isTransient, func(ctx context.Context) error {
		var runErr error
		out, runErr = d.run(ctx, name, args...)
		return runErr
	})
	return out, err
}

// ListPools returns the host's storage pools via `zpool list -H -o name`.
func (d *CLIDriver) ListPools(ctx context.Context) ([]string, error) {
	out, err := d.exec(ctx, "list pools", d.ZpoolBin, "list", "-H", "-o", "name")
	if err != nil {
		return nil, &StorageError{Path: "<pools>", Command: d.ZpoolBin + " list", Err: err}
	}
	return splitLines(out), nil
}

// ListFilesystems returns mountable filesystems via `zfs list -H -t filesystem -o name`.
// root, when non-empty, restricts the listing to that subtree via -r.
func (d *CLIDriver) ListFilesystems(ctx context.Context, root string) ([]string, error) {
	args := []string{"list", "-H", "-t", "filesystem", "-o", "name"}
	if root != "" {
		args = append(args, "-r", root)
	}
	out, err := d.exec(ctx, "list filesystems", d.ZfsBin, args...)
	if err != nil {
		return nil, &StorageError{Path: root, Command: d.ZfsBin + " list", Err: err}
	}
	return splitLines(out), nil
}

// ListSnapshots returns every snapshot owned by path, parsed from
// `zfs list -Hp -t snapshot -o name,creation`. -p makes the creation
// property numeric (POSIX seconds), matching the driver contract.
func (d *CLIDriver) ListSnapshots(ctx context.Context, path string) ([]snapshot.Snapshot, error) {
	out, err := d.exec(ctx, "list snapshots", d.ZfsBin, "list", "-Hp", "-t", "snapshot", "-o", "name,creation")
	if err != nil {
		return nil, &StorageError{Path: path, Command: d.ZfsBin + " list", Err: err}
	}

	var result []snapshot.Snapshot
	for _, line := range strings.Split(out, "\n") {
		s, ok, perr := parseSnapshotLine(line)
		if perr != nil {
			continue
		}
		if ok && s.Path == path {
			result = append(result, s)
		}
	}
	return result, nil
}

// GetSnapshot looks up a single snapshot by path and name.
func (d *CLIDriver) GetSnapshot(ctx context.Context, path, name string) (snapshot.Snapshot, bool, error) {
	all, err := d.ListSnapshots(ctx, path)
	if err != nil {
		return snapshot.Snapshot{}, false, err
	}
	for _, s := range all {
		if s.Name == name {
			return s, true, nil
		}
	}
	return snapshot.Snapshot{}, false, nil
}

// CreateSnapshot issues `zfs snapshot [-r] path@name`. Under dryRun, the
// command line is printed to stdout and no subprocess runs; the returned
// Snapshot is synthesized with the current wall-clock UTC so downstream
// logging has something to report.
func (d *CLIDriver) CreateSnapshot(ctx context.Context, path, name string, recursive, dryRun bool) (snapshot.Snapshot, error) {
	args := []string{"snapshot"}
	if recursive {
		args = append(args, "-r")
	}
	args = append(args, path+"@"+name)

	if dryRun {
		fmt.Println(strings.Join(append([]string{d.ZfsBin}, args...), " "))
		return snapshot.Snapshot{Path: path, Name: name, Timestamp: time.Now().UTC()}, nil
	}

	if _, err := d.exec(ctx, "create snapshot", d.ZfsBin, args...); err != nil {
		return snapshot.Snapshot{}, &StorageError{Path: path, Command: d.ZfsBin + " snapshot", Err: err}
	}
	return snapshot.Snapshot{Path: path, Name: name, Timestamp: time.Now().UTC()}, nil
}

// DestroySnapshot issues `zfs destroy [-r] path@name`, after enforcing
// that name starts with the reserved prefix and that a matching snapshot
// record exists under path. This is the safety net: even a buggy caller
// cannot make the driver destroy something outside its remit. Under
// dryRun, the command line is printed to stdout and no subprocess runs.
func (d *CLIDriver) DestroySnapshot(ctx context.Context, path, name string, recursive, dryRun bool) error {
	if !strings.HasPrefix(name, d.Prefix) {
		return &StateError{Path: path, Name: name, Reason: fmt.Sprintf("name does not start with reserved prefix %q", d.Prefix)}
	}

	existing, ok, err := d.GetSnapshot(ctx, path, name)
	if err != nil {
		return err
	}
	if !ok {
		return &StateError{Path: path, Name: name, Reason: "no such snapshot"}
	}
	if existing.Path != path {
		return &StateError{Path: path, Name: name, Reason: "resolved record's path does not match the requested path"}
	}

	args := []string{"destroy"}
	if recursive {
		args = append(args, "-r")
	}
	args = append(args, path+"@"+name)

	if dryRun {
		fmt.Println(strings.Join(append([]string{d.ZfsBin}, args...), " "))
		return nil
	}

	if _, err := d.exec(ctx, "destroy snapshot", d.ZfsBin, args...); err != nil {
		return &StorageError{Path: path, Command: d.ZfsBin + " destroy", Err: err}
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}

// parseSnapshotLine parses one "path@name<TAB>creation" line into a
// Snapshot. Lines whose creation timestamp cannot be resolved are reported
// as ok=false rather than guessed.
func parseSnapshotLine(line string) (snapshot.Snapshot, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return snapshot.Snapshot{}, false, fmt.Errorf("malformed snapshot line: %q", line)
	}

	idx := strings.Index(fields[0], "@")
	if idx < 0 {
		return snapshot.Snapshot{}, false, fmt.Errorf("missing '@' in snapshot identifier: %q", fields[0])
	}
	path := fields[0][:idx]
	name := fields[0][idx+1:]

	seconds, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("non-numeric creation timestamp: %q", fields[1])
	}

	return snapshot.Snapshot{
		Path:      path,
		Name:      name,
		Timestamp: time.Unix(seconds, 0).UTC(),
	}, true, nil
}
