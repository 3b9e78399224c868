package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stormont-systems/shadowcopy-go/internal/config"
	"github.com/stormont-systems/shadowcopy-go/internal/notify"
	"github.com/stormont-systems/shadowcopy-go/internal/orchestrator"
	"github.com/stormont-systems/shadowcopy-go/internal/storage"
)

var snapshotCommand = &cobra.Command{
	Use:     "snapshot",
	GroupID: "shadowcopy",
	Short:   "Create snapshots and prune expired ones per the retention policy",
	Long:    `Runs one round: create a snapshot of every non-ignored pool, then destroy whatever snapshots the retention policy no longer wants kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("Shadowcopy - Snapshot Round"))

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := setupLogger(logLevel)
		driver := storage.NewCLIDriver(zfsBin, zpoolBin, orchestrator.DefaultPrefix)
		notifier := &notify.Webhook{URL: webhookURL, Username: webhookUsername, Password: webhookPassword}
		round := orchestrator.Round{DryRun: dryRun}
		now := time.Now().UTC()

		snapSummary, err := orchestrator.RunSnapshots(ctx, driver, cfg, notifier, logger, round, now)
		if err != nil {
			return err
		}
		logger.Info("snapshot phase complete", "created", len(snapSummary.Created), "skipped", len(snapSummary.Skipped), "failed", len(snapSummary.Failed))

		retentionSummary, err := orchestrator.RunRetention(ctx, driver, cfg, notifier, logger, round, now)
		if err != nil {
			return err
		}
		logger.Info("retention phase complete", "destroyed", len(retentionSummary.Destroyed), "skipped", len(retentionSummary.Skipped), "failed", len(retentionSummary.Failed))

		return nil
	},
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
}

func init() {
	rootCommand.AddCommand(snapshotCommand)
}
