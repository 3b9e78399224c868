package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stormont-systems/shadowcopy-go/internal/orchestrator"
	"github.com/stormont-systems/shadowcopy-go/internal/replication"
	"github.com/stormont-systems/shadowcopy-go/internal/storage"
)

var backupPrefix string

var backupCommand = &cobra.Command{
	Use:     "backup SOURCE TARGET-POOL",
	GroupID: "shadowcopy",
	Args:    cobra.ExactArgs(2),
	Short:   "Select and run a full or incremental replication to a backup target",
	Long:    `Selects today's source snapshot (reusing it if already present) and decides, by probing the backup target for a prior replica, whether to send it as a full or incremental stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("Shadowcopy - Replication"))

		source, targetPool := args[0], args[1]

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		driver := storage.NewCLIDriver(zfsBin, zpoolBin, orchestrator.DefaultPrefix)
		logger := setupLogger(logLevel)
		now := time.Now().UTC()

		plan, err := replication.Select(ctx, driver, source, targetPool, backupPrefix, now, dryRun)
		if err != nil {
			return err
		}

		fmt.Println(plan.Command)

		if dryRun {
			logger.Info("dry run, replication command not executed", "incremental", plan.Incremental, "target", plan.TargetPath)
			return nil
		}

		if err := replication.Run(ctx, plan); err != nil {
			return err
		}
		logger.Info("replication complete", "incremental", plan.Incremental, "target", plan.TargetPath)
		return nil
	},
}

func init() {
	backupCommand.Flags().StringVar(&backupPrefix, "backup-prefix", "backup_", "Reserved name prefix for replication snapshots")
	rootCommand.AddCommand(backupCommand)
}
