package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logLevel        string
	timeout         int
	dryRun          bool
	configPath      string
	zfsBin          string
	zpoolBin        string
	webhookURL      string
	webhookUsername string
	webhookPassword string
)

var rootCommand = &cobra.Command{
	Use:     "shadowcopy-go",
	Aliases: []string{"shadowcopy"},
	Short:   "Policy-based snapshot retention and replication for copy-on-write filesystems",
	Long: `shadowcopy-go manages the lifecycle of filesystem snapshots on a ZFS-like
storage manager. It creates timestamped snapshots, prunes them according to
per-filesystem retention policies defined in a TOML configuration document,
and selects full or incremental replication plans for a backup target.`,
}

func Execute() error {
	return rootCommand.Execute()
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "shadowcopy", Title: "Shadowcopy"})

	// Global persistent flags with env var support
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/shadowcopy/policy.toml", "Path to the retention policy TOML document")
	rootCommand.PersistentFlags().IntVar(&timeout, "timeout", 0, "Global execution timeout in seconds (0 = run indefinitely)")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCommand.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the actions that would be taken without mutating storage")
	rootCommand.PersistentFlags().StringVar(&zfsBin, "zfs-bin", "zfs", "Path to the zfs binary")
	rootCommand.PersistentFlags().StringVar(&zpoolBin, "zpool-bin", "zpool", "Path to the zpool binary")
	rootCommand.PersistentFlags().StringVar(&webhookURL, "webhook-url", "", "Webhook URL for failure alerting")
	rootCommand.PersistentFlags().StringVar(&webhookUsername, "webhook-username", "", "Webhook username for alerting")
	rootCommand.PersistentFlags().StringVar(&webhookPassword, "webhook-password", "", "Webhook password for alerting")
	// Bind to env vars
	_ = viper.BindPFlag("config", rootCommand.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("timeout", rootCommand.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("log-level", rootCommand.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("dry-run", rootCommand.PersistentFlags().Lookup("dry-run"))

	viper.SetEnvPrefix("SHADOWCOPY")
	viper.AutomaticEnv()
}
