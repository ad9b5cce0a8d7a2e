package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/sss-network/sss-indexer/internal/config"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

var cmd = &cobra.Command{
	Use:  "sss",
	Long: `Stablecoin event indexer, webhook dispatcher and idempotent command gateway`,
}

func init() {
	var configFile string

	// Add global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g.  `./config.yaml`")
	flags.String("program-id", "", "stablecoin program id to index")

	// Bind flags to configuration
	config.BindPFlag("modules.stablecoin.program_id", flags.Lookup("program-id"))

	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		// Initialize configuration
		config := config.Parse(configFile)

		// Initialize logger
		if err := logger.Init(config.Logger); err != nil {
			logger.Panic("Failed to initialize logger", slogx.Error(err), slog.Any("config", config.Logger))
		}
	})
}

func Execute(ctx context.Context) {
	// Register sub-commands
	cmd.AddCommand(
		NewVersionCommand(),
		NewRunCommand(),
		NewMigrateCommand(),
		NewArchiveCommand(),
	)

	// Execute command
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Panic("Failed to execute root command", slogx.Error(err))
	}
}
