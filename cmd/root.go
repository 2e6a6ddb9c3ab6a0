package cmd

import (
	"fmt"
	"os"

	"TitanMusic/config"
	"TitanMusic/logger"
	"TitanMusic/server"

	"github.com/spf13/cobra"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "titan",
	Short:         "Titan Music catalog server.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		return logger.InitLogger(logger.Config{
			Level:       cfg.LogLevel,
			OutputPath:  cfg.LogFile,
			MaxSize:     cfg.LogMaxSize,
			MaxBackups:  cfg.LogMaxBackups,
			MaxAge:      cfg.LogMaxAge,
			Compress:    cfg.LogCompress,
			Development: !cfg.IsProduction(),
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	// without a subcommand the server starts
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
