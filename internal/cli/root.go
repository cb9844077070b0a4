// Package cli provides the command-line interface for episodes.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jtomasevic/episodes/internal/config"
	"github.com/jtomasevic/episodes/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	verbose    bool

	// Global config and logger, set up before every command.
	cfg        config.Config
	logger     *slog.Logger
	closeLog   func() error
	patternsDB *store.PatternStore
)

// NewRootCmd builds the command tree. Every call returns fresh commands so
// tests can execute them independently.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "episodes",
		Short: "Mine, validate and evaluate method usage episodes",
		Long: `Episodes postprocesses frequent episodes mined from method usage streams,
keeps the maximal patterns, validates their frequencies against the training
stream and evaluates ablated queries on held-out data.

Configuration comes from an optional YAML file, a .env file and EPISODES_*
environment variables, in that order.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config for version and help commands
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			level := cfg.Level()
			if verbose {
				level = slog.LevelDebug
			}
			logger, closeLog = config.SetupLogger(cfg.LogFile, level)
			slog.SetDefault(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if patternsDB != nil {
				if err := patternsDB.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close pattern store: %v\n", err)
				}
				patternsDB = nil
			}
			if closeLog != nil {
				_ = closeLog()
				closeLog = nil
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newPatternsCmd())
	rootCmd.AddCommand(newQueriesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newEncodeCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "episodes v%s\n", Version)
		},
	}
}

// openStore opens the pattern store configured in cfg once per command.
func openStore() (*store.PatternStore, error) {
	if patternsDB != nil {
		return patternsDB, nil
	}
	st, err := store.Open(store.Options{DataDir: cfg.StoreDir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open pattern store: %w", err)
	}
	patternsDB = st
	return st, nil
}
