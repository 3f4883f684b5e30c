package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/neilberkman/docchat/internal/core/config"
	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	configPath  string
	verbose     bool
	versionInfo string

	cfg *config.Config
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logging.Close()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Upload documents and chat about them",
	Long: `docchat - upload documents and ask questions about them

Pick files to upload, watch their progress, then chat once processing
finishes. Finished chats are archived so you can search them later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = setup

	defaultDB := filepath.Join(config.Dir(), "history.db")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/docchat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr as well as the log file")
}

// setup loads config and configures logging before any command runs
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	// The TUI owns the terminal, so it only ever logs to the file
	interactive := cmd == rootCmd || cmd == tuiCmd
	if err := logging.Init(logging.Options{
		Level:   level,
		File:    cfg.LogFile,
		Console: verbose && !interactive && cmd != mcpCmd,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logging.Debug().
		Str("command", cmd.Name()).
		Str("backend", cfg.Backend).
		Str("responder", cfg.Responder).
		Msg("starting")
	return nil
}
