package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	environment string
	configPath  string
	migrations  string
	databaseURL string
	stateFile   string
	backend     string
	verbose     bool
}

var opts globalOptions

var rootCmd = &cobra.Command{
	Use:   "lockstep",
	Short: "Dependency-ordered, reversible database migrations",
	Long: `Lockstep applies and rolls back schema migrations declared as TOML files.

Migrations name their dependencies, are applied in dependency order, and each
one runs in its own transaction on databases with transactional DDL.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.environment, "env", "e", "", "Environment from lockstep.toml (default: default_environment or \"local\")")
	flags.StringVar(&opts.configPath, "config", "", "Path to lockstep.toml (default: search upward from the working directory)")
	flags.StringVar(&opts.migrations, "migrations", "", "Migrations directory (overrides migrations_dir)")
	flags.StringVar(&opts.databaseURL, "database-url", "", "Database connection string (overrides the environment)")
	flags.StringVar(&opts.stateFile, "state-file", "", "Track applied migrations in this JSON file instead of a database table")
	flags.StringVar(&opts.backend, "backend", "", "SQL dialect when no database is configured: postgres, sqlite or mysql")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command, runID string) *slog.Logger {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run_id", runID)
}
