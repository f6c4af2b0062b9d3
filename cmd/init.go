package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/internal/confirm"
	"github.com/lockplane/lockstep/internal/scaffold"
)

var initOpts struct {
	force bool
	dir   string
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create lockstep.toml and a migrations directory",
	Long: `Create lockstep.toml and the migrations directory in the current directory.

With --database-url the connection string is written to .env.<environment>,
which is added to .gitignore.`,
	Example: `  lockstep init
  lockstep init --env dev --database-url "file:dev.db"`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initOpts.force, "force", false, "Overwrite an existing lockstep.toml")
	initCmd.Flags().StringVar(&initOpts.dir, "dir", ".", "Project directory")
}

func runInit(cmd *cobra.Command, args []string) error {
	result, err := scaffold.Init(scaffold.InitOptions{
		Dir:           initOpts.dir,
		Environment:   opts.environment,
		DatabaseURL:   opts.databaseURL,
		MigrationsDir: opts.migrations,
		Force:         initOpts.force,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, confirm.Success("Wrote "+result.ConfigPath))
	_, _ = fmt.Fprintln(out, confirm.Success("Created "+result.MigrationsDir))
	if result.EnvFile != "" {
		_, _ = fmt.Fprintln(out, confirm.Success("Wrote "+result.EnvFile))
	}
	if result.GitignoreUpdated {
		_, _ = fmt.Fprintln(out, confirm.Success("Added .env.* to .gitignore"))
	}

	_, _ = fmt.Fprintln(out, confirm.Muted("Next: lockstep new create_users --table users"))
	return nil
}
