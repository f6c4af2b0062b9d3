package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/internal/confirm"
	"github.com/lockplane/lockstep/internal/executor"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate migration files, dependencies and backend support",
	Long: `Load every migration file, resolve the dependency graph and check that
every operation can be rendered for the target backend. No database
connection is needed.

The backend is taken from --backend, or detected from the environment's
database URL, and defaults to postgres.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	driverType := opts.backend
	if driverType == "" && p.env.DatabaseURL != "" {
		driverType = executor.DetectDriver(p.env.DatabaseURL)
	}
	if driverType == "" {
		driverType = "postgres"
	}

	backend, err := executor.NewBackend(driverType)
	if err != nil {
		return err
	}

	order, err := p.registry.ResolveOrder()
	if err != nil {
		return err
	}

	for _, name := range order {
		m, _ := p.registry.Get(name)
		if err := m.Validate(backend); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), confirm.Success(fmt.Sprintf("%s valid for %s (%s)", plural(len(order), "migration"), backend.Name(), p.migrationsDir)))
	return nil
}
