package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/internal/confirm"
	"github.com/lockplane/lockstep/internal/scaffold"
)

var newOpts struct {
	table     string
	dependsOn []string
	noDeps    bool
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a migration file",
	Long: `Create a numbered migration file in the migrations directory.

By default the new migration depends on the leaf migrations of the current
graph, the ones nothing else depends on.`,
	Example: `  lockstep new create_users --table users
  lockstep new backfill_emails --depends-on 0002_add_email`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringVar(&newOpts.table, "table", "", "Start with a create_table operation for this table")
	newCmd.Flags().StringSliceVar(&newOpts.dependsOn, "depends-on", nil, "Dependencies (default: current leaf migrations)")
	newCmd.Flags().BoolVar(&newOpts.noDeps, "no-deps", false, "Create a migration without dependencies")
}

func runNew(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	deps := newOpts.dependsOn
	if deps == nil && !newOpts.noDeps {
		deps, err = leafMigrations(p)
		if err != nil {
			return err
		}
	}
	for _, dep := range deps {
		if _, ok := p.registry.Get(dep); !ok {
			return fmt.Errorf("unknown dependency %s", dep)
		}
	}

	path, name, err := scaffold.NewMigration(scaffold.NewMigrationOptions{
		Dir:       p.migrationsDir,
		Name:      args[0],
		DependsOn: deps,
		Table:     newOpts.table,
	})
	if err != nil {
		return err
	}

	p.logger.Debug("created migration", "name", name, "path", path, "depends_on", deps)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), confirm.Success("Created "+path))
	return nil
}

// leafMigrations returns the migrations no other migration depends on, in
// resolved order.
func leafMigrations(p *project) ([]string, error) {
	order, err := p.registry.ResolveOrder()
	if err != nil {
		return nil, err
	}

	hasDependents := make(map[string]bool)
	for _, m := range p.registry.All() {
		for _, dep := range m.Dependencies() {
			hasDependents[dep] = true
		}
	}

	var leaves []string
	for _, name := range order {
		if !hasDependents[name] {
			leaves = append(leaves, name)
		}
	}
	return leaves, nil
}
