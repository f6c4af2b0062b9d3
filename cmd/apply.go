package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/internal/confirm"
	"github.com/lockplane/lockstep/internal/executor"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration in dependency order.

On databases with transactional DDL each atomic migration runs in its own
transaction. The run stops at the first failure; migrations completed before
it stay applied.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	t, err := p.open(ctx, false)
	if err != nil {
		return err
	}
	defer t.Close()

	session := executor.NewSession(t.conn.DB)
	applied, err := t.migrator.MigrateForwardTx(ctx, session.Exec, session.Hooks())

	out := cmd.OutOrStdout()
	for _, name := range applied {
		_, _ = fmt.Fprintln(out, confirm.Success("Applied "+name))
	}
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		_, _ = fmt.Fprintln(out, confirm.Success("Database is up to date"))
		return nil
	}

	_, _ = fmt.Fprintf(out, "Applied %s\n", plural(len(applied), "migration"))
	return nil
}
