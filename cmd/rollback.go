package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/internal/confirm"
	"github.com/lockplane/lockstep/internal/executor"
)

var rollbackOpts struct {
	target string
	yes    bool
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Roll back applied migrations in reverse dependency order.

With --target, migrations are rolled back up to and including the target.
A target that is not applied is ignored and every applied migration is rolled
back, so check the list in the confirmation prompt.`,
	Example: `  # Roll back everything after (and including) 0003_add_posts
  lockstep rollback --target 0003_add_posts

  # Skip the confirmation prompt
  lockstep rollback --target 0003_add_posts --yes`,
	Args: cobra.NoArgs,
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().StringVar(&rollbackOpts.target, "target", "", "Last migration to roll back")
	rollbackCmd.Flags().BoolVarP(&rollbackOpts.yes, "yes", "y", false, "Do not ask for confirmation")
}

var errRollbackCancelled = errors.New("rollback cancelled")

func runRollback(cmd *cobra.Command, args []string) error {
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

	plan, err := t.migrator.PlanBackward(ctx, rollbackOpts.target)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(plan) == 0 {
		_, _ = fmt.Fprintln(out, confirm.Success("Nothing to roll back"))
		return nil
	}

	if !rollbackOpts.yes {
		if !isTerminal(cmd.InOrStdin()) {
			return errors.New("refusing to roll back without confirmation: pass --yes when not running in a terminal")
		}

		ok, err := confirm.Ask(cmd.InOrStdin(), out, confirm.Prompt{
			Title:  fmt.Sprintf("Roll back %s on %s (%s)", plural(len(plan), "migration"), p.env.Name, t.backend.Name()),
			Items:  plan,
			Phrase: p.env.Name,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errRollbackCancelled
		}
	}

	session := executor.NewSession(t.conn.DB)
	rolledBack, err := t.migrator.MigrateBackwardTx(ctx, rollbackOpts.target, session.Exec, session.Hooks())

	for _, name := range rolledBack {
		_, _ = fmt.Fprintln(out, confirm.Success("Rolled back "+name))
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Rolled back %s\n", plural(len(rolledBack), "migration"))
	return nil
}

// isTerminal reports whether r is a terminal. Readers that are not files never are.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
