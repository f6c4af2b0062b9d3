package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/internal/confirm"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show pending migrations and what they will do",
	Long: `Show the migrations that apply would run, in dependency order, with a
description of every operation.

Without a database, pass --backend and --state-file to plan against a JSON
state file.`,
	Example: `  # Plan against the default environment
  lockstep plan

  # Plan against staging
  lockstep plan --env staging`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	t, err := p.open(ctx, true)
	if err != nil {
		return err
	}
	defer t.Close()

	plan, err := t.migrator.PlanForward(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(plan) == 0 {
		_, _ = fmt.Fprintln(out, confirm.Success("Database is up to date"))
		return nil
	}

	_, _ = fmt.Fprintln(out, confirm.Header(fmt.Sprintf("%s pending on %s:", plural(len(plan), "migration"), t.backend.Name())))
	for _, name := range plan {
		m, _ := p.registry.Get(name)

		_, _ = fmt.Fprintln(out, confirm.Item(name))
		for _, op := range m.ForwardOperations() {
			_, _ = fmt.Fprintf(out, "      %s\n", op.Describe())
		}
		if !m.IsReversible() {
			_, _ = fmt.Fprintf(out, "      %s\n", confirm.Muted("(not reversible)"))
		}
	}

	return nil
}
