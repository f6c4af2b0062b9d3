package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/migration"
)

var sqlOpts struct {
	rollback bool
	target   string
}

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Print the SQL apply or rollback would run",
	Long: `Print the statements of the current plan without running them.

The output is plain SQL, one statement per line terminated by a semicolon,
with a comment before each migration.`,
	Example: `  # SQL for pending migrations
  lockstep sql > pending.sql

  # SQL to roll back to 0002_add_name, rendered for MySQL from a state file
  lockstep sql --rollback --target 0002_add_name --backend mysql --state-file state.json`,
	Args: cobra.NoArgs,
	RunE: runSQL,
}

func init() {
	rootCmd.AddCommand(sqlCmd)

	sqlCmd.Flags().BoolVar(&sqlOpts.rollback, "rollback", false, "Print rollback SQL instead of apply SQL")
	sqlCmd.Flags().StringVar(&sqlOpts.target, "target", "", "Last migration to roll back (with --rollback)")
}

func runSQL(cmd *cobra.Command, args []string) error {
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

	var plan []migration.MigrationSQL
	if sqlOpts.rollback {
		plan, err = t.migrator.BackwardSQL(ctx, sqlOpts.target)
	} else {
		plan, err = t.migrator.ForwardSQL(ctx)
	}
	if err != nil {
		return err
	}

	writeSQL(cmd.OutOrStdout(), plan)
	return nil
}

func writeSQL(w io.Writer, plan []migration.MigrationSQL) {
	for i, m := range plan {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "-- migration: %s\n", m.Name)
		for _, stmt := range m.Statements {
			_, _ = fmt.Fprintf(w, "%s;\n", strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
		}
	}
}
