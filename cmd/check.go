package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/database/postgres"
	"github.com/lockplane/lockstep/internal/confirm"
	"github.com/lockplane/lockstep/internal/sqlcheck"
)

var checkOpts struct {
	format string
	locks  bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse the PostgreSQL of every migration and flag risky statements",
	Long: `Render every registered migration for PostgreSQL and run each statement
through the PostgreSQL parser. No database connection is needed.

Errors: syntax errors, transaction control statements, and concurrent index
builds inside atomic migrations.
Warnings: DROP TABLE, DROP COLUMN, TRUNCATE and DELETE without WHERE.

With --locks, statements whose table lock blocks reads or writes are listed
with the lock mode they take.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkOpts.format, "format", "text", "Output format: text or json")
	checkCmd.Flags().BoolVar(&checkOpts.locks, "locks", false, "Report statements that block reads or writes")
}

var errCheckFailed = errors.New("check found errors")

func runCheck(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	order, err := p.registry.ResolveOrder()
	if err != nil {
		return err
	}

	backend := postgres.NewDriver()

	var (
		issues []sqlcheck.Issue
		locks  []sqlcheck.LockImpact
	)
	for _, name := range order {
		m, _ := p.registry.Get(name)
		if err := m.ValidateForward(backend); err != nil {
			return err
		}

		stmts := m.ForwardSQL(backend)
		issues = append(issues, sqlcheck.CheckMigration(name, m.IsAtomic(), stmts)...)
		if checkOpts.locks {
			for _, impact := range sqlcheck.AnalyzeLocks(name, stmts) {
				if impact.BlocksTraffic() {
					locks = append(locks, impact)
				}
			}
		}
	}

	out := cmd.OutOrStdout()
	switch checkOpts.format {
	case "json":
		result := struct {
			Valid  bool                  `json:"valid"`
			Issues []sqlcheck.Issue      `json:"issues"`
			Locks  []sqlcheck.LockImpact `json:"locks,omitempty"`
		}{Valid: !sqlcheck.HasErrors(issues), Issues: issues, Locks: locks}
		if result.Issues == nil {
			result.Issues = []sqlcheck.Issue{}
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal check result: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))

	case "text":
		for _, issue := range issues {
			line := fmt.Sprintf("%s[%d]: %s", issue.Migration, issue.Statement, issue.Message)
			if issue.Severity == sqlcheck.SeverityError {
				_, _ = fmt.Fprintln(out, confirm.Error(line))
			} else {
				_, _ = fmt.Fprintln(out, confirm.Warning(line))
			}
		}
		for _, impact := range locks {
			where := ""
			if impact.Table != "" {
				where = " on " + impact.Table
			}
			_, _ = fmt.Fprintf(out, "%s %s\n", confirm.Muted(fmt.Sprintf("%s[%d]: %s%s:", impact.Migration, impact.Statement, impact.Mode, where)), impact.Explanation)
		}
		if !sqlcheck.HasErrors(issues) {
			_, _ = fmt.Fprintln(out, confirm.Success(fmt.Sprintf("Checked %s", plural(len(order), "migration"))))
		}

	default:
		return fmt.Errorf("unknown format %q: use text or json", checkOpts.format)
	}

	if sqlcheck.HasErrors(issues) {
		return errCheckFailed
	}
	return nil
}
