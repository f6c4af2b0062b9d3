package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lockplane/lockstep/internal/confirm"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	statuses, err := t.migrator.Status(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(statuses) == 0 {
		_, _ = fmt.Fprintf(out, "No migrations in %s\n", p.migrationsDir)
		return nil
	}

	pending := 0
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		status := "applied"
		if !s.Applied {
			status = "pending"
			pending++
		}
		deps := strings.Join(s.Dependencies, ", ")
		if deps == "" {
			deps = "-"
		}
		rows = append(rows, []string{s.Name, status, yesNo(s.Reversible), yesNo(s.Atomic), deps})
	}

	_, _ = fmt.Fprintln(out, confirm.Table([]string{"MIGRATION", "STATUS", "REVERSIBLE", "ATOMIC", "DEPENDS ON"}, rows))
	_, _ = fmt.Fprintf(out, "%s, %d pending\n", plural(len(statuses), "migration"), pending)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
