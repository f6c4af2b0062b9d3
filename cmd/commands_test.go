package cmd

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lockplane/lockstep/migration"
)

const usersMigration = `
description = "Create users"

[[operations]]
type = "create_table"
table = "users"
fields = [
  { name = "id", type = "integer", primary_key = true },
  { name = "email", type = "text", nullable = false },
]
`

const postsMigration = `
depends_on = ["0001_users"]

[[operations]]
type = "create_table"
table = "posts"
fields = [
  { name = "id", type = "integer", primary_key = true },
  { name = "title", type = "text" },
]
`

func sqliteTables(t *testing.T, path string) []string {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}
	return names
}

func TestApplyStatusRollback(t *testing.T) {
	p := newTestProject(t, true)
	p.write(t, "0001_users", usersMigration)
	p.write(t, "0002_posts", postsMigration)

	out, err := p.run(t, "plan")
	if err != nil {
		t.Fatalf("plan failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 migrations pending on sqlite") {
		t.Errorf("expected plan header, got:\n%s", out)
	}
	if !strings.Contains(out, "Create table posts") {
		t.Errorf("expected operation descriptions, got:\n%s", out)
	}

	out, err = p.run(t, "apply")
	if err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}
	if strings.Index(out, "Applied 0001_users") > strings.Index(out, "Applied 0002_posts") {
		t.Errorf("expected dependency order, got:\n%s", out)
	}

	tables := strings.Join(sqliteTables(t, p.dbPath), ",")
	if !strings.Contains(tables, "users") || !strings.Contains(tables, "posts") || !strings.Contains(tables, "schema_migrations") {
		t.Errorf("unexpected tables after apply: %s", tables)
	}

	out, err = p.run(t, "apply")
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if !strings.Contains(out, "up to date") {
		t.Errorf("expected nothing to apply, got:\n%s", out)
	}

	out, err = p.run(t, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "2 migrations, 0 pending") {
		t.Errorf("unexpected status summary:\n%s", out)
	}

	out, err = p.run(t, "rollback", "--target", "0002_posts", "--yes")
	if err != nil {
		t.Fatalf("rollback failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Rolled back 0002_posts") || strings.Contains(out, "Rolled back 0001_users") {
		t.Errorf("expected only 0002_posts rolled back, got:\n%s", out)
	}

	tables = strings.Join(sqliteTables(t, p.dbPath), ",")
	if strings.Contains(tables, "posts") {
		t.Errorf("expected posts dropped, tables: %s", tables)
	}

	out, err = p.run(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1 pending") {
		t.Errorf("expected one pending migration, got:\n%s", out)
	}
}

func TestApply_FailureKeepsCompleted(t *testing.T) {
	p := newTestProject(t, true)
	p.write(t, "0001_users", usersMigration)
	p.write(t, "0002_broken", `
depends_on = ["0001_users"]

[[operations]]
type = "run_sql"
sql = ["CREATE TABLE audit (id INTEGER)", "INSERT INTO missing_table VALUES (1)"]
`)

	out, err := p.run(t, "apply")

	var execErr *migration.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.Migration != "0002_broken" {
		t.Errorf("expected failure in 0002_broken, got %s", execErr.Migration)
	}
	if !strings.Contains(out, "Applied 0001_users") {
		t.Errorf("expected completed migration in output, got:\n%s", out)
	}

	tables := strings.Join(sqliteTables(t, p.dbPath), ",")
	if strings.Contains(tables, "audit") {
		t.Errorf("expected failed migration rolled back, tables: %s", tables)
	}

	var buf bytes.Buffer
	printError(&buf, err)
	if !strings.Contains(buf.String(), "Completed before the failure: 0001_users") {
		t.Errorf("unexpected error output: %s", buf.String())
	}
}

func TestApply_NoDatabase(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0001_users", usersMigration)

	_, err := p.run(t, "apply")
	if !errors.Is(err, errNoDatabase) {
		t.Fatalf("expected errNoDatabase, got %v", err)
	}
}

func TestSQL_Offline(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0001_users", usersMigration)
	p.write(t, "0002_posts", postsMigration)
	stateFile := filepath.Join(p.dir, "state.json")

	out, err := p.run(t, "sql", "--backend", "mysql", "--state-file", stateFile)
	if err != nil {
		t.Fatalf("sql failed: %v", err)
	}
	if !strings.Contains(out, "-- migration: 0001_users") || !strings.Contains(out, "CREATE TABLE `users`") {
		t.Errorf("expected MySQL DDL, got:\n%s", out)
	}
	if strings.Index(out, "0001_users") > strings.Index(out, "0002_posts") {
		t.Errorf("expected dependency order, got:\n%s", out)
	}
	if _, err := os.Stat(stateFile); !os.IsNotExist(err) {
		t.Error("sql must not write the state file")
	}

	if err := os.WriteFile(stateFile, []byte(`{"version":"1","migrations":[{"name":"0001_users"},{"name":"0002_posts"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = p.run(t, "sql", "--rollback", "--backend", "postgres", "--state-file", stateFile)
	if err != nil {
		t.Fatalf("sql --rollback failed: %v", err)
	}
	if strings.Index(out, "0002_posts") > strings.Index(out, "0001_users") {
		t.Errorf("expected reverse order, got:\n%s", out)
	}
	if !strings.Contains(out, `DROP TABLE "posts"`) {
		t.Errorf("expected postgres DROP TABLE, got:\n%s", out)
	}
}

func TestOffline_NeedsBackend(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0001_users", usersMigration)

	_, err := p.run(t, "plan", "--state-file", filepath.Join(p.dir, "state.json"))
	if err == nil || !strings.Contains(err.Error(), "--backend") {
		t.Fatalf("expected hint about --backend, got %v", err)
	}
}

func TestRollback_NothingApplied(t *testing.T) {
	p := newTestProject(t, true)
	p.write(t, "0001_users", usersMigration)

	out, err := p.run(t, "rollback", "--yes")
	if err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if !strings.Contains(out, "Nothing to roll back") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRollback_RefusesNonTerminalInput(t *testing.T) {
	p := newTestProject(t, true)
	p.write(t, "0001_users", usersMigration)

	if out, err := p.run(t, "apply"); err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}

	_, err := p.run(t, "rollback")
	if err == nil || !strings.Contains(err.Error(), "refusing to roll back") {
		t.Fatalf("expected refusal without --yes, got %v", err)
	}

	out, err := p.run(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0 pending") {
		t.Errorf("expected migration still applied, got:\n%s", out)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		migration string
		wantErr   bool
		contains  string
	}{
		{
			name:      "clean",
			migration: usersMigration,
			contains:  "Checked 1 migration",
		},
		{
			name: "drop table warns",
			migration: `
[[operations]]
type = "run_sql"
sql = ["DROP TABLE legacy"]
`,
			contains: "DROP TABLE",
		},
		{
			name: "syntax error fails",
			migration: `
[[operations]]
type = "run_sql"
sql = ["CREAT TABLE nope (id int)"]
`,
			wantErr:  true,
			contains: "syntax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProject(t, false)
			p.write(t, "0001_only", tt.migration)

			out, err := p.run(t, "check")
			if tt.wantErr && !errors.Is(err, errCheckFailed) {
				t.Fatalf("expected errCheckFailed, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("check failed: %v\n%s", err, out)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("expected %q in output, got:\n%s", tt.contains, out)
			}
		})
	}
}

func TestCheck_JSON(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0001_only", usersMigration)

	out, err := p.run(t, "check", "--format", "json")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) || !strings.Contains(out, `"issues": []`) {
		t.Errorf("unexpected JSON output:\n%s", out)
	}
}

func TestValidate(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0001_users", usersMigration)
	p.write(t, "0002_alter", `
depends_on = ["0001_users"]

[[operations]]
type = "alter_field"
table = "users"
name = "email"
changes = { nullable = true }
reverse = { nullable = false }
`)

	out, err := p.run(t, "validate")
	if err != nil {
		t.Fatalf("validate failed for postgres: %v", err)
	}
	if !strings.Contains(out, "2 migrations valid for postgres") {
		t.Errorf("unexpected output:\n%s", out)
	}

	_, err = p.run(t, "validate", "--backend", "sqlite")
	var unsupported *migration.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedError for sqlite, got %v", err)
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0002_posts", postsMigration)

	_, err := p.run(t, "validate")
	if !errors.Is(err, migration.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNew_DependsOnLeaves(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0001_users", usersMigration)
	p.write(t, "0002_posts", postsMigration)

	out, err := p.run(t, "--migrations", p.migrations, "new", "add_comments", "--table", "comments")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if !strings.Contains(out, "0003_add_comments.toml") {
		t.Errorf("unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(p.migrations, "0003_add_comments.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `depends_on = ["0002_posts"]`) {
		t.Errorf("expected dependency on the leaf migration, got:\n%s", data)
	}

	if _, err := p.run(t, "new", "bad", "--depends-on", "0009_missing"); err == nil {
		t.Error("expected error for unknown dependency")
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "init", "--dir", dir, "--env", "dev", "--database-url", "file:dev.db")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "lockstep.toml") {
		t.Errorf("unexpected output:\n%s", out)
	}

	for _, name := range []string{"lockstep.toml", "migrations", ".env.dev", ".gitignore"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	if _, err := runCLI(t, "init", "--dir", dir); err == nil {
		t.Error("expected error when lockstep.toml exists")
	}
}

func TestCheck_Locks(t *testing.T) {
	p := newTestProject(t, false)
	p.write(t, "0001_users", usersMigration)
	p.write(t, "0002_index", `
depends_on = ["0001_users"]

[[operations]]
type = "add_index"
table = "users"
index = { name = "idx_users_email", columns = ["email"] }
`)

	out, err := p.run(t, "check", "--locks")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out, "0002_index[0]: SHARE on users") {
		t.Errorf("expected SHARE lock on users, got:\n%s", out)
	}
	if strings.Contains(out, "0001_users[0]") {
		t.Errorf("CREATE TABLE should not be reported, got:\n%s", out)
	}
}
