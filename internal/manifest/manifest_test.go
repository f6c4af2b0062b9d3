package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lockplane/lockstep/database/mysql"
	"github.com/lockplane/lockstep/database/postgres"
	"github.com/lockplane/lockstep/database/sqlite"
)

const createUsers = `
description = "Create the users table"

[[operations]]
type = "create_table"
table = "users"

  [[operations.fields]]
  name = "id"
  type = "serial"
  primary_key = true

  [[operations.fields]]
  name = "email"
  type = "varchar"
  length = 255
  nullable = false
  unique = true

[[operations]]
type = "add_index"
table = "users"
index = { name = "idx_users_email", columns = ["email desc"], where = "email IS NOT NULL" }
`

const addPosts = `
depends_on = ["0001_users"]

[[operations]]
type = "create_table"
table = "posts"
fields = [
  { name = "id", type = "bigserial", primary_key = true },
  { name = "user_id", type = "integer", nullable = false, references = { table = "users", column = "id", on_delete = "cascade" } },
  { name = "price", type = "decimal", precision = 10, scale = 2, default = "0" },
]
`

func writeMigration(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadFile_NameFromFile(t *testing.T) {
	path := writeMigration(t, t.TempDir(), "0001_users.toml", createUsers)

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if m.Name() != "0001_users" {
		t.Errorf("Expected name from file, got %q", m.Name())
	}
	if !m.IsAtomic() {
		t.Error("Expected migrations to be atomic by default")
	}
	if !m.IsReversible() {
		t.Error("Expected create table + add index to be reversible")
	}

	stmts := m.ForwardSQL(postgres.NewDriver())
	if len(stmts) != 2 {
		t.Fatalf("Expected 2 statements, got %d: %v", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], `"email" varchar(255) NOT NULL UNIQUE`) {
		t.Errorf("Unexpected CREATE TABLE: %s", stmts[0])
	}
	if !strings.Contains(stmts[1], `"email" DESC`) || !strings.Contains(stmts[1], "WHERE email IS NOT NULL") {
		t.Errorf("Unexpected CREATE INDEX: %s", stmts[1])
	}
}

func TestParse_ForeignKeysAndTypes(t *testing.T) {
	m, err := Parse("0002_posts.toml", "0002_posts", []byte(addPosts))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if want := []string{"0001_users"}; !reflect.DeepEqual(m.Dependencies(), want) {
		t.Errorf("Expected dependencies %v, got %v", want, m.Dependencies())
	}

	sql := m.ForwardSQL(postgres.NewDriver())[0]
	for _, want := range []string{
		`"id" bigserial NOT NULL PRIMARY KEY`,
		`"price" decimal(10, 2) DEFAULT 0`,
		`REFERENCES "users" ("id") ON DELETE CASCADE`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("Expected %q in: %s", want, sql)
		}
	}
}

func TestParse_ExplicitBackward(t *testing.T) {
	doc := `
name = "custom_name"
atomic = false

[[operations]]
type = "run_sql"
sql = ["CREATE INDEX CONCURRENTLY idx_a ON a (x)"]

[[backward]]
type = "run_sql"
sql = ["DROP INDEX CONCURRENTLY idx_a"]
`
	m, err := Parse("x.toml", "x", []byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if m.Name() != "custom_name" {
		t.Errorf("Expected explicit name, got %q", m.Name())
	}
	if m.IsAtomic() {
		t.Error("Expected atomic = false to be honored")
	}
	if !m.IsReversible() {
		t.Fatal("Expected explicit backward operations to make the migration reversible")
	}

	back, ok := m.BackwardSQL(postgres.NewDriver())
	if !ok || !reflect.DeepEqual(back, []string{"DROP INDEX CONCURRENTLY idx_a"}) {
		t.Errorf("Unexpected backward SQL: %v (ok=%v)", back, ok)
	}
}

func TestParse_EmptyBackwardIsReversible(t *testing.T) {
	doc := `
backward = []

[[operations]]
type = "run_sql"
sql = ["UPDATE users SET active = TRUE"]
`
	m, err := Parse("x.toml", "x", []byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	back, ok := m.BackwardSQL(sqlite.NewDriver())
	if !ok || len(back) != 0 {
		t.Errorf("Expected an empty reversible backward, got %v (ok=%v)", back, ok)
	}
}

func TestParse_AlterFieldAndPortableSQL(t *testing.T) {
	doc := `
[[operations]]
type = "alter_field"
table = "users"
name = "age"
changes = { type = "bigint", nullable = false }
reverse = { type = "integer", nullable = true }

[[operations]]
type = "run_sql"
description = "Create reporting view"

  [operations.portable.postgres]
  sql = ["CREATE VIEW v AS SELECT 1"]
  reverse_sql = ["DROP VIEW v"]

  [operations.portable.mysql]
  sql = ["CREATE VIEW v AS SELECT 1"]
  reverse_sql = ["DROP VIEW v"]
`
	m, err := Parse("x.toml", "x", []byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !m.IsReversible() {
		t.Error("Expected migration to be reversible")
	}

	ops := m.ForwardOperations()
	if len(ops) != 2 || ops[1].Describe() != "Create reporting view" {
		t.Fatalf("Unexpected operations: %v", ops)
	}

	if err := m.Validate(postgres.NewDriver()); err != nil {
		t.Errorf("Expected postgres to validate, got %v", err)
	}
	if err := m.Validate(sqlite.NewDriver()); err == nil {
		t.Error("Expected sqlite to fail validation (no ALTER COLUMN, no portable SQL)")
	}
	if err := m.Validate(mysql.NewDriver()); err != nil {
		t.Errorf("Expected mysql to validate, got %v", err)
	}
}

func TestParse_Constraints(t *testing.T) {
	doc := `
[[operations]]
type = "add_constraint"
table = "orders"
constraint = { name = "fk_orders_customer", kind = "foreign_key", columns = ["tenant_id", "customer_id"], ref_table = "customers", ref_columns = ["tenant_id", "id"], on_delete = "restrict" }

[[operations]]
type = "remove_constraint"
table = "orders"
name = "chk_total"
constraint = { name = "chk_total", kind = "check", expression = "total >= 0" }
`
	m, err := Parse("x.toml", "x", []byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	stmts := m.ForwardSQL(postgres.NewDriver())
	if !strings.Contains(stmts[0], `FOREIGN KEY ("tenant_id", "customer_id") REFERENCES "customers" ("tenant_id", "id") ON DELETE RESTRICT`) {
		t.Errorf("Unexpected foreign key SQL: %s", stmts[0])
	}

	back, ok := m.BackwardSQL(postgres.NewDriver())
	if !ok || len(back) != 2 || !strings.Contains(back[0], "CHECK (total >= 0)") {
		t.Errorf("Unexpected backward SQL: %v (ok=%v)", back, ok)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "no operations",
			doc:  `depends_on = ["a"]`,
			want: "operations",
		},
		{
			name: "unknown operation type",
			doc:  "[[operations]]\ntype = \"truncate\"\n",
			want: "type",
		},
		{
			name: "unknown top-level key",
			doc:  "dependencies = [\"a\"]\n[[operations]]\ntype = \"drop_table\"\ntable = \"a\"\n",
			want: "dependencies",
		},
		{
			name: "missing required operation field",
			doc:  "[[operations]]\ntype = \"add_field\"\ntable = \"users\"\n",
			want: "field",
		},
		{
			name: "run_sql with sql and portable",
			doc:  "[[operations]]\ntype = \"run_sql\"\nsql = [\"SELECT 1\"]\n[operations.portable.postgres]\nsql = [\"SELECT 1\"]\n",
			want: "operations.0",
		},
		{
			name: "unknown field type",
			doc:  "[[operations]]\ntype = \"add_field\"\ntable = \"users\"\nfield = { name = \"a\", type = \"money\" }\n",
			want: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.toml", "bad", []byte(tt.doc))

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %T: %v", err, err)
			}
			if verr.File != "bad.toml" {
				t.Errorf("Expected file name in error, got %q", verr.File)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestParse_SemanticErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "varchar without length",
			doc:  "[[operations]]\ntype = \"add_field\"\ntable = \"users\"\nfield = { name = \"a\", type = \"varchar\" }\n",
			want: "varchar requires a length",
		},
		{
			name: "conflicting default changes",
			doc:  "[[operations]]\ntype = \"alter_field\"\ntable = \"t\"\nname = \"c\"\nchanges = { default = \"1\", drop_default = true }\n",
			want: "mutually exclusive",
		},
		{
			name: "check without expression",
			doc:  "[[operations]]\ntype = \"add_constraint\"\ntable = \"t\"\nconstraint = { name = \"c\", kind = \"check\" }\n",
			want: "needs an expression",
		},
		{
			name: "mismatched foreign key columns",
			doc:  "[[operations]]\ntype = \"add_constraint\"\ntable = \"t\"\nconstraint = { name = \"fk\", kind = \"foreign_key\", columns = [\"a\", \"b\"], ref_table = \"r\", ref_columns = [\"id\"] }\n",
			want: "matching ref_columns",
		},
		{
			name: "invalid toml",
			doc:  "[[operations]\n",
			want: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.toml", "bad", []byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_posts.toml", addPosts)
	writeMigration(t, dir, "0001_users.toml", createUsers)
	writeMigration(t, dir, "README.md", "not a migration")
	if err := os.MkdirAll(filepath.Join(dir, "archive.toml"), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	reg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if reg.Len() != 2 {
		t.Fatalf("Expected 2 migrations, got %d", reg.Len())
	}

	order, err := reg.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder failed: %v", err)
	}
	if want := []string{"0001_users", "0002_posts"}; !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
}

func TestLoadDir_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "a.toml", "name = \"same\"\n[[operations]]\ntype = \"drop_table\"\ntable = \"a\"\n")
	writeMigration(t, dir, "b.toml", "name = \"same\"\n[[operations]]\ntype = \"drop_table\"\ntable = \"b\"\n")

	_, err := LoadDir(dir)
	if err == nil || !strings.Contains(err.Error(), "defined in both") {
		t.Fatalf("Expected duplicate name error, got %v", err)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Expected error for missing directory")
	}
}

func TestLoadDir_Empty(t *testing.T) {
	reg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Expected empty registry, got %d migrations", reg.Len())
	}
}
